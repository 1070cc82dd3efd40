// Package client executes the statements of one entity type against a
// dialect.Driver.
//
// A Client combines the statement Builder of the driver's dialect with the
// Binder of T, so callers work with records of T and shaping descriptors
// instead of SQL text:
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	if err != nil {
//		return err
//	}
//	users, err := client.New[User](drv)
//	if err != nil {
//		return err
//	}
//	page, err := users.LimitAll(ctx, assist.New().AndGte("age", 18).SetPage(2))
//
// Statements the builder refuses to generate are returned as
// *sqlassist.InvalidStatementError before any I/O takes place.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/syssam/sqlassist"
	"github.com/syssam/sqlassist/assist"
	"github.com/syssam/sqlassist/dialect"
	"github.com/syssam/sqlassist/dialect/sql"
	"github.com/syssam/sqlassist/entity"
	"github.com/syssam/sqlassist/statement"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Client executes the statements of entity type T.
type Client[T any] struct {
	drv     dialect.Driver
	conn    dialect.ExecQuerier
	builder statement.Builder
	binder  entity.Binder
	logger  *slog.Logger
	// tx is set on the copy handed to WithTx callbacks. A transaction is
	// bound to one connection, so its statements must not overlap.
	tx bool
}

type options struct {
	logger   *slog.Logger
	registry *entity.Registry
	binding  *entity.Binding
	builder  statement.Builder
}

// Option configures a Client.
type Option func(*options) error

// WithLogger sets the logger of rejected statements. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("client: nil logger")
		}
		o.logger = logger
		return nil
	}
}

// WithRegistry resolves the binding of T from r instead of entity.Default.
func WithRegistry(r *entity.Registry) Option {
	return func(o *options) error {
		if r == nil {
			return errors.New("client: nil registry")
		}
		o.registry = r
		return nil
	}
}

// WithBinding uses the given descriptor and binder for T.
func WithBinding(b *entity.Binding) Option {
	return func(o *options) error {
		if b == nil || b.Descriptor == nil || b.Binder == nil {
			return errors.New("client: incomplete binding")
		}
		o.binding = b
		return nil
	}
}

// WithBuilder uses the given statement builder instead of the one of the
// driver's dialect.
func WithBuilder(b statement.Builder) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("client: nil builder")
		}
		o.builder = b
		return nil
	}
}

// New returns a Client of T over drv. The binding of T is resolved once,
// here, so a type that cannot be described fails at setup.
func New[T any](drv dialect.Driver, opts ...Option) (*Client[T], error) {
	if drv == nil {
		return nil, errors.New("client: nil driver")
	}
	o := &options{logger: slog.Default(), registry: entity.Default}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.binding == nil {
		b, err := o.registry.Lookup(reflect.TypeFor[T]())
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		o.binding = b
	}
	if o.builder == nil {
		b, err := statement.New(drv.Dialect(), o.binding.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		o.builder = b
	}
	return &Client[T]{
		drv:     drv,
		conn:    drv,
		builder: o.builder,
		binder:  o.binding.Binder,
		logger:  o.logger,
	}, nil
}

// Builder returns the statement builder of the client.
func (c *Client[T]) Builder() statement.Builder { return c.builder }

// WithTx runs fn with a client bound to a new transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (c *Client[T]) WithTx(ctx context.Context, fn func(tx *Client[T]) error) (rerr error) {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("client: starting a transaction: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	txc := *c
	txc.conn = tx
	txc.tx = true
	if err := fn(&txc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("client: committing transaction: %w", err)
	}
	return nil
}

// prepare turns a result into an executable statement, logging refusals.
func (c *Client[T]) prepare(ctx context.Context, op string, r statement.Result) (statement.Executable, error) {
	e, err := statement.Unwrap(op, r)
	if err != nil {
		var ise *sqlassist.InvalidStatementError
		if errors.As(err, &ise) {
			c.logger.DebugContext(ctx, "statement rejected", "op", op, "reason", ise.Reason, "not_implemented", ise.NotImplemented)
		}
		return statement.Executable{}, err
	}
	return e, nil
}

func (c *Client[T]) bind(v *T) (entity.Record, error) {
	if v == nil {
		return nil, errors.New("client: nil record")
	}
	r, err := c.binder.Bind(v)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return r, nil
}

func (c *Client[T]) query(ctx context.Context, op string, r statement.Result) ([]Row, error) {
	e, err := c.prepare(ctx, op, r)
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := c.conn.Query(ctx, e.SQL, e.Params, rows); err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	out, err := sql.ScanMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	return out, nil
}

func (c *Client[T]) queryOne(ctx context.Context, op string, r statement.Result, id ...any) (Row, error) {
	rows, err := c.query(ctx, op, r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		table := c.builder.Descriptor().Table()
		if len(id) > 0 {
			return nil, sqlassist.NewNotFoundErrorWithID(table, id[0])
		}
		return nil, sqlassist.NewNotFoundError(table)
	}
	return rows[0], nil
}

func (c *Client[T]) exec(ctx context.Context, op string, r statement.Result) (sql.Result, error) {
	e, err := c.prepare(ctx, op, r)
	if err != nil {
		return nil, err
	}
	var res sql.Result
	if err := c.conn.Exec(ctx, e.SQL, e.Params, &res); err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	return res, nil
}

func (c *Client[T]) affected(ctx context.Context, op string, r statement.Result) (int64, error) {
	res, err := c.exec(ctx, op, r)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("client: %s: rows affected: %w", op, err)
	}
	return n, nil
}

// returnID executes an insert and returns the generated key, read from the
// returned row or from the driver.
func (c *Client[T]) returnID(ctx context.Context, op string, r statement.Result) (any, error) {
	e, err := c.prepare(ctx, op, r)
	if err != nil {
		return nil, err
	}
	if e.Returning == "" {
		res, err := c.exec(ctx, op, e)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("client: %s: last insert id: %w", op, err)
		}
		return id, nil
	}
	rows, err := c.query(ctx, op, e)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// Nothing was written, e.g. "on conflict do nothing".
		return nil, nil
	}
	return rows[0][e.Returning], nil
}

// Query executes a row-returning statement.
func (c *Client[T]) Query(ctx context.Context, r statement.Result) ([]Row, error) {
	return c.query(ctx, "Query", r)
}

// QueryOne executes a row-returning statement and returns its first row.
// It returns a *sqlassist.NotFoundError when there is none.
func (c *Client[T]) QueryOne(ctx context.Context, r statement.Result) (Row, error) {
	return c.queryOne(ctx, "QueryOne", r)
}

// Exec executes a statement and returns the number of affected rows.
func (c *Client[T]) Exec(ctx context.Context, r statement.Result) (int64, error) {
	return c.affected(ctx, "Exec", r)
}

// Count returns the number of rows matching the conditions of a.
func (c *Client[T]) Count(ctx context.Context, a *assist.Assist) (int64, error) {
	row, err := c.queryOne(ctx, "Count", c.builder.CountSQL(a))
	if err != nil {
		return 0, err
	}
	for _, v := range row {
		return toInt64(v)
	}
	return 0, nil
}

// Exists reports whether a row matches the conditions of a.
func (c *Client[T]) Exists(ctx context.Context, a *assist.Assist) (bool, error) {
	rows, err := c.query(ctx, "Exists", c.builder.ExistSQL(a))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// SelectAll returns the rows shaped by a, which may be nil.
func (c *Client[T]) SelectAll(ctx context.Context, a *assist.Assist) ([]Row, error) {
	return c.query(ctx, "SelectAll", c.builder.SelectAllSQL(a))
}

// SelectByID returns the row with the given primary key value. Empty
// resultColumns select every column.
func (c *Client[T]) SelectByID(ctx context.Context, id any, resultColumns, join string) (Row, error) {
	return c.queryOne(ctx, "SelectByID", c.builder.SelectByIDSQL(id, resultColumns, join), id)
}

// SelectByObj returns the rows equal to every non-absent property of obj.
func (c *Client[T]) SelectByObj(ctx context.Context, obj *T, resultColumns, join string) ([]Row, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, "SelectByObj", c.builder.SelectByObjSQL(r, resultColumns, join, false))
}

// SelectSingleByObj returns the first row equal to every non-absent
// property of obj.
func (c *Client[T]) SelectSingleByObj(ctx context.Context, obj *T, resultColumns, join string) (Row, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.queryOne(ctx, "SelectSingleByObj", c.builder.SelectByObjSQL(r, resultColumns, join, true))
}

// InsertAll inserts every property of obj, absent ones as NULL.
func (c *Client[T]) InsertAll(ctx context.Context, obj *T) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "InsertAll", c.builder.InsertAllSQL(r))
}

// InsertNonEmpty inserts the non-absent properties of obj.
func (c *Client[T]) InsertNonEmpty(ctx context.Context, obj *T) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "InsertNonEmpty", c.builder.InsertNonEmptySQL(r))
}

// InsertAllReturnID is InsertAll returning the generated key.
func (c *Client[T]) InsertAllReturnID(ctx context.Context, obj *T) (any, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.returnID(ctx, "InsertAllReturnID", c.builder.InsertAllReturnIDSQL(r))
}

// InsertNonEmptyReturnID is InsertNonEmpty returning the generated key.
func (c *Client[T]) InsertNonEmptyReturnID(ctx context.Context, obj *T) (any, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.returnID(ctx, "InsertNonEmptyReturnID", c.builder.InsertNonEmptyReturnIDSQL(r))
}

// UpsertAll inserts every property of obj or updates the row conflicting on
// dupCol. An empty dupCol means the primary key.
func (c *Client[T]) UpsertAll(ctx context.Context, obj *T, dupCol string) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpsertAll", c.builder.UpsertAllSQL(r, dupCol))
}

// UpsertNonEmpty is UpsertAll over the non-absent properties of obj.
func (c *Client[T]) UpsertNonEmpty(ctx context.Context, obj *T, dupCol string) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpsertNonEmpty", c.builder.UpsertNonEmptySQL(r, dupCol))
}

// UpsertAllReturnID is UpsertAll returning the generated key.
func (c *Client[T]) UpsertAllReturnID(ctx context.Context, obj *T, dupCol string) (any, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.returnID(ctx, "UpsertAllReturnID", c.builder.UpsertAllReturnIDSQL(r, dupCol))
}

// UpsertNonEmptyReturnID is UpsertNonEmpty returning the generated key.
func (c *Client[T]) UpsertNonEmptyReturnID(ctx context.Context, obj *T, dupCol string) (any, error) {
	r, err := c.bind(obj)
	if err != nil {
		return nil, err
	}
	return c.returnID(ctx, "UpsertNonEmptyReturnID", c.builder.UpsertNonEmptyReturnIDSQL(r, dupCol))
}

// InsertBatch inserts every object in one statement.
func (c *Client[T]) InsertBatch(ctx context.Context, objs []*T) (int64, error) {
	rs := make([]entity.Record, 0, len(objs))
	for _, obj := range objs {
		r, err := c.bind(obj)
		if err != nil {
			return 0, err
		}
		rs = append(rs, r)
	}
	return c.affected(ctx, "InsertBatch", c.builder.InsertBatchSQL(rs))
}

// Replace inserts obj, replacing the row it conflicts with.
func (c *Client[T]) Replace(ctx context.Context, obj *T) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "Replace", c.builder.ReplaceSQL(r))
}

// UpdateAllByID sets every property of obj, absent ones as NULL, on the row
// identified by its primary key.
func (c *Client[T]) UpdateAllByID(ctx context.Context, obj *T) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpdateAllByID", c.builder.UpdateAllByIDSQL(r))
}

// UpdateNonEmptyByID sets the non-absent properties of obj on the row
// identified by its primary key.
func (c *Client[T]) UpdateNonEmptyByID(ctx context.Context, obj *T) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpdateNonEmptyByID", c.builder.UpdateNonEmptyByIDSQL(r))
}

// UpdateAllByAssist sets every property of obj on the rows matching a.
func (c *Client[T]) UpdateAllByAssist(ctx context.Context, obj *T, a *assist.Assist) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpdateAllByAssist", c.builder.UpdateAllByAssistSQL(r, a))
}

// UpdateNonEmptyByAssist sets the non-absent properties of obj on the rows
// matching a.
func (c *Client[T]) UpdateNonEmptyByAssist(ctx context.Context, obj *T, a *assist.Assist) (int64, error) {
	r, err := c.bind(obj)
	if err != nil {
		return 0, err
	}
	return c.affected(ctx, "UpdateNonEmptyByAssist", c.builder.UpdateNonEmptyByAssistSQL(r, a))
}

// UpdateSetNullByID sets columns to NULL on the row with the given id.
func (c *Client[T]) UpdateSetNullByID(ctx context.Context, id any, columns ...string) (int64, error) {
	return c.affected(ctx, "UpdateSetNullByID", c.builder.UpdateSetNullByIDSQL(id, columns...))
}

// UpdateSetNullByAssist sets columns to NULL on the rows matching a.
func (c *Client[T]) UpdateSetNullByAssist(ctx context.Context, a *assist.Assist, columns ...string) (int64, error) {
	return c.affected(ctx, "UpdateSetNullByAssist", c.builder.UpdateSetNullByAssistSQL(a, columns...))
}

// DeleteByID deletes the row with the given primary key value.
func (c *Client[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	return c.affected(ctx, "DeleteByID", c.builder.DeleteByIDSQL(id))
}

// DeleteByAssist deletes the rows matching a.
func (c *Client[T]) DeleteByAssist(ctx context.Context, a *assist.Assist) (int64, error) {
	return c.affected(ctx, "DeleteByAssist", c.builder.DeleteByAssistSQL(a))
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err != nil {
			return 0, fmt.Errorf("client: count %q: %w", v, err)
		}
		return n, nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("client: unexpected count type %T", v)
}
