// Package statement generates SQL statements and their parameters for an
// entity descriptor.
//
// A Builder is a pure function of its inputs: it performs no I/O, holds no
// mutable state and may be shared by any number of goroutines. Unusable input
// and missing dialect capabilities are reported as Invalid results, never as
// panics. Placeholders are always "?"; renumbering for PostgreSQL is left to
// the executor.
//
//	b, err := statement.New(dialect.MySQL, users)
//	if err != nil {
//		return err
//	}
//	switch r := b.SelectAllSQL(assist.New().AndEq("age", 18)).(type) {
//	case statement.Executable:
//		// r.SQL == "select id, name, age from user where age = ?"
//	case statement.Invalid:
//		return r.Err("SelectAllSQL")
//	}
package statement

import (
	"errors"
	"fmt"

	"github.com/syssam/sqlassist/assist"
	"github.com/syssam/sqlassist/dialect"
	"github.com/syssam/sqlassist/entity"
)

// Builder generates the statements of one entity for one dialect.
type Builder interface {
	// Dialect returns the dialect name.
	Dialect() string
	// Descriptor returns the entity descriptor.
	Descriptor() *entity.Descriptor

	// CountSQL counts the rows matching the conditions of a.
	CountSQL(a *assist.Assist) Result
	// ExistSQL selects at most one row matching the conditions of a.
	ExistSQL(a *assist.Assist) Result
	// SelectAllSQL selects the rows shaped by a, which may be nil.
	SelectAllSQL(a *assist.Assist) Result
	// SelectByIDSQL selects the row with the given primary key value.
	SelectByIDSQL(id any, resultColumns, join string) Result
	// SelectByObjSQL selects the rows equal to every non-absent value of r.
	// When single is set, at most one row is selected.
	SelectByObjSQL(r entity.Record, resultColumns, join string, single bool) Result

	// InsertAllSQL inserts every column of r, absent values as NULL.
	InsertAllSQL(r entity.Record) Result
	// InsertNonEmptySQL inserts the non-absent values of r.
	InsertNonEmptySQL(r entity.Record) Result
	// InsertAllReturnIDSQL is InsertAllSQL reporting the generated key.
	InsertAllReturnIDSQL(r entity.Record) Result
	// InsertNonEmptyReturnIDSQL is InsertNonEmptySQL reporting the generated key.
	InsertNonEmptyReturnIDSQL(r entity.Record) Result
	// UpsertAllSQL inserts every column of r, updating the existing row when
	// dupCol conflicts. An empty dupCol means the primary key.
	UpsertAllSQL(r entity.Record, dupCol string) Result
	// UpsertNonEmptySQL is UpsertAllSQL over the non-absent values of r.
	UpsertNonEmptySQL(r entity.Record, dupCol string) Result
	// UpsertAllReturnIDSQL is UpsertAllSQL reporting the generated key.
	UpsertAllReturnIDSQL(r entity.Record, dupCol string) Result
	// UpsertNonEmptyReturnIDSQL is UpsertNonEmptySQL reporting the generated key.
	UpsertNonEmptyReturnIDSQL(r entity.Record, dupCol string) Result
	// InsertBatchSQL inserts every column of every record in one statement.
	InsertBatchSQL(rs []entity.Record) Result
	// ReplaceSQL inserts r, replacing the row it conflicts with.
	ReplaceSQL(r entity.Record) Result

	// UpdateAllByIDSQL sets every non-key column of r, absent values as NULL,
	// on the row identified by the primary key value of r.
	UpdateAllByIDSQL(r entity.Record) Result
	// UpdateNonEmptyByIDSQL sets the non-absent non-key values of r on the row
	// identified by the primary key value of r.
	UpdateNonEmptyByIDSQL(r entity.Record) Result
	// UpdateAllByAssistSQL sets every non-key column of r on the rows matching
	// the conditions of a.
	UpdateAllByAssistSQL(r entity.Record, a *assist.Assist) Result
	// UpdateNonEmptyByAssistSQL sets the non-absent non-key values of r on the
	// rows matching the conditions of a.
	UpdateNonEmptyByAssistSQL(r entity.Record, a *assist.Assist) Result
	// UpdateSetNullByIDSQL sets columns to NULL on the row with the given id.
	UpdateSetNullByIDSQL(id any, columns ...string) Result
	// UpdateSetNullByAssistSQL sets columns to NULL on the rows matching the
	// conditions of a.
	UpdateSetNullByAssistSQL(a *assist.Assist, columns ...string) Result

	// DeleteByIDSQL deletes the row with the given primary key value.
	DeleteByIDSQL(id any) Result
	// DeleteByAssistSQL deletes the rows matching the conditions of a.
	DeleteByAssistSQL(a *assist.Assist) Result
}

// syntax holds the parts of statement generation that differ per dialect.
type syntax interface {
	name() string
	// paginate restricts a shaped select to the window [start, start+size).
	paginate(q *query, start, size int)
	// limitOne appends the WHERE clause for where, restricted to one row.
	limitOne(q *query, where string, args []any)
	// upsert appends the conflict clause of an insert over columns.
	upsert(q *query, columns []string, dupCol string) (ok bool)
	// returning appends the clause returning the generated key, reporting
	// the column the statement returns.
	returning(q *query, pk string) (column string, ok bool)
	// replace returns the verb of an insert replacing conflicting rows.
	replace() (verb string, ok bool)
	// batch reports whether multi-row inserts are supported.
	batch() bool
}

var errNilDescriptor = errors.New("statement: nil entity descriptor")

// New returns the builder of the given dialect. Dialect aliases accepted by
// dialect.Normalize are recognized.
func New(name string, d *entity.Descriptor) (*Generator, error) {
	if d == nil {
		return nil, errNilDescriptor
	}
	name, err := dialect.Normalize(name)
	if err != nil {
		return nil, fmt.Errorf("statement: %w", err)
	}
	switch name {
	case dialect.MySQL:
		return NewMySQL(d), nil
	case dialect.Postgres:
		return NewPostgres(d), nil
	case dialect.SQLite:
		return NewSQLite(d), nil
	case dialect.Oracle:
		return NewOracle(d), nil
	}
	return nil, fmt.Errorf("statement: dialect %q has no builder", name)
}

// NewMySQL returns the MySQL builder.
func NewMySQL(d *entity.Descriptor) *Generator { return newGenerator(d, mysql{}) }

// NewPostgres returns the PostgreSQL builder.
func NewPostgres(d *entity.Descriptor) *Generator { return newGenerator(d, postgres{}) }

// NewSQLite returns the SQLite builder.
func NewSQLite(d *entity.Descriptor) *Generator { return newGenerator(d, sqlite{}) }

// NewOracle returns the Oracle builder.
func NewOracle(d *entity.Descriptor) *Generator { return newGenerator(d, oracle{}) }
