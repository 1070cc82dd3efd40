package client_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlassist"
	"github.com/syssam/sqlassist/assist"
	"github.com/syssam/sqlassist/client"
	"github.com/syssam/sqlassist/dialect"
	"github.com/syssam/sqlassist/dialect/sql"
	"github.com/syssam/sqlassist/entity"
)

type user struct {
	ID   *int64  `db:"id,pk"`
	Name *string `db:"name"`
	Age  *int    `db:"age"`
}

func (user) TableName() string { return "user" }

func ptr[T any](v T) *T { return &v }

func mock(t *testing.T, name string, opts ...client.Option) (*client.Client[user], sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.ExpectationsWereMet())
		db.Close()
	})
	opts = append([]client.Option{client.WithRegistry(entity.NewRegistry())}, opts...)
	c, err := client.New[user](sql.OpenDB(name, db), opts...)
	require.NoError(t, err)
	return c, m
}

func TestNew(t *testing.T) {
	_, err := client.New[user](nil)
	require.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB(dialect.MySQL, db)

	_, err = client.New[int](drv, client.WithRegistry(entity.NewRegistry()))
	require.Error(t, err, "not a struct")

	_, err = client.New[user](drv, client.WithLogger(nil))
	require.Error(t, err)

	d := entity.MustNew("people", entity.Column{Name: "id", PrimaryKey: true})
	c, err := client.New[user](drv, client.WithBinding(&entity.Binding{
		Descriptor: d,
		Binder: entity.BinderFunc(func(any) (entity.Record, error) {
			return entity.Record{{Column: "id", Value: 1}}, nil
		}),
	}))
	require.NoError(t, err)
	assert.Same(t, d, c.Builder().Descriptor())
	assert.Equal(t, dialect.MySQL, c.Builder().Dialect())
}

func TestSelect(t *testing.T) {
	c, m := mock(t, dialect.MySQL)
	ctx := context.Background()

	m.ExpectQuery("select id, name, age from user where id = ?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), []byte("a8m"), int64(30)))
	row, err := c.SelectByID(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, client.Row{"id": int64(1), "name": "a8m", "age": int64(30)}, row)

	m.ExpectQuery("select id, name, age from user where id = ?").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}))
	_, err = c.SelectByID(ctx, 2, "", "")
	require.True(t, sqlassist.IsNotFound(err))
	var nf *sqlassist.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 2, nf.ID())

	m.ExpectQuery("select id, name, age from user where age = ? and name = ?").
		WithArgs(30, "a8m").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), "a8m", int64(30)))
	rows, err := c.SelectByObj(ctx, &user{Name: ptr("a8m"), Age: ptr(30)}, "", "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	m.ExpectQuery("select id from user where name = ? limit 1").
		WithArgs("nati").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = c.SelectSingleByObj(ctx, &user{Name: ptr("nati")}, "id", "")
	require.True(t, sqlassist.IsNotFound(err))

	m.ExpectQuery("select 1 from user where age > ? limit 1").
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
	ok, err := c.Exists(ctx, assist.New(assist.AndGt("age", 18)))
	require.NoError(t, err)
	assert.True(t, ok)

	m.ExpectQuery("select count(*) from user").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow([]byte("42")))
	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestLimitAll(t *testing.T) {
	ctx := context.Background()
	t.Run("Page", func(t *testing.T) {
		c, m := mock(t, dialect.MySQL)
		m.MatchExpectationsInOrder(false)
		m.ExpectQuery("select count(*) from user where age > ?").
			WithArgs(18).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(23)))
		m.ExpectQuery("select id, name, age from user where age > ? limit ?, ?").
			WithArgs(18, 10, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(11), "a", int64(20)))

		a := assist.New(assist.AndGt("age", 18)).SetPage(2).SetRowSize(10)
		page, err := c.LimitAll(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, int64(23), page.Totals)
		assert.Equal(t, int64(3), page.Pages)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 10, page.Size)
		assert.Len(t, page.Data, 1)

		_, ok := a.StartRow()
		assert.False(t, ok, "caller descriptor is not modified")
	})
	t.Run("Defaults", func(t *testing.T) {
		c, m := mock(t, dialect.Postgres)
		m.MatchExpectationsInOrder(false)
		m.ExpectQuery("select count(*) from user").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		m.ExpectQuery("select id, name, age from user limit $1 offset $2").
			WithArgs(client.DefaultRowSize, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}))

		page, err := c.LimitAll(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, &client.Page{Page: 1, Size: client.DefaultRowSize, Data: []client.Row{}}, page)
	})
	t.Run("StartRow", func(t *testing.T) {
		c, m := mock(t, dialect.SQLite)
		m.MatchExpectationsInOrder(false)
		m.ExpectQuery("select count(*) from user").
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(40)))
		m.ExpectQuery("select id, name, age from user limit ? offset ?").
			WithArgs(5, 20).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}))

		page, err := c.LimitAll(ctx, assist.New().SetPage(9).SetStartRow(20).SetRowSize(5))
		require.NoError(t, err)
		assert.Equal(t, 5, page.Page)
		assert.Equal(t, int64(8), page.Pages)
	})
	t.Run("Error", func(t *testing.T) {
		db, m, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()
		c, err := client.New[user](sql.OpenDB(dialect.MySQL, db), client.WithRegistry(entity.NewRegistry()))
		require.NoError(t, err)
		// The failing query cancels the other one, so either may be left unmet.
		m.MatchExpectationsInOrder(false)
		m.ExpectQuery("select count(*) from user").WillReturnError(errors.New("boom"))
		m.ExpectQuery("select id, name, age from user limit ?, ?").WillReturnError(errors.New("boom"))
		_, err = c.LimitAll(ctx, assist.New())
		require.ErrorContains(t, err, "boom")
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	c, m := mock(t, dialect.MySQL)

	m.ExpectExec("insert into user (id, name, age) values (?, ?, ?)").
		WithArgs(nil, "a8m", 30).
		WillReturnResult(sqlmock.NewResult(1, 1))
	n, err := c.InsertAll(ctx, &user{Name: ptr("a8m"), Age: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m.ExpectExec("insert into user (name) values (?)").
		WithArgs("nati").
		WillReturnResult(sqlmock.NewResult(7, 1))
	id, err := c.InsertNonEmptyReturnID(ctx, &user{Name: ptr("nati")})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	m.ExpectExec("insert into user (id, name) values (?, ?) on duplicate key update name = values(name)").
		WithArgs(1, "a8m").
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err = c.UpsertNonEmpty(ctx, &user{ID: ptr[int64](1), Name: ptr("a8m")}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m.ExpectExec("insert into user (id, name, age) values (?, ?, ?), (?, ?, ?)").
		WithArgs(1, "a", 1, 2, "b", 2).
		WillReturnResult(sqlmock.NewResult(2, 2))
	n, err = c.InsertBatch(ctx, []*user{
		{ID: ptr[int64](1), Name: ptr("a"), Age: ptr(1)},
		{ID: ptr[int64](2), Name: ptr("b"), Age: ptr(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m.ExpectExec("replace into user (id, name, age) values (?, ?, ?)").
		WithArgs(1, "a", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	_, err = c.Replace(ctx, &user{ID: ptr[int64](1), Name: ptr("a")})
	require.NoError(t, err)

	m.ExpectExec("update user set name = ? where id = ?").
		WithArgs("b", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = c.UpdateNonEmptyByID(ctx, &user{ID: ptr[int64](1), Name: ptr("b")})
	require.NoError(t, err)

	m.ExpectExec("update user set name = ?, age = ? where age < ?").
		WithArgs("c", nil, 10).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err = c.UpdateAllByAssist(ctx, &user{Name: ptr("c")}, assist.New(assist.AndLt("age", 10)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	m.ExpectExec("update user set age = null where id = ?").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = c.UpdateSetNullByID(ctx, 1, "age")
	require.NoError(t, err)

	m.ExpectExec("delete from user where id = ?").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = c.DeleteByID(ctx, 1)
	require.NoError(t, err)

	m.ExpectExec("delete from user where name like ?").
		WithArgs("a%").
		WillReturnResult(sqlmock.NewResult(0, 4))
	n, err = c.DeleteByAssist(ctx, assist.New(assist.StringField("name").HasPrefix("a")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = c.InsertAll(ctx, nil)
	require.Error(t, err)
}

func TestReturning(t *testing.T) {
	c, m := mock(t, dialect.Postgres)
	m.ExpectQuery("insert into user (name) values ($1) returning id").
		WithArgs("a8m").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	id, err := c.InsertNonEmptyReturnID(context.Background(), &user{Name: ptr("a8m")})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	m.ExpectQuery("insert into user (id) values ($1) on conflict (id) do nothing returning id").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	id, err = c.UpsertNonEmptyReturnID(context.Background(), &user{ID: ptr[int64](1)}, "")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestInvalidStatement(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, _ := mock(t, dialect.Oracle, client.WithLogger(logger))
	ctx := context.Background()

	_, err := c.UpdateAllByID(ctx, &user{Name: ptr("a8m")})
	require.True(t, sqlassist.IsInvalidStatement(err))
	assert.False(t, sqlassist.IsNotImplemented(err))
	assert.Contains(t, buf.String(), "op=UpdateAllByID")
	assert.Contains(t, buf.String(), "there is no primary key in your SQL statement")

	_, err = c.InsertBatch(ctx, []*user{{Name: ptr("a")}})
	require.True(t, sqlassist.IsNotImplemented(err))

	_, err = c.UpdateSetNullByAssist(ctx, nil, "age")
	require.True(t, sqlassist.IsInvalidStatement(err))

	_, err = c.Query(ctx, nil)
	require.True(t, sqlassist.IsInvalidStatement(err))
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	c, m := mock(t, dialect.MySQL)

	m.ExpectBegin()
	m.ExpectExec("delete from user where id = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	err := c.WithTx(ctx, func(tx *client.Client[user]) error {
		_, err := tx.DeleteByID(ctx, 1)
		return err
	})
	require.NoError(t, err)

	m.ExpectBegin()
	m.ExpectExec("delete from user where id = ?").WithArgs(2).WillReturnError(errors.New("locked"))
	m.ExpectRollback()
	err = c.WithTx(ctx, func(tx *client.Client[user]) error {
		_, err := tx.DeleteByID(ctx, 2)
		return err
	})
	require.ErrorContains(t, err, "locked")

	m.ExpectBegin()
	m.ExpectQuery("select count(*) from user where age > ?").
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(11)))
	m.ExpectQuery("select id, name, age from user where age > ? limit ?, ?").
		WithArgs(18, 0, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).AddRow(int64(1), "a", int64(20)))
	m.ExpectCommit()
	err = c.WithTx(ctx, func(tx *client.Client[user]) error {
		page, err := tx.LimitAll(ctx, assist.New(assist.AndGt("age", 18)).SetRowSize(10))
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), page.Pages)
		assert.Len(t, page.Data, 1)
		return nil
	})
	require.NoError(t, err)
}

type account struct {
	ID      uuid.UUID `db:"id,pk"`
	Email   *string   `db:"email"`
	Balance *int64    `db:"balance"`
}

func (account) TableName() string { return "accounts" }

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	drv, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer drv.Close()
	drv.DB().SetMaxOpenConns(1)
	require.NoError(t, drv.Exec(ctx, "create table accounts (id text primary key, email text unique, balance integer)", []any{}, nil))

	c, err := client.New[account](drv, client.WithRegistry(entity.NewRegistry()))
	require.NoError(t, err)

	a, b := uuid.New(), uuid.New()
	_, err = c.InsertNonEmpty(ctx, &account{ID: a, Email: ptr("a@x.io"), Balance: ptr[int64](10)})
	require.NoError(t, err)
	_, err = c.InsertAllReturnID(ctx, &account{ID: b, Email: ptr("b@x.io")})
	require.NoError(t, err)

	_, err = c.InsertNonEmpty(ctx, &account{ID: uuid.New(), Email: ptr("a@x.io")})
	require.True(t, sqlassist.IsConstraintError(err), "unique email: %v", err)

	row, err := c.SelectByID(ctx, a, "", "")
	require.NoError(t, err)
	assert.Equal(t, a.String(), row["id"])
	assert.Equal(t, int64(10), row["balance"])

	_, err = c.UpsertNonEmpty(ctx, &account{ID: b, Balance: ptr[int64](5)}, "")
	require.NoError(t, err)
	row, err = c.SelectSingleByObj(ctx, &account{ID: b}, "balance", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), row["balance"])

	_, err = c.Replace(ctx, &account{ID: b, Email: ptr("c@x.io")})
	require.NoError(t, err)
	row, err = c.SelectByID(ctx, b, "email, balance", "")
	require.NoError(t, err)
	assert.Equal(t, "c@x.io", row["email"])
	assert.Nil(t, row["balance"])

	_, err = c.UpdateSetNullByID(ctx, a, "balance")
	require.NoError(t, err)
	ok, err := c.Exists(ctx, assist.New(assist.AndIsNull("balance")))
	require.NoError(t, err)
	assert.True(t, ok)

	err = c.WithTx(ctx, func(tx *client.Client[account]) error {
		_, err := tx.InsertBatch(ctx, []*account{
			{ID: uuid.New(), Email: ptr("d@x.io"), Balance: ptr[int64](1)},
			{ID: uuid.New(), Email: ptr("e@x.io"), Balance: ptr[int64](2)},
		})
		return err
	})
	require.NoError(t, err)

	page, err := c.LimitAll(ctx, assist.New().SetOrders(assist.Asc("email")).SetRowSize(3).SetPage(2))
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Totals)
	assert.Equal(t, int64(2), page.Pages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "e@x.io", page.Data[0]["email"])

	n, err := c.DeleteByAssist(ctx, assist.New(assist.AndLike("email", "%@x.io")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	n, err = c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
