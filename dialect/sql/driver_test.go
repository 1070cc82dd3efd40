package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlassist"
	"github.com/syssam/sqlassist/dialect"
)

func TestOpenDB(t *testing.T) {
	for _, d := range dialect.Dialects {
		t.Run(d, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(d, db)
			assert.NotNil(t, drv)
			assert.Equal(t, d, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestOpen(t *testing.T) {
	_, err := Open("mssql", "")
	require.Error(t, err)

	// No driver is registered under this name in tests.
	_, err = Open("godror", "user/pass@db")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{dialect.MySQL, "select * from user where id = ?", "select * from user where id = ?"},
		{dialect.SQLite, "select * from user where id = ?", "select * from user where id = ?"},
		{dialect.Postgres, "select * from user", "select * from user"},
		{dialect.Postgres, "update user set name = ?, age = ? where id = ?", "update user set name = $1, age = $2 where id = $3"},
		{dialect.Postgres, "select '?' as q, \"a?\" from t where x = ? and y = 'it''s ?' and z = ?", "select '?' as q, \"a?\" from t where x = $1 and y = 'it''s ?' and z = $2"},
		{dialect.Oracle, "select * from t where a = ? and b in (?, ?)", "select * from t where a = :1 and b in (:2, :3)"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.in))
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("simple_query", func(t *testing.T) {
		mock.ExpectQuery("select id, name from user").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "Alice").
				AddRow(int64(2), "Bob"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "select id, name from user", []any{}, rows)
		require.NoError(t, err)
		maps, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{
			{"id": int64(1), "name": "Alice"},
			{"id": int64(2), "name": "Bob"},
		}, maps)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rebound_args", func(t *testing.T) {
		mock.ExpectQuery(`select name from user where id = \$1 and age > \$2`).
			WithArgs(1, 18).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("Alice")))

		rows := &Rows{}
		err := drv.Query(context.Background(), "select name from user where id = ? and age > ?", []any{1, 18}, rows)
		require.NoError(t, err)
		maps, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Equal(t, "Alice", maps[0]["name"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("select").WillReturnError(errors.New("database error"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "select", []any{}, rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dialect/sql: query")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_types", func(t *testing.T) {
		require.Error(t, drv.Query(context.Background(), "select", []any{}, nil))
		require.Error(t, drv.Query(context.Background(), "select", 1, &Rows{}))
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.MySQL, db)

	t.Run("result", func(t *testing.T) {
		mock.ExpectExec(`insert into user \(name\) values \(\?\)`).
			WithArgs("Alice").
			WillReturnResult(sqlmock.NewResult(7, 1))

		var res Result
		err := drv.Exec(context.Background(), "insert into user (name) values (?)", []any{"Alice"}, &res)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil_result", func(t *testing.T) {
		mock.ExpectExec("delete from user").WillReturnResult(sqlmock.NewResult(0, 3))
		require.NoError(t, drv.Exec(context.Background(), "delete from user", []any{}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("constraint_error", func(t *testing.T) {
		mock.ExpectExec("insert").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'tom' for key 'name'"})

		err := drv.Exec(context.Background(), "insert into user (name) values (?)", []any{"tom"}, nil)
		require.Error(t, err)
		assert.True(t, sqlassist.IsConstraintError(err))
		var ce *sqlassist.ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, sqlassist.UniqueConstraint, ce.Kind)
		var me *mysql.MySQLError
		require.ErrorAs(t, err, &me)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_types", func(t *testing.T) {
		require.Error(t, drv.Exec(context.Background(), "delete", []any{}, new(int)))
		require.Error(t, drv.Exec(context.Background(), "delete", "x", nil))
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`insert into user \(name\) values \(\$1\)`).WithArgs("tom").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "insert into user (name) values (?)", []any{"tom"}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("insert into user").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "insert into user (name) values ('x')", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("no connection"))
		_, err := drv.Tx(context.Background())
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("select").WillDelayFor(time.Second).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	err = drv.Query(ctx, "select 1", []any{}, &Rows{})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind sqlassist.ConstraintKind
		ok   bool
	}{
		{"mysql_unique", &mysql.MySQLError{Number: 1062}, sqlassist.UniqueConstraint, true},
		{"mysql_fk_parent", &mysql.MySQLError{Number: 1451}, sqlassist.ForeignKeyConstraint, true},
		{"mysql_fk_child", &mysql.MySQLError{Number: 1452}, sqlassist.ForeignKeyConstraint, true},
		{"mysql_check", &mysql.MySQLError{Number: 3819}, sqlassist.CheckConstraint, true},
		{"mysql_other", &mysql.MySQLError{Number: 1146}, "", false},
		{"pq_unique", &pq.Error{Code: "23505"}, sqlassist.UniqueConstraint, true},
		{"pq_fk", &pq.Error{Code: "23503"}, sqlassist.ForeignKeyConstraint, true},
		{"pq_check", &pq.Error{Code: "23514"}, sqlassist.CheckConstraint, true},
		{"pq_other", &pq.Error{Code: "42P01"}, "", false},
		{"wrapped_pq", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), sqlassist.UniqueConstraint, true},
		{"sqlite_message", errors.New("constraint failed: UNIQUE constraint failed: user.name (2067)"), sqlassist.UniqueConstraint, true},
		{"sqlite_fk_message", errors.New("FOREIGN KEY constraint failed"), sqlassist.ForeignKeyConstraint, true},
		{"oracle_check_message", errors.New("ORA-02290: check constraint violated"), sqlassist.CheckConstraint, true},
		{"other", errors.New("connection refused"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ConstraintKind(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)

			err := Classify(tt.err)
			assert.Equal(t, tt.ok, sqlassist.IsConstraintError(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, Classify(nil))
	ce := sqlassist.NewConstraintError(sqlassist.CheckConstraint, errors.New("x"))
	assert.Same(t, ce, Classify(ce))
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var (
		mu   sync.Mutex
		slow []string
	)
	drv := NewStatsDriver(OpenDB(dialect.MySQL, db),
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, dialect.MySQL, drv.Dialect())

	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("delete from user").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from role").WillReturnError(errors.New("boom"))

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "select 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, drv.Exec(context.Background(), "delete from user", []any{}, nil))
	require.Error(t, drv.Exec(context.Background(), "delete from role", []any{}, nil))

	s := drv.QueryStats().Snapshot()
	assert.Equal(t, int64(1), s.Queries)
	assert.Equal(t, int64(2), s.Execs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.Slow)
	assert.Equal(t, []string{"select 1", "delete from user", "delete from role"}, slow)
	assert.Contains(t, s.String(), "queries=1 execs=2")
	require.NoError(t, mock.ExpectationsWereMet())

	t.Run("SetSlowThreshold", func(t *testing.T) {
		drv.SetSlowThreshold(time.Hour)
		assert.Equal(t, time.Hour, drv.SlowThreshold())
		mock.ExpectExec("delete from user").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, drv.Exec(context.Background(), "delete from user", []any{}, nil))
		assert.Equal(t, int64(3), drv.QueryStats().Snapshot().Slow)
	})

	t.Run("Tx", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("update user").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "update user set name = null", []any{}, nil))
		require.NoError(t, tx.Commit())
		assert.Equal(t, int64(4), drv.QueryStats().Snapshot().Execs)
	})

	t.Run("Reset", func(t *testing.T) {
		drv.QueryStats().Reset()
		assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Snapshot())
		assert.Zero(t, StatsSnapshot{}.Avg())
	})
}

func TestSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithSlowThreshold(-1), WithSlowQueryLog(logger))
	mock.ExpectExec("delete from user").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "delete from user where id = ?", []any{1}, nil))
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "delete from user where id = ?")
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logged []string
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), DebugWithLog(func(_ context.Context, v ...any) {
		logged = append(logged, fmt.Sprint(v...))
	}))

	mock.ExpectQuery(`select 1 where 1 = \$1`).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("delete").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "select 1 where 1 = ?", []any{1}, rows))
	require.NoError(t, rows.Close())
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "delete from user", []any{}, nil))
	require.NoError(t, tx.Rollback())

	assert.Equal(t, []string{
		"driver.Query: query=select 1 where 1 = ? args=[1]",
		"driver.Tx: started",
		"Tx.Exec: query=delete from user args=[]",
		"Tx.Rollback",
	}, logged)
	require.NoError(t, mock.ExpectationsWereMet())
}
