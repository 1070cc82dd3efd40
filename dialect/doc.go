// Package dialect names the supported database dialects and defines the
// executor interfaces the statement client talks to.
//
// # Supported Dialects
//
//   - MySQL: MySQL/MariaDB database
//   - Postgres: PostgreSQL database
//   - SQLite: SQLite database
//   - Oracle: Oracle database (row-number windowing pagination, no upsert)
//
// Each dialect is identified by a constant string:
//
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//	dialect.Oracle   = "oracle"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface adds Commit and Rollback. Both Driver and Tx satisfy
// ExecQuerier, which is all the client package needs to run a statement.
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, statistics and debug wrappers
package dialect
