package dialect

import (
	"context"
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
	Oracle   = "oracle"
)

// Dialects lists every supported dialect name.
var Dialects = []string{MySQL, Postgres, SQLite, Oracle}

// Normalize maps common aliases to a dialect name.
func Normalize(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MySQL, "mariadb":
		return MySQL, nil
	case Postgres, "postgresql", "pgx":
		return Postgres, nil
	case SQLite, "sqlite3":
		return SQLite, nil
	case Oracle, "godror", "oci8":
		return Oracle, nil
	}
	return "", fmt.Errorf("dialect: unsupported dialect %q", name)
}

// Placeholders returns the byte offsets of the "?" placeholders in query.
// A "?" inside a quoted span, delimited by ', " or `, is literal text.
func Placeholders(query string) []int {
	var (
		offsets []int
		quote   byte
	)
	for i := 0; i < len(query); i++ {
		switch ch := query[i]; {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '?':
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for executing
// generated statements.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
