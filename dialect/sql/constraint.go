package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/syssam/sqlassist"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451 // cannot delete or update a parent row
	mysqlForeignKeyChild  = 1452 // cannot add or update a child row
	mysqlCheckViolation   = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteCheck      = 275
	sqliteForeignKey = 787
	sqlitePrimaryKey = 1555
	sqliteUnique     = 2067
)

// Classify wraps err in a *sqlassist.ConstraintError when it reports a
// unique, foreign-key or check constraint violation. Other errors are
// returned unchanged.
func Classify(err error) error {
	if err == nil || sqlassist.IsConstraintError(err) {
		return err
	}
	if kind, ok := ConstraintKind(err); ok {
		return sqlassist.NewConstraintError(kind, err)
	}
	return err
}

// ConstraintKind reports the kind of constraint violated by a driver error.
func ConstraintKind(err error) (sqlassist.ConstraintKind, bool) {
	var (
		myErr *mysql.MySQLError
		pgErr *pq.Error
		liErr *sqlite.Error
	)
	switch {
	case errors.As(err, &myErr):
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return sqlassist.UniqueConstraint, true
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return sqlassist.ForeignKeyConstraint, true
		case mysqlCheckViolation:
			return sqlassist.CheckConstraint, true
		}
		return "", false
	case errors.As(err, &pgErr):
		switch string(pgErr.Code) {
		case pgUniqueViolation:
			return sqlassist.UniqueConstraint, true
		case pgForeignKeyViolation:
			return sqlassist.ForeignKeyConstraint, true
		case pgCheckViolation:
			return sqlassist.CheckConstraint, true
		}
		return "", false
	case errors.As(err, &liErr):
		switch liErr.Code() {
		case sqliteUnique, sqlitePrimaryKey:
			return sqlassist.UniqueConstraint, true
		case sqliteForeignKey:
			return sqlassist.ForeignKeyConstraint, true
		case sqliteCheck:
			return sqlassist.CheckConstraint, true
		}
	}
	// Drivers without typed errors.
	msg := err.Error()
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed", "ORA-00001"):
		return sqlassist.UniqueConstraint, true
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed", "ORA-02291", "ORA-02292"):
		return sqlassist.ForeignKeyConstraint, true
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed", "ORA-02290"):
		return sqlassist.CheckConstraint, true
	}
	return "", false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
