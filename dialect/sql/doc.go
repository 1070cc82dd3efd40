// Package sql executes generated statements over database/sql.
//
// Statements are produced with "?" placeholders for every dialect. Conn
// rebinds them to the positional form the driver expects before executing:
//
//	sql.Rebind(dialect.Postgres, "select * from user where id = ? and age > ?")
//	// select * from user where id = $1 and age > $2
//
// # Drivers
//
// Driver implements dialect.Driver on top of a *sql.DB. It may be wrapped by
// StatsDriver, which counts statements and reports slow ones, and by
// DebugDriver, which logs every statement:
//
//	drv, err := sql.Open("mysql", dsn)
//	if err != nil {
//		return err
//	}
//	sd := sql.NewStatsDriver(sql.NewDebugDriver(drv), sql.WithSlowQueryLog(nil))
//
// # Errors
//
// Constraint violations reported by the MySQL, PostgreSQL and SQLite drivers
// are wrapped in *sqlassist.ConstraintError; the driver error stays reachable
// through errors.As.
package sql
