package statement

import "github.com/syssam/sqlassist/dialect"

// sqlite shares the PostgreSQL pagination and conflict syntax. Generated
// keys are read from the driver.
type sqlite struct{}

func (sqlite) name() string { return dialect.SQLite }

func (sqlite) paginate(q *query, start, size int) { limitOffset(q, start, size) }

func (sqlite) limitOne(q *query, where string, args []any) {
	q.Where(where, args)
	q.WriteString(" limit 1")
}

func (sqlite) upsert(q *query, columns []string, dupCol string) bool {
	onConflict(q, columns, dupCol)
	return true
}

func (sqlite) returning(*query, string) (string, bool) { return "", true }

func (sqlite) replace() (string, bool) { return "insert or replace into", true }

func (sqlite) batch() bool { return true }
