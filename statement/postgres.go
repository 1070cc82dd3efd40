package statement

import "github.com/syssam/sqlassist/dialect"

// postgres paginates with "limit count offset start", upserts with
// "on conflict" and returns generated keys with "returning".
type postgres struct{}

func (postgres) name() string { return dialect.Postgres }

func (postgres) paginate(q *query, start, size int) { limitOffset(q, start, size) }

func (postgres) limitOne(q *query, where string, args []any) {
	q.Where(where, args)
	q.WriteString(" limit 1")
}

func (postgres) upsert(q *query, columns []string, dupCol string) bool {
	onConflict(q, columns, dupCol)
	return true
}

func (postgres) returning(q *query, pk string) (string, bool) {
	q.WriteString(" returning " + pk)
	return pk, true
}

func (postgres) replace() (string, bool) { return "", false }

func (postgres) batch() bool { return true }

func limitOffset(q *query, start, size int) {
	q.WriteString(" limit ? offset ?")
	q.Arg(size, start)
}

// onConflict writes the conflict clause shared by PostgreSQL and SQLite.
func onConflict(q *query, columns []string, dupCol string) {
	q.WriteString(" on conflict (" + dupCol + ") do ")
	n := 0
	for _, c := range columns {
		if c == dupCol {
			continue
		}
		if n == 0 {
			q.WriteString("update set ")
		} else {
			q.WriteString(", ")
		}
		q.WriteString(c + " = excluded." + c)
		n++
	}
	if n == 0 {
		q.WriteString("nothing")
	}
}
