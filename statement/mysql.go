package statement

import "github.com/syssam/sqlassist/dialect"

// mysql paginates with "limit offset, count" and upserts with
// "on duplicate key update".
type mysql struct{}

func (mysql) name() string { return dialect.MySQL }

func (mysql) paginate(q *query, start, size int) {
	q.WriteString(" limit ?, ?")
	q.Arg(start, size)
}

func (mysql) limitOne(q *query, where string, args []any) {
	q.Where(where, args)
	q.WriteString(" limit 1")
}

func (mysql) upsert(q *query, columns []string, dupCol string) bool {
	q.WriteString(" on duplicate key update ")
	n := 0
	for _, c := range columns {
		if c == dupCol {
			continue
		}
		if n > 0 {
			q.WriteString(", ")
		}
		q.WriteString(c + " = values(" + c + ")")
		n++
	}
	if n == 0 {
		// Nothing to update, keep the existing row.
		q.WriteString(dupCol + " = " + dupCol)
	}
	return true
}

func (mysql) returning(*query, string) (string, bool) { return "", true }

func (mysql) replace() (string, bool) { return "replace into", true }

func (mysql) batch() bool { return true }
