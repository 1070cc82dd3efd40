package statement

import "github.com/syssam/sqlassist/dialect"

// oracle has no offset/limit syntax: pages are cut by numbering the rows of
// the shaped query with ROWNUM and filtering twice.
type oracle struct{}

func (oracle) name() string { return dialect.Oracle }

// paginate binds the upper bound, then the lower bound, after every other
// parameter of the shaped query.
func (oracle) paginate(q *query, start, size int) {
	inner := q.String()
	q.Reset()
	q.WriteString("select * from ( select temp_table.*, ROWNUM AS tt_row_index from (")
	q.WriteString(inner)
	q.WriteString(") temp_table where ROWNUM <= ? ) tt_result_table where tt_result_table.tt_row_index > ?")
	q.Arg(start+size, start)
}

func (oracle) limitOne(q *query, where string, args []any) {
	if where == "" {
		q.WriteString(" where rownum <= 1")
		return
	}
	q.Where("("+where+") and rownum <= 1", args)
}

func (oracle) upsert(*query, []string, string) bool { return false }

func (oracle) returning(*query, string) (string, bool) { return "", false }

func (oracle) replace() (string, bool) { return "", false }

func (oracle) batch() bool { return false }
