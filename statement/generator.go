package statement

import (
	"strings"

	"github.com/syssam/sqlassist/assist"
	"github.com/syssam/sqlassist/entity"
)

// Generator is the Builder of one entity for one dialect.
type Generator struct {
	desc    *entity.Descriptor
	syntax  syntax
	columns []string // column names in declaration order
	pk      string   // primary-key column name, empty if none
	result  string   // default result columns
}

var _ Builder = (*Generator)(nil)

func newGenerator(d *entity.Descriptor, s syntax) *Generator {
	g := &Generator{desc: d, syntax: s}
	for _, c := range d.Columns() {
		g.columns = append(g.columns, c.Name)
	}
	if pk, ok := d.PrimaryKey(); ok {
		g.pk = pk.Name
	}
	g.result = strings.Join(g.columns, ", ")
	return g
}

// Dialect returns the dialect name.
func (g *Generator) Dialect() string { return g.syntax.name() }

// Descriptor returns the entity descriptor.
func (g *Generator) Descriptor() *entity.Descriptor { return g.desc }

// query accumulates statement text and parameters.
type query struct {
	strings.Builder
	args []any
}

// Arg appends parameters.
func (q *query) Arg(args ...any) *query {
	q.args = append(q.args, args...)
	return q
}

// Join writes the strings separated by sep.
func (q *query) Join(sep string, ss []string) *query {
	q.WriteString(strings.Join(ss, sep))
	return q
}

// Where writes the WHERE clause of a non-empty predicate.
func (q *query) Where(where string, args []any) *query {
	if where != "" {
		q.WriteString(" where ")
		q.WriteString(where)
		q.Arg(args...)
	}
	return q
}

func (q *query) done() Executable { return executable(q.String(), q.args) }

// resultColumns returns the override, or every column of the entity.
func (g *Generator) resultColumns(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return g.result
}

// from writes "<table>[ <join>]".
func (g *Generator) from(q *query, join string) {
	q.WriteString(g.desc.Table())
	if join = strings.TrimSpace(join); join != "" {
		q.WriteByte(' ')
		q.WriteString(join)
	}
}

// CountSQL implements Builder.
func (g *Generator) CountSQL(a *assist.Assist) Result {
	q := &query{}
	q.WriteString("select count(*) from ")
	g.from(q, joinOf(a))
	q.Where(a.Conditions().Where())
	return q.done()
}

// ExistSQL implements Builder.
func (g *Generator) ExistSQL(a *assist.Assist) Result {
	q := &query{}
	q.WriteString("select 1 from ")
	g.from(q, joinOf(a))
	where, args := a.Conditions().Where()
	g.syntax.limitOne(q, where, args)
	return q.done()
}

// SelectAllSQL implements Builder.
func (g *Generator) SelectAllSQL(a *assist.Assist) Result {
	q := &query{}
	g.shaped(q, a)
	if start, size, ok := a.Window(); ok {
		g.syntax.paginate(q, start, size)
	}
	return q.done()
}

// shaped writes the select of a without its pagination window.
func (g *Generator) shaped(q *query, a *assist.Assist) {
	if a == nil {
		a = assist.New()
	}
	q.WriteString("select ")
	if a.Distinct() {
		q.WriteString("distinct ")
	}
	q.WriteString(g.resultColumns(a.ResultColumns()))
	q.WriteString(" from ")
	g.from(q, a.JoinOrReference())
	q.Where(a.Conditions().Where())
	if gb := a.GroupBy(); gb != "" {
		q.WriteString(" group by ")
		q.WriteString(gb)
	}
	if having, args := a.Having(); having != "" {
		q.WriteString(" having ")
		q.WriteString(having)
		q.Arg(args...)
	}
	if order := a.Order(); order != "" {
		q.WriteString(" order by ")
		q.WriteString(order)
	}
}

// SelectByIDSQL implements Builder.
func (g *Generator) SelectByIDSQL(id any, resultColumns, join string) Result {
	if g.pk == "" || entity.ValueOf(id) == nil {
		return invalid(ReasonNoPrimaryKey)
	}
	q := &query{}
	q.WriteString("select ")
	q.WriteString(g.resultColumns(resultColumns))
	q.WriteString(" from ")
	g.from(q, join)
	q.Where(g.pk+" = ?", []any{entity.ValueOf(id)})
	return q.done()
}

// SelectByObjSQL implements Builder. Predicates appear in reverse column
// declaration order.
func (g *Generator) SelectByObjSQL(r entity.Record, resultColumns, join string, single bool) Result {
	conds := assist.NewConditions()
	fields := g.nonEmpty(r)
	for i := len(fields) - 1; i >= 0; i-- {
		conds.AndEq(fields[i].Column, fields[i].Value)
	}
	q := &query{}
	q.WriteString("select ")
	q.WriteString(g.resultColumns(resultColumns))
	q.WriteString(" from ")
	g.from(q, join)
	where, args := conds.Where()
	if single {
		g.syntax.limitOne(q, where, args)
	} else {
		q.Where(where, args)
	}
	return q.done()
}

// all returns every column of the entity with its value in r, absent
// values as nil.
func (g *Generator) all(r entity.Record) entity.Record {
	out := make(entity.Record, len(g.columns))
	for i, c := range g.columns {
		v, _ := r.Get(c)
		out[i] = entity.Field{Column: c, Value: entity.ValueOf(v)}
	}
	return out
}

// nonEmpty returns the columns of the entity with a non-absent value in r.
func (g *Generator) nonEmpty(r entity.Record) entity.Record {
	return g.all(r).NonEmpty()
}

func (g *Generator) insert(q *query, verb string, fields entity.Record) {
	q.WriteString(verb)
	q.WriteString(" ")
	q.WriteString(g.desc.Table())
	q.WriteString(" (")
	q.Join(", ", columnsOf(fields))
	q.WriteString(") values (")
	q.WriteString(marks(len(fields)))
	q.WriteString(")")
	for _, f := range fields {
		q.Arg(f.Value)
	}
}

// InsertAllSQL implements Builder.
func (g *Generator) InsertAllSQL(r entity.Record) Result {
	q := &query{}
	g.insert(q, "insert into", g.all(r))
	return q.done()
}

// InsertNonEmptySQL implements Builder.
func (g *Generator) InsertNonEmptySQL(r entity.Record) Result {
	fields := g.nonEmpty(r)
	if len(fields) == 0 {
		return invalid(ReasonNoColumns)
	}
	q := &query{}
	g.insert(q, "insert into", fields)
	return q.done()
}

// InsertAllReturnIDSQL implements Builder.
func (g *Generator) InsertAllReturnIDSQL(r entity.Record) Result {
	return g.returnID(g.InsertAllSQL(r))
}

// InsertNonEmptyReturnIDSQL implements Builder.
func (g *Generator) InsertNonEmptyReturnIDSQL(r entity.Record) Result {
	return g.returnID(g.InsertNonEmptySQL(r))
}

// returnID adds the returning clause of the dialect to an insert.
func (g *Generator) returnID(r Result) Result {
	e, ok := r.(Executable)
	if !ok {
		return r
	}
	if g.pk == "" {
		return invalid(ReasonNoPrimaryKey)
	}
	q := &query{args: e.Params}
	q.WriteString(e.SQL)
	column, ok := g.syntax.returning(q, g.pk)
	if !ok {
		return notImplemented(g.syntax.name(), "returning generated keys")
	}
	out := q.done()
	out.Returning = column
	return out
}

func (g *Generator) upsert(fields entity.Record, dupCol string) Result {
	if len(fields) == 0 {
		return invalid(ReasonNoColumns)
	}
	if dupCol = strings.TrimSpace(dupCol); dupCol == "" {
		dupCol = g.pk
	}
	if dupCol == "" {
		return invalid(ReasonNoConflictColumn)
	}
	q := &query{}
	g.insert(q, "insert into", fields)
	if !g.syntax.upsert(q, columnsOf(fields), dupCol) {
		return notImplemented(g.syntax.name(), "upsert")
	}
	return q.done()
}

// UpsertAllSQL implements Builder.
func (g *Generator) UpsertAllSQL(r entity.Record, dupCol string) Result {
	return g.upsert(g.all(r), dupCol)
}

// UpsertNonEmptySQL implements Builder.
func (g *Generator) UpsertNonEmptySQL(r entity.Record, dupCol string) Result {
	return g.upsert(g.nonEmpty(r), dupCol)
}

// UpsertAllReturnIDSQL implements Builder.
func (g *Generator) UpsertAllReturnIDSQL(r entity.Record, dupCol string) Result {
	return g.returnID(g.UpsertAllSQL(r, dupCol))
}

// UpsertNonEmptyReturnIDSQL implements Builder.
func (g *Generator) UpsertNonEmptyReturnIDSQL(r entity.Record, dupCol string) Result {
	return g.returnID(g.UpsertNonEmptySQL(r, dupCol))
}

// InsertBatchSQL implements Builder.
func (g *Generator) InsertBatchSQL(rs []entity.Record) Result {
	if !g.syntax.batch() {
		return notImplemented(g.syntax.name(), "batch insert")
	}
	if len(rs) == 0 {
		return invalid(ReasonNoRecords)
	}
	q := &query{}
	q.WriteString("insert into ")
	q.WriteString(g.desc.Table())
	q.WriteString(" (")
	q.Join(", ", g.columns)
	q.WriteString(") values ")
	row := "(" + marks(len(g.columns)) + ")"
	for i, r := range rs {
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteString(row)
		for _, f := range g.all(r) {
			q.Arg(f.Value)
		}
	}
	return q.done()
}

// ReplaceSQL implements Builder.
func (g *Generator) ReplaceSQL(r entity.Record) Result {
	verb, ok := g.syntax.replace()
	if !ok {
		return notImplemented(g.syntax.name(), "replace")
	}
	q := &query{}
	g.insert(q, verb, g.all(r))
	return q.done()
}

// set writes the SET clause over the non-key fields. It reports false when
// nothing is left to set.
func (g *Generator) set(q *query, fields entity.Record) bool {
	n := 0
	for _, f := range fields {
		if f.Column == g.pk {
			continue
		}
		if n == 0 {
			q.WriteString(" set ")
		} else {
			q.WriteString(", ")
		}
		q.WriteString(f.Column)
		q.WriteString(" = ?")
		q.Arg(f.Value)
		n++
	}
	return n > 0
}

func (g *Generator) updateByID(r entity.Record, fields entity.Record) Result {
	if g.pk == "" {
		return invalid(ReasonNoPrimaryKey)
	}
	id, _ := r.Get(g.pk)
	if id = entity.ValueOf(id); id == nil {
		return invalid(ReasonNoPrimaryKey)
	}
	q := &query{}
	q.WriteString("update ")
	q.WriteString(g.desc.Table())
	if !g.set(q, fields) {
		return invalid(ReasonNoColumns)
	}
	q.Where(g.pk+" = ?", []any{id})
	return q.done()
}

func (g *Generator) updateByAssist(fields entity.Record, a *assist.Assist) Result {
	if a.Conditions().Len() == 0 {
		return invalid(ReasonNoCondition)
	}
	q := &query{}
	q.WriteString("update ")
	q.WriteString(g.desc.Table())
	if !g.set(q, fields) {
		return invalid(ReasonNoColumns)
	}
	q.Where(a.Conditions().Where())
	return q.done()
}

// UpdateAllByIDSQL implements Builder.
func (g *Generator) UpdateAllByIDSQL(r entity.Record) Result {
	return g.updateByID(r, g.all(r))
}

// UpdateNonEmptyByIDSQL implements Builder.
func (g *Generator) UpdateNonEmptyByIDSQL(r entity.Record) Result {
	return g.updateByID(r, g.nonEmpty(r))
}

// UpdateAllByAssistSQL implements Builder.
func (g *Generator) UpdateAllByAssistSQL(r entity.Record, a *assist.Assist) Result {
	return g.updateByAssist(g.all(r), a)
}

// UpdateNonEmptyByAssistSQL implements Builder.
func (g *Generator) UpdateNonEmptyByAssistSQL(r entity.Record, a *assist.Assist) Result {
	return g.updateByAssist(g.nonEmpty(r), a)
}

func (g *Generator) setNull(q *query, columns []string) bool {
	n := 0
	for _, c := range columns {
		if c = strings.TrimSpace(c); c == "" {
			continue
		}
		if n == 0 {
			q.WriteString(" set ")
		} else {
			q.WriteString(", ")
		}
		q.WriteString(c)
		q.WriteString(" = null")
		n++
	}
	return n > 0
}

// UpdateSetNullByIDSQL implements Builder.
func (g *Generator) UpdateSetNullByIDSQL(id any, columns ...string) Result {
	if id = entity.ValueOf(id); g.pk == "" || id == nil {
		return invalid(ReasonNoPrimaryKey)
	}
	q := &query{}
	q.WriteString("update ")
	q.WriteString(g.desc.Table())
	if !g.setNull(q, columns) {
		return invalid(ReasonNoColumns)
	}
	q.Where(g.pk+" = ?", []any{id})
	return q.done()
}

// UpdateSetNullByAssistSQL implements Builder.
func (g *Generator) UpdateSetNullByAssistSQL(a *assist.Assist, columns ...string) Result {
	if a.Conditions().Len() == 0 {
		return invalid(ReasonNoCondition)
	}
	q := &query{}
	q.WriteString("update ")
	q.WriteString(g.desc.Table())
	if !g.setNull(q, columns) {
		return invalid(ReasonNoColumns)
	}
	q.Where(a.Conditions().Where())
	return q.done()
}

// DeleteByIDSQL implements Builder.
func (g *Generator) DeleteByIDSQL(id any) Result {
	if id = entity.ValueOf(id); g.pk == "" || id == nil {
		return invalid(ReasonNoPrimaryKey)
	}
	q := &query{}
	q.WriteString("delete from ")
	q.WriteString(g.desc.Table())
	q.Where(g.pk+" = ?", []any{id})
	return q.done()
}

// DeleteByAssistSQL implements Builder.
func (g *Generator) DeleteByAssistSQL(a *assist.Assist) Result {
	if a.Conditions().Len() == 0 {
		return invalid(ReasonNoCondition)
	}
	q := &query{}
	q.WriteString("delete from ")
	q.WriteString(g.desc.Table())
	q.Where(a.Conditions().Where())
	return q.done()
}

func joinOf(a *assist.Assist) string {
	if a == nil {
		return ""
	}
	return a.JoinOrReference()
}

func columnsOf(fields entity.Record) []string {
	cs := make([]string, len(fields))
	for i, f := range fields {
		cs[i] = f.Column
	}
	return cs
}

// marks returns n comma-separated placeholders.
func marks(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
