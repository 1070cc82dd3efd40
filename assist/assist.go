// Package assist holds the query-shaping options consumed by the statement
// builders: the WHERE condition list and the Assist descriptor carrying
// distinct, grouping, having, ordering, result columns, join and pagination.
//
// Assist values are plain data. They are not safe for concurrent mutation,
// but a fully built Assist may be shared by any number of readers.
package assist

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/sqlassist/entity"
)

// Assist is the query shaping descriptor.
type Assist struct {
	distinct        bool
	groupBy         string
	having          string
	havingValues    []any
	order           string
	page            *int
	startRow        *int
	rowSize         *int
	resultColumns   string
	joinOrReference string
	conditions      *Conditions
	custom          any
}

// New returns an Assist holding the given conditions.
func New(cs ...Condition) *Assist {
	a := &Assist{}
	if len(cs) > 0 {
		a.conditions = NewConditions(cs...)
	}
	return a
}

// FromRecord returns an Assist whose conditions are AND-equals over every
// non-absent value of the record, in record order.
func FromRecord(r entity.Record) *Assist {
	a := &Assist{}
	for _, f := range r.NonEmpty() {
		a.AndEq(f.Column, f.Value)
	}
	return a
}

// Clone returns a deep copy of the descriptor. The custom value is shared.
func (a *Assist) Clone() *Assist {
	if a == nil {
		return nil
	}
	c := *a
	c.havingValues = slices.Clone(a.havingValues)
	c.page = cloneInt(a.page)
	c.startRow = cloneInt(a.startRow)
	c.rowSize = cloneInt(a.rowSize)
	c.conditions = a.conditions.Clone()
	return &c
}

// SetDistinct toggles "select distinct".
func (a *Assist) SetDistinct(distinct bool) *Assist {
	a.distinct = distinct
	return a
}

// Distinct reports whether the selection is distinct.
func (a *Assist) Distinct() bool { return a.distinct }

// SetGroupBy sets the grouping columns, e.g. "type, status".
func (a *Assist) SetGroupBy(groupBy string) *Assist {
	a.groupBy = groupBy
	return a
}

// GroupBy returns the grouping columns.
func (a *Assist) GroupBy() string { return a.groupBy }

// SetHaving sets the HAVING expression and its parameters. It panics when
// the number of placeholders does not match the number of values.
func (a *Assist) SetHaving(having string, values ...any) *Assist {
	if n := countPlaceholders(having); n != len(values) {
		panic(fmt.Sprintf("assist: having %q has %d placeholders for %d values", having, n, len(values)))
	}
	a.having = having
	a.havingValues = nil
	if len(values) > 0 {
		a.havingValues = append([]any(nil), values...)
	}
	return a
}

// Having returns the HAVING expression and its parameters.
func (a *Assist) Having() (string, []any) { return a.having, a.havingValues }

// Asc returns an ascending order term.
func Asc(column string) string { return column + " asc" }

// Desc returns a descending order term.
func Desc(column string) string { return column + " desc" }

// SetOrders appends order terms, e.g. SetOrders(assist.Asc("id"), assist.Desc("age")).
// Calling it without terms clears the ordering.
func (a *Assist) SetOrders(orders ...string) *Assist {
	if len(orders) == 0 {
		a.order = ""
		return a
	}
	terms := make([]string, 0, len(orders)+1)
	if a.order != "" {
		terms = append(terms, a.order)
	}
	for _, o := range orders {
		if o = strings.TrimSpace(o); o != "" {
			terms = append(terms, o)
		}
	}
	a.order = strings.Join(terms, ", ")
	return a
}

// Order returns the ORDER BY terms without the keyword.
func (a *Assist) Order() string { return a.order }

// SetPage sets the 1-based page number. It is converted to a start row by
// pagination-aware consumers when no start row was set explicitly.
func (a *Assist) SetPage(page int) *Assist {
	a.page = &page
	return a
}

// Page returns the page number, if set.
func (a *Assist) Page() (int, bool) { return deref(a.page) }

// SetStartRow sets the number of rows to skip.
func (a *Assist) SetStartRow(startRow int) *Assist {
	a.startRow = &startRow
	return a
}

// StartRow returns the explicit start row, if set.
func (a *Assist) StartRow() (int, bool) { return deref(a.startRow) }

// SetRowSize sets the number of rows to fetch.
func (a *Assist) SetRowSize(rowSize int) *Assist {
	a.rowSize = &rowSize
	return a
}

// RowSize returns the row size, if set.
func (a *Assist) RowSize() (int, bool) { return deref(a.rowSize) }

// Window returns the resolved pagination window. It reports false when no
// row size is set. An explicit start row always wins; otherwise the start
// row is derived from the page as (page-1) * rowSize.
func (a *Assist) Window() (start, size int, ok bool) {
	if a == nil || a.rowSize == nil {
		return 0, 0, false
	}
	size = *a.rowSize
	switch {
	case a.startRow != nil:
		start = *a.startRow
	case a.page != nil && *a.page > 1:
		start = (*a.page - 1) * size
	}
	return max(start, 0), size, true
}

// SetResultColumns overrides the selected columns, e.g. "id, name as title".
func (a *Assist) SetResultColumns(columns string) *Assist {
	a.resultColumns = columns
	return a
}

// ResultColumns returns the result column override.
func (a *Assist) ResultColumns() string { return a.resultColumns }

// SetJoinOrReference sets a join or multi-table fragment placed after the
// table name, e.g. "as u inner join roles as r on u.rid = r.id". The fragment
// must not bind parameters.
func (a *Assist) SetJoinOrReference(join string) *Assist {
	a.joinOrReference = join
	return a
}

// JoinOrReference returns the join fragment.
func (a *Assist) JoinOrReference() string { return a.joinOrReference }

// SetCustom stores an opaque value that travels with the descriptor.
func (a *Assist) SetCustom(v any) *Assist {
	a.custom = v
	return a
}

// Custom returns the opaque value.
func (a *Assist) Custom() any { return a.custom }

// Conditions returns the condition list, or nil when none was set.
func (a *Assist) Conditions() *Conditions {
	if a == nil {
		return nil
	}
	return a.conditions
}

// SetConditions appends conditions.
func (a *Assist) SetConditions(cs ...Condition) *Assist {
	if a.conditions == nil {
		a.conditions = &Conditions{}
	}
	a.conditions.Add(cs...)
	return a
}

// And appends a raw condition without parameters.
func (a *Assist) And(expr string) *Assist { return a.SetConditions(And(expr)) }

// Or appends a raw condition without parameters.
func (a *Assist) Or(expr string) *Assist { return a.SetConditions(Or(expr)) }

// AndEq appends "and column = ?".
func (a *Assist) AndEq(column string, value any) *Assist {
	return a.SetConditions(AndEq(column, value))
}

// OrEq appends "or column = ?".
func (a *Assist) OrEq(column string, value any) *Assist {
	return a.SetConditions(OrEq(column, value))
}

// AndNeq appends "and column <> ?".
func (a *Assist) AndNeq(column string, value any) *Assist {
	return a.SetConditions(AndNeq(column, value))
}

// OrNeq appends "or column <> ?".
func (a *Assist) OrNeq(column string, value any) *Assist {
	return a.SetConditions(OrNeq(column, value))
}

// AndLt appends "and column < ?".
func (a *Assist) AndLt(column string, value any) *Assist {
	return a.SetConditions(AndLt(column, value))
}

// OrLt appends "or column < ?".
func (a *Assist) OrLt(column string, value any) *Assist {
	return a.SetConditions(OrLt(column, value))
}

// AndLte appends "and column <= ?".
func (a *Assist) AndLte(column string, value any) *Assist {
	return a.SetConditions(AndLte(column, value))
}

// OrLte appends "or column <= ?".
func (a *Assist) OrLte(column string, value any) *Assist {
	return a.SetConditions(OrLte(column, value))
}

// AndGt appends "and column > ?".
func (a *Assist) AndGt(column string, value any) *Assist {
	return a.SetConditions(AndGt(column, value))
}

// OrGt appends "or column > ?".
func (a *Assist) OrGt(column string, value any) *Assist {
	return a.SetConditions(OrGt(column, value))
}

// AndGte appends "and column >= ?".
func (a *Assist) AndGte(column string, value any) *Assist {
	return a.SetConditions(AndGte(column, value))
}

// OrGte appends "or column >= ?".
func (a *Assist) OrGte(column string, value any) *Assist {
	return a.SetConditions(OrGte(column, value))
}

// AndLike appends "and column like ?".
func (a *Assist) AndLike(column string, value any) *Assist {
	return a.SetConditions(AndLike(column, value))
}

// OrLike appends "or column like ?".
func (a *Assist) OrLike(column string, value any) *Assist {
	return a.SetConditions(OrLike(column, value))
}

// AndNotLike appends "and column not like ?".
func (a *Assist) AndNotLike(column string, value any) *Assist {
	return a.SetConditions(AndNotLike(column, value))
}

// OrNotLike appends "or column not like ?".
func (a *Assist) OrNotLike(column string, value any) *Assist {
	return a.SetConditions(OrNotLike(column, value))
}

// AndIn appends "and column in (?, ...)".
func (a *Assist) AndIn(column string, values ...any) *Assist {
	return a.SetConditions(AndIn(column, values...))
}

// OrIn appends "or column in (?, ...)".
func (a *Assist) OrIn(column string, values ...any) *Assist {
	return a.SetConditions(OrIn(column, values...))
}

// AndNotIn appends "and column not in (?, ...)".
func (a *Assist) AndNotIn(column string, values ...any) *Assist {
	return a.SetConditions(AndNotIn(column, values...))
}

// OrNotIn appends "or column not in (?, ...)".
func (a *Assist) OrNotIn(column string, values ...any) *Assist {
	return a.SetConditions(OrNotIn(column, values...))
}

// AndIsNull appends "and column is null".
func (a *Assist) AndIsNull(column string) *Assist { return a.SetConditions(AndIsNull(column)) }

// OrIsNull appends "or column is null".
func (a *Assist) OrIsNull(column string) *Assist { return a.SetConditions(OrIsNull(column)) }

// AndIsNotNull appends "and column is not null".
func (a *Assist) AndIsNotNull(column string) *Assist { return a.SetConditions(AndIsNotNull(column)) }

// OrIsNotNull appends "or column is not null".
func (a *Assist) OrIsNotNull(column string) *Assist { return a.SetConditions(OrIsNotNull(column)) }

// CustomCondition appends a caller-written condition, see Custom.
func (a *Assist) CustomCondition(fragment string, values ...any) *Assist {
	return a.SetConditions(Custom(fragment, values...))
}

// String returns a debug representation of the descriptor.
func (a *Assist) String() string {
	where, args := a.conditions.Where()
	return fmt.Sprintf("Assist(distinct=%t, where=%q, args=%v, groupBy=%q, having=%q, order=%q, window=%s)",
		a.distinct, where, args, a.groupBy, a.having, a.order, a.windowString())
}

func (a *Assist) windowString() string {
	start, size, ok := a.Window()
	if !ok {
		return "none"
	}
	return fmt.Sprintf("[%d,+%d]", start, size)
}

func deref(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
