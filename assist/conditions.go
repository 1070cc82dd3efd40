package assist

import (
	"slices"
	"strings"
)

// Conditions is an ordered list of predicates forming a WHERE clause.
// The first stored condition never carries a connector keyword.
type Conditions struct {
	nodes []Condition
}

// NewConditions returns a list holding the given conditions.
func NewConditions(cs ...Condition) *Conditions {
	return new(Conditions).Add(cs...)
}

// Add appends conditions to the list. The connector keyword of the first
// condition of an empty list is stripped before it is stored.
func (l *Conditions) Add(cs ...Condition) *Conditions {
	for _, c := range cs {
		if len(l.nodes) == 0 {
			c = c.stripConnector()
		}
		l.nodes = append(l.nodes, c)
	}
	return l
}

// Len returns the number of conditions.
func (l *Conditions) Len() int {
	if l == nil {
		return 0
	}
	return len(l.nodes)
}

// Nodes returns a copy of the conditions in order.
func (l *Conditions) Nodes() []Condition {
	if l == nil {
		return nil
	}
	return slices.Clone(l.nodes)
}

// Clone returns a copy of the list.
func (l *Conditions) Clone() *Conditions {
	if l == nil {
		return nil
	}
	return &Conditions{nodes: slices.Clone(l.nodes)}
}

// Where renders the predicates without the WHERE keyword, together with
// their parameters in placeholder order.
func (l *Conditions) Where() (string, []any) {
	if l.Len() == 0 {
		return "", nil
	}
	var (
		b    strings.Builder
		args []any
	)
	for i, c := range l.nodes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Require)
		args = append(args, c.Args()...)
	}
	return b.String(), args
}

// And appends a raw condition without parameters.
func (l *Conditions) And(expr string) *Conditions { return l.Add(And(expr)) }

// Or appends a raw condition without parameters.
func (l *Conditions) Or(expr string) *Conditions { return l.Add(Or(expr)) }

// AndEq appends "and column = ?".
func (l *Conditions) AndEq(column string, value any) *Conditions {
	return l.Add(AndEq(column, value))
}

// OrEq appends "or column = ?".
func (l *Conditions) OrEq(column string, value any) *Conditions {
	return l.Add(OrEq(column, value))
}

// AndNeq appends "and column <> ?".
func (l *Conditions) AndNeq(column string, value any) *Conditions {
	return l.Add(AndNeq(column, value))
}

// OrNeq appends "or column <> ?".
func (l *Conditions) OrNeq(column string, value any) *Conditions {
	return l.Add(OrNeq(column, value))
}

// AndLt appends "and column < ?".
func (l *Conditions) AndLt(column string, value any) *Conditions {
	return l.Add(AndLt(column, value))
}

// OrLt appends "or column < ?".
func (l *Conditions) OrLt(column string, value any) *Conditions {
	return l.Add(OrLt(column, value))
}

// AndLte appends "and column <= ?".
func (l *Conditions) AndLte(column string, value any) *Conditions {
	return l.Add(AndLte(column, value))
}

// OrLte appends "or column <= ?".
func (l *Conditions) OrLte(column string, value any) *Conditions {
	return l.Add(OrLte(column, value))
}

// AndGt appends "and column > ?".
func (l *Conditions) AndGt(column string, value any) *Conditions {
	return l.Add(AndGt(column, value))
}

// OrGt appends "or column > ?".
func (l *Conditions) OrGt(column string, value any) *Conditions {
	return l.Add(OrGt(column, value))
}

// AndGte appends "and column >= ?".
func (l *Conditions) AndGte(column string, value any) *Conditions {
	return l.Add(AndGte(column, value))
}

// OrGte appends "or column >= ?".
func (l *Conditions) OrGte(column string, value any) *Conditions {
	return l.Add(OrGte(column, value))
}

// AndLike appends "and column like ?".
func (l *Conditions) AndLike(column string, value any) *Conditions {
	return l.Add(AndLike(column, value))
}

// OrLike appends "or column like ?".
func (l *Conditions) OrLike(column string, value any) *Conditions {
	return l.Add(OrLike(column, value))
}

// AndNotLike appends "and column not like ?".
func (l *Conditions) AndNotLike(column string, value any) *Conditions {
	return l.Add(AndNotLike(column, value))
}

// OrNotLike appends "or column not like ?".
func (l *Conditions) OrNotLike(column string, value any) *Conditions {
	return l.Add(OrNotLike(column, value))
}

// AndIn appends "and column in (?, ...)".
func (l *Conditions) AndIn(column string, values ...any) *Conditions {
	return l.Add(AndIn(column, values...))
}

// OrIn appends "or column in (?, ...)".
func (l *Conditions) OrIn(column string, values ...any) *Conditions {
	return l.Add(OrIn(column, values...))
}

// AndNotIn appends "and column not in (?, ...)".
func (l *Conditions) AndNotIn(column string, values ...any) *Conditions {
	return l.Add(AndNotIn(column, values...))
}

// OrNotIn appends "or column not in (?, ...)".
func (l *Conditions) OrNotIn(column string, values ...any) *Conditions {
	return l.Add(OrNotIn(column, values...))
}

// AndIsNull appends "and column is null".
func (l *Conditions) AndIsNull(column string) *Conditions { return l.Add(AndIsNull(column)) }

// OrIsNull appends "or column is null".
func (l *Conditions) OrIsNull(column string) *Conditions { return l.Add(OrIsNull(column)) }

// AndIsNotNull appends "and column is not null".
func (l *Conditions) AndIsNotNull(column string) *Conditions { return l.Add(AndIsNotNull(column)) }

// OrIsNotNull appends "or column is not null".
func (l *Conditions) OrIsNotNull(column string) *Conditions { return l.Add(OrIsNotNull(column)) }

// CustomCondition appends a caller-written condition, see Custom.
func (l *Conditions) CustomCondition(fragment string, values ...any) *Conditions {
	return l.Add(Custom(fragment, values...))
}
