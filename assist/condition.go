package assist

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Connector joins a condition to the one before it.
type Connector int

// Connectors. ConnectorNone is only legal on the first condition of a list.
const (
	ConnectorNone Connector = iota
	ConnectorAnd
	ConnectorOr
)

// String returns the SQL keyword of the connector.
func (c Connector) String() string {
	switch c {
	case ConnectorAnd:
		return "and"
	case ConnectorOr:
		return "or"
	}
	return ""
}

// Condition is one predicate of a WHERE clause.
//
// Require holds the SQL fragment including its leading connector keyword,
// e.g. "and age = ?". It carries one placeholder when Value is set, one per
// element of Values when Values is set, and none otherwise.
type Condition struct {
	Connector Connector
	Require   string
	Value     any
	Values    []any
}

// Placeholders returns the number of parameters the condition binds.
func (c Condition) Placeholders() int {
	switch {
	case c.Value != nil:
		return 1
	case c.Values != nil:
		return len(c.Values)
	}
	return 0
}

// Args returns the parameters of the condition in placeholder order.
func (c Condition) Args() []any {
	switch {
	case c.Value != nil:
		return []any{c.Value}
	case c.Values != nil:
		return c.Values
	}
	return nil
}

func (c Condition) validate() error {
	if c.Value != nil && c.Values != nil {
		return fmt.Errorf("assist: condition %q has both a value and values", c.Require)
	}
	if n, want := countPlaceholders(c.Require), c.Placeholders(); n != want {
		return fmt.Errorf("assist: condition %q has %d placeholders for %d values", c.Require, n, want)
	}
	return nil
}

// stripConnector removes the leading connector keyword of the condition,
// making it usable as the first predicate of a WHERE clause.
func (c Condition) stripConnector() Condition {
	req := strings.TrimSpace(c.Require)
	if conn, rest := splitConnector(req); conn != ConnectorNone {
		req = rest
	}
	c.Connector = ConnectorNone
	c.Require = req
	return c
}

// splitConnector reports the leading "and"/"or" keyword of a fragment,
// compared case-insensitively, and the text after it. Any whitespace may
// follow the keyword.
func splitConnector(req string) (Connector, string) {
	i := strings.IndexFunc(req, unicode.IsSpace)
	if i < 0 {
		return ConnectorNone, req
	}
	var conn Connector
	switch cases.Fold().String(req[:i]) {
	case "and":
		conn = ConnectorAnd
	case "or":
		conn = ConnectorOr
	default:
		return ConnectorNone, req
	}
	return conn, strings.TrimLeftFunc(req[i:], unicode.IsSpace)
}

func newCondition(conn Connector, expr string, value any, values []any) Condition {
	c := Condition{
		Connector: conn,
		Require:   strings.TrimSpace(conn.String() + " " + expr),
		Value:     value,
		Values:    values,
	}
	if err := c.validate(); err != nil {
		panic(err)
	}
	return c
}

func compare(conn Connector, column, op string, value any) Condition {
	if value == nil {
		panic(fmt.Sprintf("assist: nil value for %s %s ?", column, op))
	}
	return newCondition(conn, column+" "+op+" ?", value, nil)
}

func eq(conn Connector, column string, value any) Condition {
	if value == nil {
		return newCondition(conn, column+" is null", nil, nil)
	}
	return compare(conn, column, "=", value)
}

func neq(conn Connector, column string, value any) Condition {
	if value == nil {
		return newCondition(conn, column+" is not null", nil, nil)
	}
	return compare(conn, column, "<>", value)
}

func in(conn Connector, column, op string, values []any) Condition {
	if len(values) == 0 {
		// An empty set matches nothing for IN and everything for NOT IN.
		if op == "in" {
			return newCondition(conn, "1 = 0", nil, nil)
		}
		return newCondition(conn, "1 = 1", nil, nil)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return newCondition(conn, column+" "+op+" ("+marks+")", nil, append([]any(nil), values...))
}

// And returns a raw condition without parameters, e.g. And("deleted_at is null").
func And(expr string) Condition { return newCondition(ConnectorAnd, expr, nil, nil) }

// Or returns a raw condition without parameters.
func Or(expr string) Condition { return newCondition(ConnectorOr, expr, nil, nil) }

// AndEq returns "and column = ?". A nil value renders "and column is null".
func AndEq(column string, value any) Condition { return eq(ConnectorAnd, column, value) }

// OrEq returns "or column = ?". A nil value renders "or column is null".
func OrEq(column string, value any) Condition { return eq(ConnectorOr, column, value) }

// AndNeq returns "and column <> ?". A nil value renders "and column is not null".
func AndNeq(column string, value any) Condition { return neq(ConnectorAnd, column, value) }

// OrNeq returns "or column <> ?". A nil value renders "or column is not null".
func OrNeq(column string, value any) Condition { return neq(ConnectorOr, column, value) }

// AndLt returns "and column < ?".
func AndLt(column string, value any) Condition { return compare(ConnectorAnd, column, "<", value) }

// OrLt returns "or column < ?".
func OrLt(column string, value any) Condition { return compare(ConnectorOr, column, "<", value) }

// AndLte returns "and column <= ?".
func AndLte(column string, value any) Condition { return compare(ConnectorAnd, column, "<=", value) }

// OrLte returns "or column <= ?".
func OrLte(column string, value any) Condition { return compare(ConnectorOr, column, "<=", value) }

// AndGt returns "and column > ?".
func AndGt(column string, value any) Condition { return compare(ConnectorAnd, column, ">", value) }

// OrGt returns "or column > ?".
func OrGt(column string, value any) Condition { return compare(ConnectorOr, column, ">", value) }

// AndGte returns "and column >= ?".
func AndGte(column string, value any) Condition { return compare(ConnectorAnd, column, ">=", value) }

// OrGte returns "or column >= ?".
func OrGte(column string, value any) Condition { return compare(ConnectorOr, column, ">=", value) }

// AndLike returns "and column like ?".
func AndLike(column string, value any) Condition { return compare(ConnectorAnd, column, "like", value) }

// OrLike returns "or column like ?".
func OrLike(column string, value any) Condition { return compare(ConnectorOr, column, "like", value) }

// AndNotLike returns "and column not like ?".
func AndNotLike(column string, value any) Condition {
	return compare(ConnectorAnd, column, "not like", value)
}

// OrNotLike returns "or column not like ?".
func OrNotLike(column string, value any) Condition {
	return compare(ConnectorOr, column, "not like", value)
}

// AndIn returns "and column in (?, ...)".
func AndIn(column string, values ...any) Condition { return in(ConnectorAnd, column, "in", values) }

// OrIn returns "or column in (?, ...)".
func OrIn(column string, values ...any) Condition { return in(ConnectorOr, column, "in", values) }

// AndNotIn returns "and column not in (?, ...)".
func AndNotIn(column string, values ...any) Condition {
	return in(ConnectorAnd, column, "not in", values)
}

// OrNotIn returns "or column not in (?, ...)".
func OrNotIn(column string, values ...any) Condition {
	return in(ConnectorOr, column, "not in", values)
}

// AndIsNull returns "and column is null".
func AndIsNull(column string) Condition {
	return newCondition(ConnectorAnd, column+" is null", nil, nil)
}

// OrIsNull returns "or column is null".
func OrIsNull(column string) Condition { return newCondition(ConnectorOr, column+" is null", nil, nil) }

// AndIsNotNull returns "and column is not null".
func AndIsNotNull(column string) Condition {
	return newCondition(ConnectorAnd, column+" is not null", nil, nil)
}

// OrIsNotNull returns "or column is not null".
func OrIsNotNull(column string) Condition {
	return newCondition(ConnectorOr, column+" is not null", nil, nil)
}

// Custom returns a caller-written condition. The fragment carries its own
// connector keyword, e.g. Custom("and id in (select uid from roles where rid = ?)", 3).
// A single value binds as a scalar, several values bind in order.
// It panics when the placeholder count does not match the values.
func Custom(fragment string, values ...any) Condition {
	fragment = strings.TrimSpace(fragment)
	conn, _ := splitConnector(fragment)
	c := Condition{Connector: conn, Require: fragment}
	switch len(values) {
	case 0:
	case 1:
		if values[0] == nil {
			c.Values = []any{nil}
		} else {
			c.Value = values[0]
		}
	default:
		c.Values = append([]any(nil), values...)
	}
	if err := c.validate(); err != nil {
		panic(err)
	}
	return c
}
