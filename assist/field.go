package assist

import "strings"

// Field is a column whose values have type T. Its methods return
// and-connected conditions; use Condition.Or to connect them with "or".
//
//	var (
//		Age  = assist.Field[int]("age")
//		Name = assist.StringField("name")
//	)
//	a := assist.New(Age.GTE(18), Name.HasPrefix("to").Or())
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns "and column = ?".
func (f Field[T]) EQ(v T) Condition { return AndEq(string(f), v) }

// NEQ returns "and column <> ?".
func (f Field[T]) NEQ(v T) Condition { return AndNeq(string(f), v) }

// GT returns "and column > ?".
func (f Field[T]) GT(v T) Condition { return AndGt(string(f), v) }

// GTE returns "and column >= ?".
func (f Field[T]) GTE(v T) Condition { return AndGte(string(f), v) }

// LT returns "and column < ?".
func (f Field[T]) LT(v T) Condition { return AndLt(string(f), v) }

// LTE returns "and column <= ?".
func (f Field[T]) LTE(v T) Condition { return AndLte(string(f), v) }

// In returns "and column in (?, ...)".
func (f Field[T]) In(vs ...T) Condition { return AndIn(string(f), anys(vs)...) }

// NotIn returns "and column not in (?, ...)".
func (f Field[T]) NotIn(vs ...T) Condition { return AndNotIn(string(f), anys(vs)...) }

// IsNull returns "and column is null".
func (f Field[T]) IsNull() Condition { return AndIsNull(string(f)) }

// NotNull returns "and column is not null".
func (f Field[T]) NotNull() Condition { return AndIsNotNull(string(f)) }

// StringField is a string column with pattern predicates.
type StringField = Field[string]

// Like returns "and column like ?".
func (f Field[T]) Like(pattern string) Condition { return AndLike(string(f), pattern) }

// NotLike returns "and column not like ?".
func (f Field[T]) NotLike(pattern string) Condition { return AndNotLike(string(f), pattern) }

// Contains returns "and column like ?" matching s anywhere. Wildcards in s
// are not escaped.
func (f Field[T]) Contains(s string) Condition { return f.Like("%" + s + "%") }

// HasPrefix returns "and column like ?" matching values starting with s.
func (f Field[T]) HasPrefix(s string) Condition { return f.Like(s + "%") }

// HasSuffix returns "and column like ?" matching values ending with s.
func (f Field[T]) HasSuffix(s string) Condition { return f.Like("%" + s) }

// Or returns the condition connected with "or" instead of "and".
func (c Condition) Or() Condition {
	if c.Connector == ConnectorOr {
		return c
	}
	_, rest := splitConnector(strings.TrimSpace(c.Require))
	c.Connector = ConnectorOr
	c.Require = "or " + rest
	return c
}

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
