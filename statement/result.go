package statement

import (
	"fmt"

	"github.com/syssam/sqlassist"
	"github.com/syssam/sqlassist/dialect"
)

// Reasons carried by Invalid results. Callers may compare against them.
const (
	ReasonNoPrimaryKey     = "there is no primary key in your SQL statement"
	ReasonNoCondition      = "SqlAssist or SqlAssist.condition is null"
	ReasonNoColumns        = "there is no column to write in your SQL statement"
	ReasonNoRecords        = "there is no record in your SQL statement"
	ReasonNoConflictColumn = "there is no duplicate key column in your SQL statement"
)

// Result is the outcome of a statement builder operation: either an
// Executable or an Invalid. No other implementations exist.
type Result interface {
	result()
}

// Executable is a SQL statement with its parameters in placeholder order.
type Executable struct {
	SQL    string
	Params []any
	// Returning names the column whose value the statement returns as a row.
	// It is empty when generated keys must be read from the driver.
	Returning string
}

// Invalid reports why no statement could be generated.
type Invalid struct {
	Reason string
	// NotImplemented is set when the dialect lacks the requested capability,
	// as opposed to the input being unusable.
	NotImplemented bool
}

func (Executable) result() {}
func (Invalid) result()    {}

// String returns the statement and its parameters for logging.
func (e Executable) String() string {
	return fmt.Sprintf("%s %v", e.SQL, e.Params)
}

// Err returns the invalid result as an error attributed to op.
func (i Invalid) Err(op string) error {
	return &sqlassist.InvalidStatementError{Op: op, Reason: i.Reason, NotImplemented: i.NotImplemented}
}

// String returns the reason.
func (i Invalid) String() string { return i.Reason }

// Unwrap returns the executable statement of r, or the error of an
// invalid result attributed to op.
func Unwrap(op string, r Result) (Executable, error) {
	switch r := r.(type) {
	case Executable:
		return r, nil
	case Invalid:
		return Executable{}, r.Err(op)
	case nil:
		return Executable{}, &sqlassist.InvalidStatementError{Op: op, Reason: "nil result"}
	}
	panic(fmt.Sprintf("statement: unexpected result type %T", r))
}

func invalid(reason string) Invalid { return Invalid{Reason: reason} }

func notImplemented(name, feature string) Invalid {
	return Invalid{Reason: fmt.Sprintf("%s does not implement %s", name, feature), NotImplemented: true}
}

// executable builds the result and asserts that every placeholder is bound.
func executable(sql string, params []any) Executable {
	if n := len(dialect.Placeholders(sql)); n != len(params) {
		panic(fmt.Sprintf("statement: %q has %d placeholders for %d parameters", sql, n, len(params)))
	}
	return Executable{SQL: sql, Params: params}
}
