package entity

import (
	"database/sql/driver"
	"reflect"
)

// Field is one column value of a record. A nil Value means absent.
type Field struct {
	Column string
	Value  any
}

// Record is the ordered sequence of column values of one record, in the same
// order as the columns of its Descriptor.
type Record []Field

// Get returns the value of the given column.
func (r Record) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// NonEmpty returns the fields whose value is not absent, with values
// normalized by ValueOf.
func (r Record) NonEmpty() Record {
	out := make(Record, 0, len(r))
	for _, f := range r {
		if f.Value = ValueOf(f.Value); f.Value != nil {
			out = append(out, f)
		}
	}
	return out
}

// ValueOf normalizes a property value for binding. Nil pointers, nil maps and
// slices, and driver.Valuer values reporting NULL become nil (absent); other
// pointers are dereferenced.
func ValueOf(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
	}
	if vr, ok := v.(driver.Valuer); ok {
		x, err := vr.Value()
		if err == nil && x == nil {
			return nil
		}
		return v
	}
	if rv.Kind() == reflect.Pointer {
		return ValueOf(rv.Elem().Interface())
	}
	return v
}
