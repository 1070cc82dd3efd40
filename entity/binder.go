package entity

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"
)

// Binder extracts the ordered column values of a record instance.
type Binder interface {
	Bind(v any) (Record, error)
}

// BinderFunc adapts an ordinary function to the Binder interface.
type BinderFunc func(v any) (Record, error)

// Bind calls f(v).
func (f BinderFunc) Bind(v any) (Record, error) { return f(v) }

// Tabler is implemented by record types that name their own table.
type Tabler interface {
	TableName() string
}

// TagName is the struct tag read by StructBinder.
const TagName = "db"

// StructBinder binds struct values through reflection, following the
// field mapping resolved by Describe.
type StructBinder struct {
	typ     reflect.Type
	columns []string
	index   [][]int
}

// Bind returns the column values of v, which must be a value of, or a
// pointer to, the described struct type.
func (b *StructBinder) Bind(v any) (Record, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("entity: bind nil %s", b.typ)
		}
		rv = rv.Elem()
	}
	if rv.Type() != b.typ {
		return nil, fmt.Errorf("entity: bind %s: unexpected type %T", b.typ, v)
	}
	r := make(Record, len(b.columns))
	for i, name := range b.columns {
		r[i] = Field{Column: name, Value: ValueOf(rv.FieldByIndex(b.index[i]).Interface())}
	}
	return r, nil
}

// Describe derives a Descriptor and a StructBinder from a struct type.
//
// Fields are mapped with the "db" tag: `db:"name"` sets the column name,
// `db:"name,pk"` also marks the primary key and `db:"-"` skips the field.
// Untagged exported fields map to their snake_case name. When no field is
// tagged as primary key, a field named ID is used. The table name is taken
// from TableName when the type implements Tabler, otherwise it is the
// pluralized snake_case type name.
func Describe(t reflect.Type) (*Descriptor, *StructBinder, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("entity: describe %s: not a struct", t)
	}
	var (
		columns []Column
		index   [][]int
		idField = -1
		hasPK   bool
	)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if !ok || name == "" {
			name = inflect.Underscore(f.Name)
		}
		c := Column{Name: name, Property: f.Name}
		for _, o := range strings.Split(opts, ",") {
			if strings.TrimSpace(o) == "pk" {
				c.PrimaryKey = true
				hasPK = true
			}
		}
		if f.Name == "ID" {
			idField = len(columns)
		}
		columns = append(columns, c)
		index = append(index, f.Index)
	}
	if !hasPK && idField >= 0 {
		columns[idField].PrimaryKey = true
	}
	d, err := New(tableName(t), columns...)
	if err != nil {
		return nil, nil, fmt.Errorf("entity: describe %s: %w", t, err)
	}
	b := &StructBinder{typ: t, columns: make([]string, len(columns)), index: index}
	for i, c := range columns {
		b.columns[i] = c.Name
	}
	return d, b, nil
}

func tableName(t reflect.Type) string {
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	return inflect.Pluralize(inflect.Underscore(t.Name()))
}
