package entity

import (
	"errors"
	"fmt"
	"slices"
)

// Column maps one table column to a record property.
type Column struct {
	// Name is the column name used in generated SQL.
	Name string
	// Property is the record property the column is bound to.
	Property string
	// PrimaryKey marks the primary-key column.
	PrimaryKey bool
}

// Descriptor is the immutable metadata of a record type: its table and its
// ordered column mapping. A Descriptor is safe for concurrent use.
type Descriptor struct {
	table   string
	columns []Column
	pk      int // index of the primary-key column, -1 if none
}

// New returns a Descriptor for the given table and columns.
// At most one column may be marked as primary key.
func New(table string, columns ...Column) (*Descriptor, error) {
	if table == "" {
		return nil, errors.New("entity: table name cannot be empty")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("entity: table %q has no columns", table)
	}
	d := &Descriptor{table: table, columns: make([]Column, len(columns)), pk: -1}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("entity: table %q: column %d has no name", table, i)
		}
		if _, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("entity: table %q: duplicate column %q", table, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Property == "" {
			c.Property = c.Name
		}
		if c.PrimaryKey {
			if d.pk >= 0 {
				return nil, fmt.Errorf("entity: table %q: multiple primary keys (%q, %q)", table, d.columns[d.pk].Name, c.Name)
			}
			d.pk = i
		}
		d.columns[i] = c
	}
	return d, nil
}

// MustNew is like New but panics on error.
// It is intended for package-level descriptor declarations.
func MustNew(table string, columns ...Column) *Descriptor {
	d, err := New(table, columns...)
	if err != nil {
		panic(err)
	}
	return d
}

// Table returns the table name.
func (d *Descriptor) Table() string { return d.table }

// Columns returns a copy of the ordered column mapping.
func (d *Descriptor) Columns() []Column { return slices.Clone(d.columns) }

// Len returns the number of columns.
func (d *Descriptor) Len() int { return len(d.columns) }

// PrimaryKey returns the primary-key column, if the table has one.
func (d *Descriptor) PrimaryKey() (Column, bool) {
	if d.pk < 0 {
		return Column{}, false
	}
	return d.columns[d.pk], true
}

// Column returns the column with the given name.
func (d *Descriptor) Column(name string) (Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// String returns a short description of the descriptor.
func (d *Descriptor) String() string {
	return fmt.Sprintf("entity.Descriptor(%s, %d columns)", d.table, len(d.columns))
}
