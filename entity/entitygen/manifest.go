// Package entitygen generates record types together with their entity
// descriptors, reflection-free binders and typed column predicates from a
// YAML manifest.
//
//	package: models
//	entities:
//	  - name: User
//	    columns:
//	      - {name: id, type: int64, primary_key: true}
//	      - {name: name, type: string, nullable: true}
//	      - {name: created_at, type: time}
//
// Every generated file registers its binding with entity.Default from an
// init function, so clients of the generated types never fall back to
// reflection.
package entitygen

import (
	"bytes"
	"fmt"
	"go/token"
	"os"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlassist/entity"
)

// Manifest lists the entities of one Go package.
type Manifest struct {
	// Package is the name of the generated package.
	Package  string    `yaml:"package"`
	Entities []*Entity `yaml:"entities"`
}

// Entity describes one record type and its table.
type Entity struct {
	// Name is the Go type name.
	Name string `yaml:"name"`
	// Table defaults to the pluralized snake_case name.
	Table   string    `yaml:"table,omitempty"`
	Columns []*Column `yaml:"columns"`
}

// Column describes one column and the struct field it is bound to.
type Column struct {
	Name string `yaml:"name"`
	// Field defaults to the CamelCase column name.
	Field string `yaml:"field,omitempty"`
	// Type is one of the keys of Types.
	Type       string `yaml:"type"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	// Nullable columns are generated as pointer fields.
	Nullable bool `yaml:"nullable,omitempty"`
}

// Types lists the supported column types.
var Types = []string{"bool", "bytes", "float64", "int", "int32", "int64", "string", "time", "uint64", "uuid"}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("entitygen: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a manifest. Defaults are filled in.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("entitygen: decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the manifest and fills in default table and field names.
func (m *Manifest) Validate() error {
	if !token.IsIdentifier(m.Package) {
		return fmt.Errorf("entitygen: invalid package name %q", m.Package)
	}
	if len(m.Entities) == 0 {
		return fmt.Errorf("entitygen: no entities in package %s", m.Package)
	}
	seen := make(map[string]bool, len(m.Entities))
	for _, e := range m.Entities {
		if !token.IsIdentifier(e.Name) || !token.IsExported(e.Name) {
			return fmt.Errorf("entitygen: invalid entity name %q", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("entitygen: duplicate entity %s", e.Name)
		}
		seen[e.Name] = true
		if err := e.validate(); err != nil {
			return fmt.Errorf("entitygen: entity %s: %w", e.Name, err)
		}
	}
	return nil
}

func (e *Entity) validate() error {
	if e.Table == "" {
		e.Table = inflect.Pluralize(inflect.Underscore(e.Name))
	}
	fields := make(map[string]bool, len(e.Columns))
	for _, c := range e.Columns {
		if c.Field == "" {
			c.Field = fieldName(c.Name)
		}
		if !token.IsIdentifier(c.Field) || !token.IsExported(c.Field) {
			return fmt.Errorf("column %q: invalid field name %q", c.Name, c.Field)
		}
		if fields[c.Field] {
			return fmt.Errorf("column %q: duplicate field %s", c.Name, c.Field)
		}
		fields[c.Field] = true
		if _, ok := baseTypes[c.Type]; !ok {
			return fmt.Errorf("column %q: unsupported type %q; use one of %s", c.Name, c.Type, strings.Join(Types, ", "))
		}
	}
	// The descriptor rules are checked at generation time so that the
	// generated init functions cannot panic.
	_, err := e.Descriptor()
	return err
}

// Descriptor returns the entity descriptor the generated code declares.
func (e *Entity) Descriptor() (*entity.Descriptor, error) {
	columns := make([]entity.Column, len(e.Columns))
	for i, c := range e.Columns {
		columns[i] = entity.Column{Name: c.Name, Property: c.Field, PrimaryKey: c.PrimaryKey}
	}
	return entity.New(e.Table, columns...)
}

var acronyms = map[string]bool{"id": true, "ip": true, "uid": true, "url": true, "uuid": true, "api": true, "json": true, "sql": true}

// fieldName returns the exported Go name of a snake_case column.
func fieldName(column string) string {
	var b strings.Builder
	for _, part := range strings.Split(column, "_") {
		if part == "" {
			continue
		}
		if acronyms[strings.ToLower(part)] {
			b.WriteString(strings.ToUpper(part))
		} else {
			b.WriteString(inflect.Capitalize(part))
		}
	}
	return b.String()
}
