package assist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/syssam/sqlassist/dialect"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Document is the structured form of an Assist. Absent fields are omitted.
// Field names follow the wire format shared with other services.
//
// Value and Custom are always encoded in MessagePack so that 0, false and ""
// survive a round trip.
type Document struct {
	Distinct        bool                `json:"distinct,omitempty" yaml:"distinct,omitempty" msgpack:"distinct,omitempty"`
	GroupBy         string              `json:"groupBy,omitempty" yaml:"groupBy,omitempty" msgpack:"groupBy,omitempty"`
	Having          string              `json:"having,omitempty" yaml:"having,omitempty" msgpack:"having,omitempty"`
	HavingValue     []any               `json:"havingValue,omitempty" yaml:"havingValue,omitempty" msgpack:"havingValue,omitempty"`
	Order           string              `json:"order,omitempty" yaml:"order,omitempty" msgpack:"order,omitempty"`
	Page            *int                `json:"page,omitempty" yaml:"page,omitempty" msgpack:"page,omitempty"`
	StartRow        *int                `json:"startRow,omitempty" yaml:"startRow,omitempty" msgpack:"startRow,omitempty"`
	RowSize         *int                `json:"rowSize,omitempty" yaml:"rowSize,omitempty" msgpack:"rowSize,omitempty"`
	ResultColumn    string              `json:"resultColumn,omitempty" yaml:"resultColumn,omitempty" msgpack:"resultColumn,omitempty"`
	JoinOrReference string              `json:"joinOrReference,omitempty" yaml:"joinOrReference,omitempty" msgpack:"joinOrReference,omitempty"`
	Custom          any                 `json:"custom,omitempty" yaml:"custom,omitempty" msgpack:"custom"`
	Condition       []ConditionDocument `json:"condition,omitempty" yaml:"condition,omitempty" msgpack:"condition,omitempty"`
}

// ConditionDocument is the structured form of a Condition.
type ConditionDocument struct {
	Require string `json:"require" yaml:"require" msgpack:"require"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value"`
	Values  []any  `json:"values,omitempty" yaml:"values,omitempty" msgpack:"values,omitempty"`
}

// Document returns the structured form of the descriptor.
func (a *Assist) Document() *Document {
	doc := &Document{
		Distinct:        a.distinct,
		GroupBy:         a.groupBy,
		Having:          a.having,
		HavingValue:     a.havingValues,
		Order:           a.order,
		Page:            cloneInt(a.page),
		StartRow:        cloneInt(a.startRow),
		RowSize:         cloneInt(a.rowSize),
		ResultColumn:    a.resultColumns,
		JoinOrReference: a.joinOrReference,
		Custom:          a.custom,
	}
	if a.conditions != nil {
		doc.Condition = make([]ConditionDocument, 0, a.conditions.Len())
		for _, c := range a.conditions.nodes {
			doc.Condition = append(doc.Condition, ConditionDocument{Require: c.Require, Value: c.Value, Values: c.Values})
		}
	}
	return doc
}

// FromDocument rebuilds an Assist from its structured form. Unlike the
// fluent API, it reports placeholder mismatches as errors since documents
// usually come from outside the process. Values are taken as they are;
// decoding through JSON, YAML or MessagePack first normalizes integer kinds
// to int64 and other numbers to float64.
func FromDocument(doc *Document) (*Assist, error) {
	a := &Assist{}
	if doc == nil {
		return a, nil
	}
	if n := countPlaceholders(doc.Having); n != len(doc.HavingValue) {
		return nil, fmt.Errorf("assist: having %q has %d placeholders for %d values", doc.Having, n, len(doc.HavingValue))
	}
	a.distinct = doc.Distinct
	a.groupBy = doc.GroupBy
	a.having = doc.Having
	if len(doc.HavingValue) > 0 {
		a.havingValues = append([]any(nil), doc.HavingValue...)
	}
	a.order = doc.Order
	a.page = cloneInt(doc.Page)
	a.startRow = cloneInt(doc.StartRow)
	a.rowSize = cloneInt(doc.RowSize)
	a.resultColumns = doc.ResultColumn
	a.joinOrReference = doc.JoinOrReference
	a.custom = doc.Custom
	if doc.Condition != nil {
		a.conditions = &Conditions{}
		for i, cd := range doc.Condition {
			conn, _ := splitConnector(cd.Require)
			c := Condition{Connector: conn, Require: cd.Require, Value: cd.Value, Values: cd.Values}
			if err := c.validate(); err != nil {
				return nil, fmt.Errorf("assist: condition %d: %w", i, err)
			}
			a.conditions.Add(c)
		}
	}
	return a, nil
}

// MarshalJSON implements json.Marshaler.
func (a *Assist) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Document())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers decode as int64 when
// integral and as float64 otherwise, so a value set as int or int32 comes
// back as int64. The SQL text is unchanged by a round trip.
func (a *Assist) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("assist: decode json: %w", err)
	}
	return a.load(&doc)
}

// MarshalYAML implements yaml.Marshaler.
func (a *Assist) MarshalYAML() (any, error) {
	return a.Document(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Assist) UnmarshalYAML(node *yaml.Node) error {
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("assist: decode yaml: %w", err)
	}
	return a.load(&doc)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (a *Assist) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(a.Document())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (a *Assist) DecodeMsgpack(dec *msgpack.Decoder) error {
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("assist: decode msgpack: %w", err)
	}
	return a.load(&doc)
}

var (
	_ json.Marshaler        = (*Assist)(nil)
	_ json.Unmarshaler      = (*Assist)(nil)
	_ yaml.Marshaler        = (*Assist)(nil)
	_ yaml.Unmarshaler      = (*Assist)(nil)
	_ msgpack.CustomEncoder = (*Assist)(nil)
	_ msgpack.CustomDecoder = (*Assist)(nil)
)

func (a *Assist) load(doc *Document) error {
	doc.HavingValue = normalizeSlice(doc.HavingValue)
	doc.Custom = normalize(doc.Custom)
	for i := range doc.Condition {
		doc.Condition[i].Value = normalize(doc.Condition[i].Value)
		doc.Condition[i].Values = normalizeSlice(doc.Condition[i].Values)
	}
	loaded, err := FromDocument(doc)
	if err != nil {
		return err
	}
	*a = *loaded
	return nil
}

func countPlaceholders(s string) int {
	return len(dialect.Placeholders(s))
}

// normalize maps decoded scalars to int64 for integers and float64 for other
// numbers, so that every encoding yields the same parameter values.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case []any:
		return normalizeSlice(x)
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	}
	return v
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func normalizeSlice(vs []any) []any {
	for i, v := range vs {
		vs[i] = normalize(v)
	}
	return vs
}
