package meta

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/qset/internal/ir"
)

// FieldType is the declared storage type of a field.
type FieldType string

const (
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "string"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
	TypeBytes  FieldType = "bytes"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeString, TypeBool, TypeTime, TypeBytes:
		return true
	}
	return false
}

// Field maps one model attribute to a column.
type Field struct {
	Name   string
	Column string
	Type   FieldType

	// ForeignKey names the related model when the field is a foreign key.
	// The column then holds the related model's primary key.
	ForeignKey string

	Nullable bool
}

// IsRelation reports whether the field is a foreign key.
func (f Field) IsRelation() bool { return f.ForeignKey != "" }

// timeLayouts are tried in order when a driver returns a time as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Decode converts a raw driver value into the Go type matching the field:
// int64, float64, string, bool, time.Time or []byte. NULL decodes to nil.
//
// Drivers disagree on representations (SQLite returns booleans as integers,
// MySQL returns most columns as bytes), so Decode accepts every
// representation a supported driver produces.
func (f Field) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if f.Type == TypeBytes {
		if b, ok := raw.([]byte); ok {
			return bytes.Clone(b), nil
		}
		if s, ok := raw.(string); ok {
			return []byte(s), nil
		}
		return nil, f.decodeError(raw)
	}
	if f.Type == TypeTime {
		if t, ok := raw.(time.Time); ok {
			return t.UTC(), nil
		}
	}

	switch v := ir.Normalize(raw).(type) {
	case int64:
		switch f.Type {
		case TypeInt:
			return v, nil
		case TypeFloat:
			return float64(v), nil
		case TypeBool:
			return v != 0, nil
		case TypeString:
			return strconv.FormatInt(v, 10), nil
		case TypeTime:
			return time.Unix(v, 0).UTC(), nil
		}
	case float64:
		switch f.Type {
		case TypeFloat:
			return v, nil
		case TypeInt:
			return int64(v), nil
		case TypeString:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		}
	case bool:
		switch f.Type {
		case TypeBool:
			return v, nil
		case TypeInt:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case string:
		return f.decodeString(v)
	}
	return nil, f.decodeError(raw)
}

func (f Field) decodeString(s string) (any, error) {
	switch f.Type {
	case TypeString:
		return s, nil
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, f.decodeError(s)
		}
		return n, nil
	case TypeFloat:
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, f.decodeError(s)
		}
		return x, nil
	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, f.decodeError(s)
		}
		return b, nil
	case TypeTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return nil, f.decodeError(s)
}

func (f Field) decodeError(raw any) error {
	return fmt.Errorf("field %s: cannot decode %T as %s", f.Name, raw, f.Type)
}

// Model describes one persisted record type.
type Model struct {
	Name       string
	Table      string
	PrimaryKey string  // field name, not column
	Fields     []Field // declaration order; drives SELECT column order
}

// Field returns the named field.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKeyColumn returns the column of the primary key field.
func (m Model) PrimaryKeyColumn() string {
	if f, ok := m.Field(m.PrimaryKey); ok {
		return f.Column
	}
	return m.PrimaryKey
}

// FieldNames returns field names in declaration order.
func (m Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// Relations returns the model's foreign keys in declaration order.
func (m Model) Relations() []Relation {
	var out []Relation
	for _, f := range m.Fields {
		if f.IsRelation() {
			out = append(out, Relation{Model: m.Name, Field: f.Name, Column: f.Column, Related: f.ForeignKey})
		}
	}
	return out
}

// Relation is one foreign key: Model.Field (stored in Column) references
// the primary key of Related.
type Relation struct {
	Model   string
	Field   string
	Column  string
	Related string
}

// Record is a decoded row keyed by field name.
//
// When related objects were fetched with a join, the foreign-key field
// holds a nested Record (or nil when the key is NULL) instead of the raw
// key value.
type Record map[string]any

// Related returns the nested record stored under a foreign-key field.
func (r Record) Related(field string) (Record, bool) {
	rel, ok := r[field].(Record)
	return rel, ok
}
