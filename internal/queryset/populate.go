package queryset

import (
	"fmt"
	"strings"

	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/querysql"
)

// Layout describes the columns of a row returned by a select: every field
// of Model in declaration order, then the fields of each related model in
// Related order.
type Layout struct {
	Model   meta.Model
	Related []querysql.RelatedModel
}

// Width returns the number of columns in a row.
func (l Layout) Width() int {
	n := len(l.Model.Fields)
	for _, r := range l.Related {
		n += len(r.Model.Fields)
	}
	return n
}

// Populator builds one result object from one row.
type Populator[T any] interface {
	Populate(layout Layout, row []any) (T, error)
}

// PopulatorFunc adapts a function to Populator.
type PopulatorFunc[T any] func(layout Layout, row []any) (T, error)

// Populate calls f.
func (f PopulatorFunc[T]) Populate(layout Layout, row []any) (T, error) {
	return f(layout, row)
}

// RecordPopulator builds meta.Record values keyed by field name. Related
// models fetched by SelectRelated are nested under their foreign-key
// field; a related model whose primary key is NULL (no matching row)
// becomes nil.
type RecordPopulator struct{}

// Populate implements Populator.
func (RecordPopulator) Populate(layout Layout, row []any) (meta.Record, error) {
	if len(row) != layout.Width() {
		return nil, fmt.Errorf("populate %s: row has %d columns, want %d", layout.Model.Name, len(row), layout.Width())
	}

	rec, err := decodeRecord(layout.Model, row)
	if err != nil {
		return nil, err
	}

	n := len(layout.Model.Fields)
	byPath := map[string]meta.Record{"": rec}
	for _, r := range layout.Related {
		cols := row[n : n+len(r.Model.Fields)]
		n += len(r.Model.Fields)

		parent := byPath[strings.Join(r.Path[:len(r.Path)-1], "__")]
		if parent == nil {
			continue
		}
		if primaryKeyValue(r.Model, cols) == nil {
			parent[r.Field()] = nil
			continue
		}
		child, err := decodeRecord(r.Model, cols)
		if err != nil {
			return nil, err
		}
		parent[r.Field()] = child
		byPath[strings.Join(r.Path, "__")] = child
	}
	return rec, nil
}

func decodeRecord(m meta.Model, cols []any) (meta.Record, error) {
	rec := make(meta.Record, len(m.Fields))
	for i, f := range m.Fields {
		v, err := f.Decode(cols[i])
		if err != nil {
			return nil, fmt.Errorf("populate %s: %w", m.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func primaryKeyValue(m meta.Model, cols []any) any {
	for i, f := range m.Fields {
		if f.Name == m.PrimaryKey {
			return cols[i]
		}
	}
	return nil
}
