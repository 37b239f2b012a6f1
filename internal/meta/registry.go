package meta

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps model names to their definitions.
//
// It is safe for concurrent use. Lookups never mutate the registry, so a
// single Registry can back any number of query-sets and compilers.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewRegistry returns a registry holding models. It fails on the first
// model Register rejects.
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: make(map[string]Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a model after filling defaults and checking it.
//
// Defaults: Table is the lower-cased model name, PrimaryKey is "id", a
// field's Column is its name, a foreign key's Column is name + "_id", and
// a field without a Type is a string (a foreign key defaults to int).
//
// Foreign-key targets are not checked here because models may reference
// each other in any registration order; call Validate once all models are
// registered.
func (r *Registry) Register(m Model) error {
	m, err := normalizeModel(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models == nil {
		r.models = make(map[string]Model)
	}
	if _, exists := r.models[m.Name]; exists {
		return &ModelError{Model: m.Name, Message: "already registered"}
	}
	r.models[m.Name] = m
	return nil
}

func normalizeModel(m Model) (Model, error) {
	if strings.TrimSpace(m.Name) == "" {
		return m, &ModelError{Message: "model name is empty"}
	}
	if m.Table == "" {
		m.Table = strings.ToLower(m.Name)
	}
	if m.PrimaryKey == "" {
		m.PrimaryKey = "id"
	}
	if len(m.Fields) == 0 {
		return m, &ModelError{Model: m.Name, Message: "no fields declared"}
	}

	fields := make([]Field, len(m.Fields))
	names := make(map[string]bool, len(m.Fields))
	columns := make(map[string]bool, len(m.Fields))
	for i, f := range m.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return m, &ModelError{Model: m.Name, Message: fmt.Sprintf("field %d has no name", i)}
		}
		if strings.Contains(f.Name, "__") {
			return m, &ModelError{Model: m.Name, Field: f.Name, Message: `field names must not contain "__"`}
		}
		if f.Column == "" {
			f.Column = f.Name
			if f.IsRelation() {
				f.Column = f.Name + "_id"
			}
		}
		if f.Type == "" {
			f.Type = TypeString
			if f.IsRelation() {
				f.Type = TypeInt
			}
		}
		if !f.Type.Valid() {
			return m, &ModelError{Model: m.Name, Field: f.Name, Message: fmt.Sprintf("unsupported type %q", f.Type)}
		}
		if names[f.Name] {
			return m, &ModelError{Model: m.Name, Field: f.Name, Message: "declared twice"}
		}
		if columns[f.Column] {
			return m, &ModelError{Model: m.Name, Field: f.Name, Message: fmt.Sprintf("column %q already mapped", f.Column)}
		}
		names[f.Name], columns[f.Column] = true, true
		fields[i] = f
	}
	m.Fields = fields

	if !names[m.PrimaryKey] {
		return m, &ModelError{Model: m.Name, Field: m.PrimaryKey, Message: "primary key is not a declared field"}
	}
	return m, nil
}

// Validate checks cross-model consistency: every foreign key must target a
// registered model. All problems are reported, joined.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range r.namesLocked() {
		m := r.models[name]
		for _, rel := range m.Relations() {
			if _, ok := r.models[rel.Related]; !ok {
				errs = append(errs, &ModelError{
					Model:   m.Name,
					Field:   rel.Field,
					Message: fmt.Sprintf("references unknown model %q", rel.Related),
				})
			}
		}
	}
	return errors.Join(errs...)
}

// Model returns the named model.
func (r *Registry) Model(name string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return Model{}, unknownModel(name)
	}
	return m, nil
}

// Models returns every registered model sorted by name.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Model, 0, len(r.models))
	for _, name := range r.namesLocked() {
		out = append(out, r.models[name])
	}
	return out
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TableFor returns the table of the named model.
func (r *Registry) TableFor(model string) (string, error) {
	m, err := r.Model(model)
	if err != nil {
		return "", err
	}
	return m.Table, nil
}

// ColumnFor returns the table-qualified column of a field, "table.column".
// Quoting is left to the SQL dialect.
func (r *Registry) ColumnFor(model, field string) (string, error) {
	m, err := r.Model(model)
	if err != nil {
		return "", err
	}
	f, ok := m.Field(field)
	if !ok {
		return "", unknownField(model, field)
	}
	return m.Table + "." + f.Column, nil
}

// PrimaryKeyField returns the name of the model's primary key field.
func (r *Registry) PrimaryKeyField(model string) (string, error) {
	m, err := r.Model(model)
	if err != nil {
		return "", err
	}
	return m.PrimaryKey, nil
}

// RelationsOf returns the model's foreign keys in declaration order.
func (r *Registry) RelationsOf(model string) ([]Relation, error) {
	m, err := r.Model(model)
	if err != nil {
		return nil, err
	}
	return m.Relations(), nil
}

// DependentsOf returns the foreign keys in other models (or the model
// itself) that reference model, ordered by declaring model name and then
// by field declaration order.
// Deleting a row of model requires deleting or detaching these first.
func (r *Registry) DependentsOf(model string) ([]Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.models[model]; !ok {
		return nil, unknownModel(model)
	}

	var out []Relation
	for _, name := range r.namesLocked() {
		for _, rel := range r.models[name].Relations() {
			if rel.Related == model {
				out = append(out, rel)
			}
		}
	}
	return out, nil
}
