package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qset/internal/meta"
)

// CompileModel parses a CUE value into a model declaration.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Post: { fields: { id: int, author: {references: "Author"} } }`)
//	m, err := CompileModel(v.LookupPath(cue.ParsePath("model.Post")))
//
// Fields are either a bare CUE type (int, float, string, bool, bytes,
// optionally "| null") or a struct with type, column, references and
// nullable attributes. Declaration order is kept.
func CompileModel(v cue.Value) (*meta.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &meta.Model{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		m.Name = labels[len(labels)-1].String()
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		switch iter.Label() {
		case "table", "primary_key", "fields":
		default:
			return nil, &CompileError{
				Field:   "model",
				Message: fmt.Sprintf("model %s: unknown attribute %q", m.Name, iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
	}

	if m.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if m.PrimaryKey, err = optionalString(v, "primary_key"); err != nil {
		return nil, err
	}

	m.Fields, err = parseFields(v, m.Name)
	if err != nil {
		return nil, err
	}
	if len(m.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: fmt.Sprintf("model %s: at least one field is required", m.Name),
			Pos:     v.Pos(),
		}
	}
	return m, nil
}

// parseFields extracts field declarations in source order.
func parseFields(v cue.Value, model string) ([]meta.Field, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []meta.Field
	for iter.Next() {
		f, err := parseField(iter.Label(), iter.Value(), model)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(name string, v cue.Value, model string) (meta.Field, error) {
	f := meta.Field{Name: name}

	if v.IncompleteKind() != cue.StructKind {
		typ, nullable, err := extractFieldType(v)
		if err != nil {
			return f, err
		}
		f.Type, f.Nullable = typ, nullable
		return f, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return f, formatCUEError(err)
	}
	for iter.Next() {
		attr := iter.Value()
		switch iter.Label() {
		case "type":
			s, err := attr.String()
			if err != nil {
				return f, formatCUEError(err)
			}
			f.Type = meta.FieldType(s)
			if !f.Type.Valid() {
				return f, &CompileError{
					Field:   "type",
					Message: fmt.Sprintf("%s.%s: unsupported type %q", model, name, s),
					Pos:     attr.Pos(),
				}
			}
		case "column":
			if f.Column, err = attr.String(); err != nil {
				return f, formatCUEError(err)
			}
		case "references":
			if f.ForeignKey, err = attr.String(); err != nil {
				return f, formatCUEError(err)
			}
		case "nullable":
			if f.Nullable, err = attr.Bool(); err != nil {
				return f, formatCUEError(err)
			}
		default:
			return f, &CompileError{
				Field:   "model",
				Message: fmt.Sprintf("%s.%s: unknown attribute %q", model, name, iter.Label()),
				Pos:     attr.Pos(),
			}
		}
	}
	return f, nil
}

// extractFieldType converts a bare CUE type to a field type. A disjunction
// with null marks the field nullable.
func extractFieldType(v cue.Value) (meta.FieldType, bool, error) {
	kind := v.IncompleteKind()
	nullable := kind&cue.NullKind != 0 && kind != cue.NullKind
	kind &^= cue.NullKind

	switch kind {
	case cue.StringKind:
		return meta.TypeString, nullable, nil
	case cue.IntKind:
		return meta.TypeInt, nullable, nil
	case cue.FloatKind, cue.NumberKind:
		return meta.TypeFloat, nullable, nil
	case cue.BoolKind:
		return meta.TypeBool, nullable, nil
	case cue.BytesKind:
		return meta.TypeBytes, nullable, nil
	default:
		return "", false, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", &CompileError{
			Field:   key,
			Message: fmt.Sprintf("%s must be a string", key),
			Pos:     sv.Pos(),
		}
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
