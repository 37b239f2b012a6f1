package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/qset/internal/meta"
)

// Validation error codes (E100-E199)
const (
	ErrModelNoFields      = "E101" // at least one field required
	ErrModelPrimaryKey    = "E102" // primary key field missing
	ErrInvalidName        = "E103" // model or field name malformed
	ErrInvalidFieldType   = "E104" // invalid type string
	ErrDuplicateName      = "E105" // duplicate model/field/column name
	ErrUnknownReference   = "E106" // foreign key targets an undeclared model
	ErrReferenceType      = "E107" // foreign key type differs from target primary key
	ErrPrimaryKeyRelation = "E108" // primary key declared as a foreign key
	ErrPrimaryKeyNullable = "E109" // primary key declared nullable
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// namePattern matches identifiers usable as model and field names.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks a set of model declarations against each other.
// Returns all errors found (does not fail-fast). Defaults are applied the
// same way the registry applies them, so an omitted primary key means "id".
func Validate(models []meta.Model) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]meta.Model, len(models))
	for i, m := range models {
		path := fmt.Sprintf("models[%d]", i)
		if !namePattern.MatchString(m.Name) {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("invalid model name %q", m.Name),
				Code:    ErrInvalidName,
			})
		}
		if _, dup := byName[m.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate model name: %q", m.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		byName[m.Name] = m
		errs = append(errs, validateModel(path, m)...)
	}

	// Cross-model checks
	for i, m := range models {
		for j, f := range m.Fields {
			if !f.IsRelation() {
				continue
			}
			path := fmt.Sprintf("models[%d].fields[%d].references", i, j)
			target, ok := byName[f.ForeignKey]
			if !ok {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("%s.%s references undeclared model %q", m.Name, f.Name, f.ForeignKey),
					Code:    ErrUnknownReference,
				})
				continue
			}
			if f.Type == "" {
				continue
			}
			if pk, ok := target.Field(primaryKeyOf(target)); ok && pk.Type != "" && pk.Type != f.Type {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("models[%d].fields[%d].type", i, j),
					Message: fmt.Sprintf("%s.%s is %s but %s.%s is %s", m.Name, f.Name, f.Type, target.Name, pk.Name, pk.Type),
					Code:    ErrReferenceType,
				})
			}
		}
	}

	return errs
}

// validateModel checks a single model declaration.
func validateModel(path string, m meta.Model) []ValidationError {
	var errs []ValidationError

	// E101: at least one field required
	if len(m.Fields) == 0 {
		return append(errs, ValidationError{
			Field:   path + ".fields",
			Message: fmt.Sprintf("model %q declares no fields", m.Name),
			Code:    ErrModelNoFields,
		})
	}

	names := make(map[string]bool)
	columns := make(map[string]bool)
	for j, f := range m.Fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, j)

		if !namePattern.MatchString(f.Name) || strings.Contains(f.Name, "__") {
			errs = append(errs, ValidationError{
				Field:   fpath + ".name",
				Message: fmt.Sprintf("invalid field name %q", f.Name),
				Code:    ErrInvalidName,
			})
		}
		if names[f.Name] {
			errs = append(errs, ValidationError{
				Field:   fpath + ".name",
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[f.Name] = true

		col := columnOf(f)
		if columns[col] {
			errs = append(errs, ValidationError{
				Field:   fpath + ".column",
				Message: fmt.Sprintf("column %q is mapped by more than one field", col),
				Code:    ErrDuplicateName,
			})
		}
		columns[col] = true

		// E104: check for valid type
		if f.Type != "" && !f.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   fpath + ".type",
				Message: fmt.Sprintf("invalid type %q for field %q", f.Type, f.Name),
				Code:    ErrInvalidFieldType,
			})
		}
	}

	pkName := primaryKeyOf(m)
	pk, ok := m.Field(pkName)
	switch {
	case !ok:
		errs = append(errs, ValidationError{
			Field:   path + ".primary_key",
			Message: fmt.Sprintf("primary key %q is not a field of %q", pkName, m.Name),
			Code:    ErrModelPrimaryKey,
		})
	case pk.IsRelation():
		errs = append(errs, ValidationError{
			Field:   path + ".primary_key",
			Message: fmt.Sprintf("primary key %q of %q cannot be a foreign key", pkName, m.Name),
			Code:    ErrPrimaryKeyRelation,
		})
	case pk.Nullable:
		errs = append(errs, ValidationError{
			Field:   path + ".primary_key",
			Message: fmt.Sprintf("primary key %q of %q cannot be nullable", pkName, m.Name),
			Code:    ErrPrimaryKeyNullable,
		})
	}

	return errs
}

func primaryKeyOf(m meta.Model) string {
	if m.PrimaryKey != "" {
		return m.PrimaryKey
	}
	return "id"
}

func columnOf(f meta.Field) string {
	switch {
	case f.Column != "":
		return f.Column
	case f.IsRelation():
		return f.Name + "_id"
	default:
		return f.Name
	}
}
