package meta

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel is returned when a model name is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownField is returned when a field name is not declared on a model.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidModel is returned when a model definition is rejected.
	ErrInvalidModel = errors.New("invalid model")
)

// ModelError describes a rejected model definition.
// It matches ErrInvalidModel under errors.Is.
type ModelError struct {
	Model   string
	Field   string // empty when the problem is model-wide
	Message string
}

func (e *ModelError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("model %s: field %s: %s", e.Model, e.Field, e.Message)
	}
	return fmt.Sprintf("model %s: %s", e.Model, e.Message)
}

func (e *ModelError) Is(target error) bool {
	return target == ErrInvalidModel
}

func unknownModel(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

func unknownField(model, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, model, field)
}
