package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/qset/internal/meta"
)

var (
	// ErrUnknownField is returned when a field or relation path does not
	// resolve against the model registry.
	ErrUnknownField = meta.ErrUnknownField

	// ErrEmptyUpdate is returned by Update when no assignments are given.
	// Nothing is compiled.
	ErrEmptyUpdate = errors.New("empty update")
)

// FieldError reports a field reference that could not be resolved.
// It matches ErrUnknownField under errors.Is.
type FieldError struct {
	Model   string
	Path    string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Model, e.Path, e.Message)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrUnknownField
}
