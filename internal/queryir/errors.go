package queryir

import (
	"errors"
	"fmt"
)

// ErrInvalidPredicate is returned when a comparison cannot be constructed.
// It is always reported at construction time, never deferred to execution.
var ErrInvalidPredicate = errors.New("invalid predicate")

// PredicateError describes why a comparison was rejected.
// It matches ErrInvalidPredicate under errors.Is.
type PredicateError struct {
	Field    string
	Operator Operator
	Message  string
}

func (e *PredicateError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("invalid predicate %s %s: %s", e.Field, e.Operator, e.Message)
	}
	return fmt.Sprintf("invalid predicate %s: %s", e.Field, e.Message)
}

func (e *PredicateError) Is(target error) bool {
	return target == ErrInvalidPredicate
}

// IsInvalidPredicate returns true if err reports a rejected comparison.
func IsInvalidPredicate(err error) bool {
	return errors.Is(err, ErrInvalidPredicate)
}
