package queryset

import (
	"errors"
	"fmt"

	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/querysql"
)

var (
	// ErrDoesNotExist is returned by Get and First when no row matches.
	ErrDoesNotExist = errors.New("object does not exist")

	// ErrMultipleObjectsReturned is returned by Get when more than one row
	// matches.
	ErrMultipleObjectsReturned = errors.New("multiple objects returned")

	// ErrIndexOutOfRange is returned by At and Cursor.Value past the end
	// of the set.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyUpdate is returned by Update with no assignments.
	ErrEmptyUpdate = querysql.ErrEmptyUpdate

	// ErrInvalidPredicate is returned when a comparison cannot be built.
	ErrInvalidPredicate = queryir.ErrInvalidPredicate
)

// ExecutionError wraps a failure to compile or run a statement. The
// underlying error is preserved for errors.Is/As.
type ExecutionError struct {
	// Op is the query-set operation that failed, e.g. "count" or "at".
	Op    string
	Model string

	// SQL is the statement text, empty when compilation failed.
	SQL string

	Err error
}

func (e *ExecutionError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("%s %s: %v (sql: %s)", e.Op, e.Model, e.Err, e.SQL)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Model, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError reports whether err wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}
