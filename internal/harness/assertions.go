package harness

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qset/internal/ir"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/queryset"
	"github.com/roach88/qset/internal/querysql"
)

// errorKinds maps the names accepted by expect.error to sentinel errors.
var errorKinds = map[string]error{
	"does_not_exist":            queryset.ErrDoesNotExist,
	"multiple_objects_returned": queryset.ErrMultipleObjectsReturned,
	"index_out_of_range":        queryset.ErrIndexOutOfRange,
	"empty_update":              queryset.ErrEmptyUpdate,
	"invalid_predicate":         queryir.ErrInvalidPredicate,
	"unknown_field":             querysql.ErrUnknownField,
	"unknown_model":             meta.ErrUnknownModel,
}

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Step     string       // Step name
	Check    string       // Which expectation: count, exists, rows, error, queries
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Statements the step sent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s: expectation failed: %s\n", e.Step, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nStatements:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.SQL, event.Params)
		}
	}

	return buf.String()
}

// checkExpect compares a step's outcome with its expectations and returns
// every mismatch.
func checkExpect(step string, expect Expect, out outcome, err error, trace []TraceEvent) []*AssertionError {
	var failures []*AssertionError
	fail := func(check, expected, actual string) {
		failures = append(failures, &AssertionError{
			Step:     step,
			Check:    check,
			Expected: expected,
			Actual:   actual,
			Trace:    trace,
		})
	}

	if expect.Queries != nil && *expect.Queries != len(trace) {
		fail("queries", fmt.Sprintf("%d statements", *expect.Queries), fmt.Sprintf("%d statements", len(trace)))
	}

	if expect.Error != "" {
		if err == nil {
			fail("error", fmt.Sprintf("error %q", expect.Error), "no error")
		} else if !errorMatches(err, expect.Error) {
			fail("error", fmt.Sprintf("error %q", expect.Error), err.Error())
		}
		return failures
	}
	if err != nil {
		fail("error", "no error", err.Error())
		return failures
	}

	if expect.Count != nil {
		if out.count == nil {
			fail("count", fmt.Sprintf("%d", *expect.Count), "operation has no count")
		} else if int64(*expect.Count) != *out.count {
			fail("count", fmt.Sprintf("%d", *expect.Count), fmt.Sprintf("%d", *out.count))
		}
	}

	if expect.Exists != nil {
		if out.exists == nil {
			fail("exists", fmt.Sprintf("%t", *expect.Exists), "operation has no exists result")
		} else if *expect.Exists != *out.exists {
			fail("exists", fmt.Sprintf("%t", *expect.Exists), fmt.Sprintf("%t", *out.exists))
		}
	}

	if expect.Rows != nil {
		if equal, want, got := rowsEqual(expect.Rows, out.rows); !equal {
			fail("rows", want, got)
		}
	}

	return failures
}

// errorMatches accepts a known error kind or a substring of the message.
func errorMatches(err error, want string) bool {
	if target, ok := errorKinds[want]; ok {
		return errors.Is(err, target)
	}
	return strings.Contains(err.Error(), want)
}

// rowsEqual compares rows by their canonical JSON, which makes YAML
// integers and driver int64s (and time values and RFC 3339 strings) agree.
func rowsEqual(expected, actual []any) (bool, string, string) {
	if actual == nil {
		actual = []any{}
	}
	want, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false, fmt.Sprintf("<unencodable: %v>", err), ""
	}
	got, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false, string(want), fmt.Sprintf("<unencodable: %v>", err)
	}
	return bytes.Equal(want, got), string(want), string(got)
}
