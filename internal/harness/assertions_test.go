package harness

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/queryset"
	"github.com/roach88/qset/internal/querysql"
)

func count(n int64) outcome { return scalar(n) }

func TestCheckExpect_Pass(t *testing.T) {
	trace := []TraceEvent{{Seq: 1, Kind: "query", SQL: "SELECT 1"}}
	yes := true
	out := outcome{exists: &yes}

	failures := checkExpect("s", Expect{Exists: boolPtr(true), Queries: intPtr(1)}, out, nil, trace)
	assert.Empty(t, failures)
}

func TestCheckExpect_Count(t *testing.T) {
	failures := checkExpect("s", Expect{Count: intPtr(3)}, count(2), nil, nil)
	require.Len(t, failures, 1)
	assert.Equal(t, "count", failures[0].Check)
	assert.Equal(t, "3", failures[0].Expected)
	assert.Equal(t, "2", failures[0].Actual)
}

func TestCheckExpect_CountOnOpWithoutCount(t *testing.T) {
	yes := true
	failures := checkExpect("s", Expect{Count: intPtr(1)}, outcome{exists: &yes}, nil, nil)
	require.Len(t, failures, 1)
	assert.Equal(t, "operation has no count", failures[0].Actual)
}

func TestCheckExpect_Exists(t *testing.T) {
	no := false
	failures := checkExpect("s", Expect{Exists: boolPtr(true)}, outcome{exists: &no}, nil, nil)
	require.Len(t, failures, 1)
	assert.Equal(t, "exists", failures[0].Check)
	assert.Equal(t, "false", failures[0].Actual)

	failures = checkExpect("s", Expect{Exists: boolPtr(true)}, count(1), nil, nil)
	require.Len(t, failures, 1)
	assert.Equal(t, "operation has no exists result", failures[0].Actual)
}

func TestCheckExpect_QueriesCheckedAlongsideErrors(t *testing.T) {
	trace := []TraceEvent{{Seq: 1}, {Seq: 2}}
	expect := Expect{Error: "does_not_exist", Queries: intPtr(1)}

	failures := checkExpect("s", expect, outcome{}, queryset.ErrDoesNotExist, trace)
	require.Len(t, failures, 1)
	assert.Equal(t, "queries", failures[0].Check)
	assert.Equal(t, "1 statements", failures[0].Expected)
	assert.Equal(t, "2 statements", failures[0].Actual)
}

func TestCheckExpect_ExpectedErrorSkipsResultChecks(t *testing.T) {
	expect := Expect{Error: "index_out_of_range", Count: intPtr(5)}
	failures := checkExpect("s", expect, outcome{}, queryset.ErrIndexOutOfRange, nil)
	assert.Empty(t, failures)
}

func TestCheckExpect_UnexpectedError(t *testing.T) {
	failures := checkExpect("s", Expect{Count: intPtr(1)}, outcome{}, errors.New("boom"), nil)
	require.Len(t, failures, 1)
	assert.Equal(t, "error", failures[0].Check)
	assert.Equal(t, "no error", failures[0].Expected)
	assert.Equal(t, "boom", failures[0].Actual)
}

func TestCheckExpect_WrongError(t *testing.T) {
	failures := checkExpect("s", Expect{Error: "does_not_exist"}, outcome{}, queryset.ErrMultipleObjectsReturned, nil)
	require.Len(t, failures, 1)
	assert.Equal(t, `error "does_not_exist"`, failures[0].Expected)
	assert.Equal(t, "multiple objects returned", failures[0].Actual)
}

func TestErrorMatches(t *testing.T) {
	wrapped := &queryset.ExecutionError{Op: "count", Model: "Post", Err: fmt.Errorf("%w: nickname", querysql.ErrUnknownField)}

	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"kind", queryset.ErrDoesNotExist, "does_not_exist", true},
		{"wrapped kind", wrapped, "unknown_field", true},
		{"other kind", wrapped, "unknown_model", false},
		{"substring", wrapped, "nickname", true},
		{"missing substring", wrapped, "title", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, errorMatches(tt.err, tt.want))
		})
	}
}

func TestRowsEqual(t *testing.T) {
	t.Run("yaml ints match driver ints", func(t *testing.T) {
		equal, _, _ := rowsEqual(
			[]any{[]any{1, "Ann"}},
			[]any{[]any{int64(1), "Ann"}},
		)
		assert.True(t, equal)
	})

	t.Run("times match rfc3339 strings", func(t *testing.T) {
		equal, want, got := rowsEqual(
			[]any{map[string]any{"created": "2024-01-01T10:00:00Z"}},
			[]any{map[string]any{"created": time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}},
		)
		assert.True(t, equal, "want %s got %s", want, got)
	})

	t.Run("nil actual is empty", func(t *testing.T) {
		equal, _, got := rowsEqual([]any{}, nil)
		assert.True(t, equal)
		assert.Equal(t, "[]", got)
	})

	t.Run("order matters", func(t *testing.T) {
		equal, want, got := rowsEqual([]any{1, 2}, []any{int64(2), int64(1)})
		assert.False(t, equal)
		assert.Equal(t, "[1,2]", want)
		assert.Equal(t, "[2,1]", got)
	})
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Step:     "adults",
		Check:    "count",
		Expected: "5",
		Actual:   "4",
		Trace: []TraceEvent{
			{Seq: 1, Kind: "query", SQL: `SELECT COUNT(*) FROM "person" WHERE "person"."age" >= ?`, Params: []any{18}},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "adults: expectation failed: count\n")
	assert.Contains(t, msg, "  Expected: 5\n")
	assert.Contains(t, msg, "  Actual: 4\n")
	assert.Contains(t, msg, "Statements:\n")
	assert.Contains(t, msg, `  [1] SELECT COUNT(*) FROM "person" WHERE "person"."age" >= ? [18]`)
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Step: "s", Check: "error", Expected: "no error", Actual: "boom"}
	assert.NotContains(t, err.Error(), "Statements")
}
