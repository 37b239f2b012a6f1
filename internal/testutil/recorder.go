package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/qset/internal/store"
)

// Call is one statement seen by a RecordingExecutor.
type Call struct {
	Seq    int64  `json:"seq" yaml:"seq"`
	Kind   string `json:"kind" yaml:"kind"` // "query" or "exec"
	SQL    string `json:"sql" yaml:"sql"`
	Params []any  `json:"params" yaml:"params"`
}

// RecordingExecutor records every statement before forwarding it, so
// tests can assert how many round-trips an operation made and what it
// sent.
//
// With a nil next executor, queries return no rows and execs affect none.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingExecutor struct {
	next store.Executor

	mu       sync.Mutex
	seq      int64
	calls    []Call
	failures []error
}

// NewRecordingExecutor wraps next.
func NewRecordingExecutor(next store.Executor) *RecordingExecutor {
	return &RecordingExecutor{next: next}
}

// Query records and forwards a query.
func (r *RecordingExecutor) Query(ctx context.Context, sql string, params []any) ([][]any, error) {
	if err := r.record("query", sql, params); err != nil {
		return nil, err
	}
	if r.next == nil {
		return [][]any{}, nil
	}
	return r.next.Query(ctx, sql, params)
}

// Exec records and forwards a statement.
func (r *RecordingExecutor) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	if err := r.record("exec", sql, params); err != nil {
		return 0, err
	}
	if r.next == nil {
		return 0, nil
	}
	return r.next.Exec(ctx, sql, params)
}

// record appends the call and pops a queued failure, if any.
func (r *RecordingExecutor) record(kind, sql string, params []any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.calls = append(r.calls, Call{Seq: r.seq, Kind: kind, SQL: sql, Params: slices.Clone(params)})

	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return err
	}
	return nil
}

// FailNext makes the next call return err without reaching the wrapped
// executor. Queued failures are consumed in order.
func (r *RecordingExecutor) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

// Calls returns a copy of the recorded calls in order.
func (r *RecordingExecutor) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns the number of recorded calls.
func (r *RecordingExecutor) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Statements returns the recorded SQL texts in order.
func (r *RecordingExecutor) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.SQL
	}
	return out
}

// Reset forgets recorded calls and queued failures. Sequence numbers
// restart at 1.
func (r *RecordingExecutor) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = 0
	r.calls = nil
	r.failures = nil
}
