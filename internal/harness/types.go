package harness

// TraceEvent is one statement sent to the database during a step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Step   string `json:"step"`
	Op     string `json:"op"`
	Kind   string `json:"kind"` // "query" or "exec"
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step's expectations match.
	Pass bool `json:"pass"`

	// Trace contains every statement in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
