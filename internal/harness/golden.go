package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qset/internal/ir"
)

// TraceSnapshot captures the statements a scenario sent.
// Lines use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// Marshal renders the snapshot as a header line followed by one canonical
// JSON object per statement, each newline-terminated.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	header, err := ir.MarshalCanonical(map[string]any{
		"scenario":   s.ScenarioName,
		"statements": len(s.Trace),
	})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range s.Trace {
		params := event.Params
		if params == nil {
			params = []any{}
		}
		line, err := ir.MarshalCanonical(map[string]any{
			"seq":    event.Seq,
			"step":   event.Step,
			"op":     event.Op,
			"kind":   event.Kind,
			"sql":    event.SQL,
			"params": params,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the statement trace
// against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Step failures are left in the
// result for the caller to assert; a trace mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
