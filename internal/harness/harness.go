package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/roach88/qset/internal/compiler"
	"github.com/roach88/qset/internal/ir"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/queryset"
	"github.com/roach88/qset/internal/querysql"
	"github.com/roach88/qset/internal/store"
	"github.com/roach88/qset/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	recorder *testutil.RecordingExecutor
	compiler *querysql.Compiler
	batch    int
	logger   *slog.Logger
}

// outcome is what a step produced. Only the fields its op sets are used.
type outcome struct {
	count  *int64
	exists *bool
	rows   []any
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and validate the CUE models
// 3. Run the schema script, schema statements and fixtures
// 4. Execute steps, checking each step's expectations
// 5. Return result with pass/fail, trace, and errors
//
// A returned error means the scenario could not be set up; step failures
// are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite3, DSN: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg, err := compiler.LoadRegistry(scenario.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	if err := setup(ctx, st, scenario); err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	h := &Harness{
		recorder: testutil.NewRecordingExecutor(st),
		compiler: querysql.New(st.Dialect(), reg),
		batch:    scenario.BatchSize,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.runStep(ctx, i, step, result)
	}
	return result, nil
}

// setup runs the schema file, inline schema and fixtures, in that order.
func setup(ctx context.Context, st *store.Store, s *Scenario) error {
	if s.SchemaFile != "" {
		script, err := os.ReadFile(s.SchemaFile)
		if err != nil {
			return err
		}
		if err := st.ExecScript(ctx, string(script)); err != nil {
			return fmt.Errorf("%s: %w", s.SchemaFile, err)
		}
	}
	for i, stmt := range s.Schema {
		if err := st.ExecScript(ctx, stmt); err != nil {
			return fmt.Errorf("schema[%d]: %w", i, err)
		}
	}

	d := st.Dialect()
	for i, f := range s.Fixtures {
		for j, row := range f.Rows {
			cols := slices.Sorted(maps.Keys(row))
			quoted := make([]string, len(cols))
			phs := make([]string, len(cols))
			params := make([]any, len(cols))
			for k, c := range cols {
				quoted[k] = d.Quote(c)
				phs[k] = d.Placeholder(k + 1)
				params[k] = row[c]
			}
			sql := "INSERT INTO " + d.Quote(f.Table) +
				" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(phs, ", ") + ")"
			if _, err := st.Exec(ctx, sql, params); err != nil {
				return fmt.Errorf("fixtures[%d] %s row %d: %w", i, f.Table, j, err)
			}
		}
	}
	return nil
}

// runStep executes one step, appends its statements to the trace and
// records every failed expectation.
func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) {
	name := step.Name
	if name == "" {
		name = fmt.Sprintf("steps[%d]", i)
	}

	before := h.recorder.Count()
	out, err := h.execute(ctx, step)
	calls := h.recorder.Calls()[before:]

	events := make([]TraceEvent, len(calls))
	for j, c := range calls {
		events[j] = TraceEvent{Seq: c.Seq, Step: name, Op: step.Op, Kind: c.Kind, SQL: c.SQL, Params: c.Params}
	}
	result.Trace = append(result.Trace, events...)

	for _, failure := range checkExpect(name, step.Expect, out, err, events) {
		result.AddError(failure.Error())
	}

	h.logger.Info("step completed",
		"step", name,
		"op", step.Op,
		"model", step.Model,
		"statements", len(calls),
		"error", err,
	)
}

// build applies the step's chain to the model's full set.
func (h *Harness) build(step Step) (queryset.QuerySet[meta.Record], error) {
	qs := queryset.New(step.Model, queryset.Options[meta.Record]{
		Executor:  h.recorder,
		Compiler:  h.compiler,
		Populator: queryset.RecordPopulator{},
		BatchSize: h.batch,
		Logger:    h.logger,
	})

	for i, l := range step.Chain {
		switch {
		case l.Filter != nil:
			p, err := queryir.Lookups(l.Filter)
			if err != nil {
				return qs, fmt.Errorf("chain[%d]: %w", i, err)
			}
			qs = qs.Filter(p)
		case l.Exclude != nil:
			p, err := queryir.Lookups(l.Exclude)
			if err != nil {
				return qs, fmt.Errorf("chain[%d]: %w", i, err)
			}
			qs = qs.Exclude(p)
		case l.OrderBy != nil:
			qs = qs.OrderBy(l.OrderBy...)
		case l.Limit != nil:
			qs = qs.Limit(l.Limit[0], l.Limit[1])
		case l.None:
			qs = qs.None()
		case l.SelectRelated:
			qs = qs.SelectRelated()
		}
	}
	return qs, nil
}

func (h *Harness) execute(ctx context.Context, step Step) (outcome, error) {
	qs, err := h.build(step)
	if err != nil {
		return outcome{}, err
	}

	switch step.Op {
	case OpCount:
		n, err := qs.Count(ctx)
		return scalar(int64(n)), err

	case OpSize:
		n, err := qs.Size(ctx)
		return scalar(int64(n)), err

	case OpExists:
		ok, err := qs.Exists(ctx)
		return outcome{exists: &ok}, err

	case OpAt:
		idx, err := ir.AsInt64(step.Args["index"])
		if err != nil {
			return outcome{}, fmt.Errorf("args.index: %w", err)
		}
		rec, err := qs.At(ctx, int(idx))
		if err != nil {
			return outcome{}, err
		}
		return list([]any{rec}), nil

	case OpGet:
		lookups, ok := step.Args["lookups"].(map[string]any)
		if !ok {
			return outcome{}, fmt.Errorf("args.lookups must be a map")
		}
		p, err := queryir.Lookups(lookups)
		if err != nil {
			return outcome{}, err
		}
		rec, err := qs.Get(ctx, p)
		if err != nil {
			return outcome{}, err
		}
		return list([]any{rec}), nil

	case OpValues:
		fields, err := stringList(step.Args["fields"])
		if err != nil {
			return outcome{}, err
		}
		rows, err := qs.Values(ctx, fields...)
		if err != nil {
			return outcome{}, err
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return list(out), nil

	case OpValuesList:
		fields, err := stringList(step.Args["fields"])
		if err != nil {
			return outcome{}, err
		}
		rows, err := qs.ValuesList(ctx, fields...)
		if err != nil {
			return outcome{}, err
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return list(out), nil

	case OpUpdate:
		set, ok := step.Args["set"].(map[string]any)
		if !ok {
			return outcome{}, fmt.Errorf("args.set must be a map")
		}
		n, err := qs.Update(ctx, set)
		return scalar(n), err

	case OpRemove:
		n, err := qs.Remove(ctx)
		return scalar(n), err

	case OpIterate:
		out := []any{}
		for rec, err := range qs.Iter(ctx) {
			if err != nil {
				return outcome{}, err
			}
			out = append(out, rec)
		}
		return list(out), nil
	}
	return outcome{}, fmt.Errorf("unknown op %q", step.Op)
}

func scalar(n int64) outcome { return outcome{count: &n} }

func list(rows []any) outcome {
	n := int64(len(rows))
	return outcome{count: &n, rows: rows}
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("args.fields must be a list")
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("args.fields[%d] must be a string", i)
		}
		out[i] = s
	}
	return out, nil
}
