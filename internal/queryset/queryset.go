package queryset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/qset/internal/ir"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/querysql"
)

// DefaultBatchSize is the number of rows fetched per page by At, Size and
// iteration.
const DefaultBatchSize = 255

// Options configures a QuerySet. Executor, Compiler and Populator are
// required.
type Options[T any] struct {
	Executor  Executor
	Compiler  *querysql.Compiler
	Populator Populator[T]

	// BatchSize is the page size for row fetches; DefaultBatchSize when <= 0.
	BatchSize int

	// Logger receives one debug record per executed statement;
	// slog.Default() when nil.
	Logger *slog.Logger
}

// QuerySet is a lazy, chainable view of one model's rows.
//
// The zero value is not usable; obtain one from New or Records.
type QuerySet[T any] struct {
	model string
	spec  queryir.Spec
	opts  *Options[T]
	cache *cache[T]
}

// New returns the query-set of every row of model.
func New[T any](model string, opts Options[T]) QuerySet[T] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return QuerySet[T]{
		model: model,
		spec:  queryir.NewSpec(),
		opts:  &opts,
		cache: newCache[T](),
	}
}

// Records returns a query-set that yields meta.Record values.
func Records(model string, exec Executor, compiler *querysql.Compiler) QuerySet[meta.Record] {
	return New(model, Options[meta.Record]{
		Executor:  exec,
		Compiler:  compiler,
		Populator: RecordPopulator{},
	})
}

// Model returns the model name.
func (q QuerySet[T]) Model() string { return q.model }

// Spec returns the accumulated query specification.
func (q QuerySet[T]) Spec() queryir.Spec { return q.spec }

// CacheID identifies the result cache. Copies share it; chaining does not.
func (q QuerySet[T]) CacheID() uuid.UUID { return q.cache.id }

// Stats returns a snapshot of the result cache.
func (q QuerySet[T]) Stats() Stats {
	q.cache.mu.Lock()
	defer q.cache.mu.Unlock()
	return Stats{
		Fetched:   len(q.cache.rows),
		Exhausted: q.cache.exhausted,
		Counted:   q.cache.counted,
	}
}

func (q QuerySet[T]) String() string {
	return q.model + " " + q.spec.String()
}

func (q QuerySet[T]) derive(spec queryir.Spec) QuerySet[T] {
	return QuerySet[T]{model: q.model, spec: spec, opts: q.opts, cache: newCache[T]()}
}

// All returns the same set with a fresh cache.
func (q QuerySet[T]) All() QuerySet[T] { return q.derive(q.spec) }

// Filter narrows the set to rows also matching p.
func (q QuerySet[T]) Filter(p queryir.Predicate) QuerySet[T] { return q.derive(q.spec.Filter(p)) }

// Exclude removes the rows matching p.
func (q QuerySet[T]) Exclude(p queryir.Predicate) QuerySet[T] { return q.derive(q.spec.Exclude(p)) }

// None returns an empty set. Reads on it never reach the executor.
func (q QuerySet[T]) None() QuerySet[T] { return q.derive(q.spec.None()) }

// OrderBy replaces the ordering. "-field" sorts descending; relation
// paths use "__", e.g. "author__name".
func (q QuerySet[T]) OrderBy(keys ...string) QuerySet[T] { return q.derive(q.spec.OrderBy(keys...)) }

// Limit narrows the window; see queryir.Spec.Limit for the re-basing rule.
func (q QuerySet[T]) Limit(offset, length int) QuerySet[T] {
	return q.derive(q.spec.Limit(offset, length))
}

// SelectRelated fetches foreign-key targets in the same query.
func (q QuerySet[T]) SelectRelated() QuerySet[T] { return q.derive(q.spec.SelectRelated()) }

// Count returns the number of rows in the window. The result is cached;
// once every row has been fetched no query is needed.
func (q QuerySet[T]) Count(ctx context.Context) (int, error) {
	if q.spec.IsNone() {
		return 0, nil
	}

	c := q.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counted {
		return c.count, nil
	}
	if c.exhausted {
		c.count, c.counted = len(c.rows), true
		return c.count, nil
	}

	stmt, err := q.opts.Compiler.Count(q.model, q.spec)
	if err != nil {
		return 0, q.compileError("count", err)
	}
	rows, err := q.query(ctx, "count", stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, q.resultError("count", stmt, fmt.Errorf("expected one value, got %d rows", len(rows)))
	}
	total, err := ir.AsInt64(rows[0][0])
	if err != nil {
		return 0, q.resultError("count", stmt, err)
	}

	n := max(0, int(total)-q.spec.Offset())
	if length, bounded := q.spec.Length(); bounded {
		n = min(n, length)
	}
	c.count, c.counted = n, true
	return n, nil
}

// Exists reports whether the window holds at least one row, answering
// from the cache when it can.
func (q QuerySet[T]) Exists(ctx context.Context) (bool, error) {
	if q.spec.IsNone() {
		return false, nil
	}

	c := q.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case len(c.rows) > 0:
		return true, nil
	case c.exhausted:
		return false, nil
	case c.counted:
		return c.count > 0, nil
	}

	stmt, err := q.opts.Compiler.Exists(q.model, q.spec)
	if err != nil {
		return false, q.compileError("exists", err)
	}
	rows, err := q.query(ctx, "exists", stmt)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Size fetches the whole window into the cache and returns its length.
func (q QuerySet[T]) Size(ctx context.Context) (int, error) {
	if q.spec.IsNone() {
		return 0, nil
	}

	c := q.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.exhausted {
		if err := q.fetch(ctx, "size", len(c.rows)); err != nil {
			return 0, err
		}
	}
	return len(c.rows), nil
}

// At returns the object at index i of the window. A cache miss fetches one
// page starting at the high-water mark and covering at least i.
func (q QuerySet[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	if i < 0 || q.spec.IsNone() {
		return zero, outOfRange(i)
	}
	if length, bounded := q.spec.Length(); bounded && i >= length {
		return zero, outOfRange(i)
	}

	c := q.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < len(c.rows) {
		return c.rows[i], nil
	}
	if !c.exhausted {
		if err := q.fetch(ctx, "at", i); err != nil {
			return zero, err
		}
	}
	if i < len(c.rows) {
		return c.rows[i], nil
	}
	return zero, outOfRange(i)
}

// First returns the first object of the window, or ErrDoesNotExist.
func (q QuerySet[T]) First(ctx context.Context) (T, error) {
	v, err := q.At(ctx, 0)
	if errors.Is(err, ErrIndexOutOfRange) {
		return v, fmt.Errorf("%s: %w", q.model, ErrDoesNotExist)
	}
	return v, err
}

// Get returns the single object of the set that also matches p. It fails
// with ErrDoesNotExist when none does and ErrMultipleObjectsReturned when
// more than one does. The cache is not used.
func (q QuerySet[T]) Get(ctx context.Context, p queryir.Predicate) (T, error) {
	var zero T

	spec := q.spec.Filter(p).Limit(0, 2)
	if spec.IsNone() {
		return zero, fmt.Errorf("%s: %w", q.model, ErrDoesNotExist)
	}

	stmt, err := q.opts.Compiler.Select(q.model, spec)
	if err != nil {
		return zero, q.compileError("get", err)
	}
	layout, err := q.layout(spec)
	if err != nil {
		return zero, q.compileError("get", err)
	}
	rows, err := q.query(ctx, "get", stmt)
	if err != nil {
		return zero, err
	}

	switch len(rows) {
	case 0:
		return zero, fmt.Errorf("%s matching %s: %w", q.model, queryir.String(p), ErrDoesNotExist)
	case 1:
		obj, err := q.opts.Populator.Populate(layout, rows[0])
		if err != nil {
			return zero, q.resultError("get", stmt, err)
		}
		return obj, nil
	default:
		return zero, fmt.Errorf("%s matching %s: %w", q.model, queryir.String(p), ErrMultipleObjectsReturned)
	}
}

// Values returns the window as field name → value maps, selecting only
// fields (every model field when empty). Fields may be relation paths
// such as "author__name". The result is not cached.
func (q QuerySet[T]) Values(ctx context.Context, fields ...string) ([]map[string]any, error) {
	names, rows, decoders, err := q.values(ctx, "values", fields)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(names))
		for i, name := range names {
			if m[name], err = decoders[i](row[i]); err != nil {
				return nil, &ExecutionError{Op: "values", Model: q.model, Err: err}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// ValuesList is Values with positional rows in field order.
func (q QuerySet[T]) ValuesList(ctx context.Context, fields ...string) ([][]any, error) {
	names, rows, decoders, err := q.values(ctx, "values_list", fields)
	if err != nil {
		return nil, err
	}

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		vals := make([]any, len(names))
		for i := range names {
			if vals[i], err = decoders[i](row[i]); err != nil {
				return nil, &ExecutionError{Op: "values_list", Model: q.model, Err: err}
			}
		}
		out = append(out, vals)
	}
	return out, nil
}

func (q QuerySet[T]) values(ctx context.Context, op string, fields []string) ([]string, [][]any, []decoder, error) {
	m, err := q.opts.Compiler.Registry.Model(q.model)
	if err != nil {
		return nil, nil, nil, q.compileError(op, err)
	}
	names := fields
	if len(names) == 0 {
		names = m.FieldNames()
	}
	if q.spec.IsNone() {
		return names, nil, nil, nil
	}

	stmt, err := q.opts.Compiler.Values(q.model, q.spec, names)
	if err != nil {
		return nil, nil, nil, q.compileError(op, err)
	}
	decoders := make([]decoder, len(names))
	for i, name := range names {
		decoders[i] = q.decoderFor(m, name)
	}

	rows, err := q.query(ctx, op, stmt)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, row := range rows {
		if len(row) != len(names) {
			return nil, nil, nil, q.resultError(op, stmt, fmt.Errorf("row has %d columns, want %d", len(row), len(names)))
		}
	}
	return names, rows, decoders, nil
}

type decoder func(raw any) (any, error)

// decoderFor follows a field path through foreign keys and decodes with
// the final field's type.
func (q QuerySet[T]) decoderFor(m meta.Model, path string) decoder {
	parts := strings.Split(path, "__")
	for i, part := range parts {
		f, ok := m.Field(part)
		if !ok {
			break
		}
		if i == len(parts)-1 {
			return f.Decode
		}
		if !f.IsRelation() {
			break
		}
		next, err := q.opts.Compiler.Registry.Model(f.ForeignKey)
		if err != nil {
			break
		}
		m = next
	}
	return func(raw any) (any, error) { return ir.Normalize(raw), nil }
}

// Update assigns values (field name → new value) to every row of the set
// and returns the number of rows changed. The cache is dropped.
func (q QuerySet[T]) Update(ctx context.Context, values map[string]any) (int64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyUpdate
	}
	if q.spec.IsNone() {
		return 0, nil
	}

	stmt, err := q.opts.Compiler.Update(q.model, q.spec, values)
	if err != nil {
		return 0, q.compileError("update", err)
	}
	n, err := q.exec(ctx, "update", stmt)
	if err != nil {
		return 0, err
	}

	q.invalidate()
	return n, nil
}

// Remove deletes every row of the set, and rows of dependent models
// first, then drops the cache. It returns the number of rows deleted
// from the model's own table.
func (q QuerySet[T]) Remove(ctx context.Context) (int64, error) {
	if q.spec.IsNone() {
		return 0, nil
	}

	stmts, err := q.opts.Compiler.Delete(q.model, q.spec)
	if err != nil {
		return 0, q.compileError("remove", err)
	}
	defer q.invalidate()

	var n int64
	for _, stmt := range stmts {
		if n, err = q.exec(ctx, "remove", stmt); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Slice fetches the whole window and returns a copy of it.
func (q QuerySet[T]) Slice(ctx context.Context) ([]T, error) {
	if _, err := q.Size(ctx); err != nil {
		return nil, err
	}
	q.cache.mu.Lock()
	defer q.cache.mu.Unlock()
	return slices.Clone(q.cache.rows), nil
}

// Iter yields the window in order, fetching page by page through the
// cache. A fetch failure is yielded once and ends the iteration.
func (q QuerySet[T]) Iter(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			v, err := q.At(ctx, i)
			if errors.Is(err, ErrIndexOutOfRange) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Begin returns a cursor at the window start.
func (q QuerySet[T]) Begin() Cursor[T] { return Cursor[T]{qs: q} }

// End returns a cursor one past the last row. It fetches the whole window.
func (q QuerySet[T]) End(ctx context.Context) (Cursor[T], error) {
	n, err := q.Size(ctx)
	if err != nil {
		return Cursor[T]{}, err
	}
	return Cursor[T]{qs: q, offset: n}, nil
}

// fetch runs one page query covering index through. Callers hold the
// cache lock. Nothing in the cache changes unless every row populates.
func (q QuerySet[T]) fetch(ctx context.Context, op string, through int) error {
	c := q.cache
	hwm := len(c.rows)

	n := max(q.opts.BatchSize, through+1-hwm)
	length, bounded := q.spec.Length()
	if bounded {
		n = min(n, length-hwm)
	}
	if n <= 0 {
		c.exhausted = true
		return nil
	}

	page := q.spec.Limit(hwm, n)
	stmt, err := q.opts.Compiler.Select(q.model, page)
	if err != nil {
		return q.compileError(op, err)
	}
	layout, err := q.layout(page)
	if err != nil {
		return q.compileError(op, err)
	}
	rows, err := q.query(ctx, op, stmt)
	if err != nil {
		return err
	}

	objs := make([]T, 0, len(rows))
	for _, row := range rows {
		obj, err := q.opts.Populator.Populate(layout, row)
		if err != nil {
			return q.resultError(op, stmt, err)
		}
		objs = append(objs, obj)
	}

	c.rows = append(c.rows, objs...)
	if len(rows) < n || (bounded && len(c.rows) >= length) {
		c.exhausted = true
		c.count, c.counted = len(c.rows), true
	}
	return nil
}

func (q QuerySet[T]) layout(spec queryir.Spec) (Layout, error) {
	m, err := q.opts.Compiler.Registry.Model(q.model)
	if err != nil {
		return Layout{}, err
	}
	l := Layout{Model: m}
	if spec.Related() {
		if l.Related, err = q.opts.Compiler.Related(q.model); err != nil {
			return Layout{}, err
		}
	}
	return l, nil
}

func (q QuerySet[T]) invalidate() {
	q.cache.mu.Lock()
	defer q.cache.mu.Unlock()
	q.cache.invalidate()
}

func (q QuerySet[T]) query(ctx context.Context, op string, stmt querysql.Statement) ([][]any, error) {
	rows, err := q.opts.Executor.Query(ctx, stmt.SQL, stmt.Params)
	q.opts.Logger.DebugContext(ctx, "query executed",
		"op", op,
		"model", q.model,
		"cache", q.cache.id,
		"sql", stmt.SQL,
		"params", len(stmt.Params),
	)
	if err != nil {
		return nil, &ExecutionError{Op: op, Model: q.model, SQL: stmt.SQL, Err: err}
	}
	return rows, nil
}

func (q QuerySet[T]) exec(ctx context.Context, op string, stmt querysql.Statement) (int64, error) {
	n, err := q.opts.Executor.Exec(ctx, stmt.SQL, stmt.Params)
	q.opts.Logger.DebugContext(ctx, "statement executed",
		"op", op,
		"model", q.model,
		"cache", q.cache.id,
		"sql", stmt.SQL,
		"params", len(stmt.Params),
	)
	if err != nil {
		return 0, &ExecutionError{Op: op, Model: q.model, SQL: stmt.SQL, Err: err}
	}
	return n, nil
}

func (q QuerySet[T]) compileError(op string, err error) error {
	return &ExecutionError{Op: op, Model: q.model, Err: err}
}

func (q QuerySet[T]) resultError(op string, stmt querysql.Statement, err error) error {
	return &ExecutionError{Op: op, Model: q.model, SQL: stmt.SQL, Err: err}
}

func outOfRange(i int) error {
	return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
}
