package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Executor is the statement-running contract shared by Store,
// PgxExecutor and InstrumentedExecutor.
type Executor interface {
	Query(ctx context.Context, sql string, params []any) ([][]any, error)
	Exec(ctx context.Context, sql string, params []any) (int64, error)
}

// Metrics holds the statement collectors. Create one per registerer.
type Metrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the statement collectors with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qset_statements_total",
				Help: "Total number of statements executed, by kind and status",
			},
			[]string{"kind", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qset_statement_duration_seconds",
				Help:    "Statement execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// InstrumentedExecutor records metrics and a debug log line for every
// statement it forwards.
type InstrumentedExecutor struct {
	next    Executor
	metrics *Metrics
	logger  *slog.Logger
}

// Instrument wraps next. A nil logger means slog.Default().
func Instrument(next Executor, metrics *Metrics, logger *slog.Logger) *InstrumentedExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedExecutor{next: next, metrics: metrics, logger: logger}
}

// Query implements Executor.
func (e *InstrumentedExecutor) Query(ctx context.Context, sql string, params []any) ([][]any, error) {
	start := time.Now()
	rows, err := e.next.Query(ctx, sql, params)
	e.observe(ctx, sql, start, err, "rows", len(rows))
	return rows, err
}

// Exec implements Executor.
func (e *InstrumentedExecutor) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	start := time.Now()
	n, err := e.next.Exec(ctx, sql, params)
	e.observe(ctx, sql, start, err, "affected", n)
	return n, err
}

func (e *InstrumentedExecutor) observe(ctx context.Context, sql string, start time.Time, err error, countKey string, count any) {
	elapsed := time.Since(start)
	kind := StatementKind(sql)
	status := "ok"
	if err != nil {
		status = "error"
	}

	e.metrics.statements.WithLabelValues(kind, status).Inc()
	e.metrics.duration.WithLabelValues(kind).Observe(elapsed.Seconds())

	if err != nil {
		e.logger.WarnContext(ctx, "statement failed",
			"kind", kind,
			"duration", elapsed,
			"error", err,
		)
		return
	}
	e.logger.DebugContext(ctx, "statement complete",
		"kind", kind,
		"duration", elapsed,
		countKey, count,
	)
}

// StatementKind returns the lowercased leading keyword of a statement
// ("select", "update", "delete", ...), or "other".
func StatementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "other"
	}
	switch kw := strings.ToLower(fields[0]); kw {
	case "select", "insert", "update", "delete", "create", "drop", "pragma", "with":
		return kw
	default:
		return "other"
	}
}
