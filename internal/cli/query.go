package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/compiler"
	"github.com/roach88/qset/internal/config"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/queryset"
	"github.com/roach88/qset/internal/querysql"
	"github.com/roach88/qset/internal/store"
)

// DriverPgx selects the native pgx executor instead of database/sql.
const DriverPgx = "pgx"

// QueryOptions holds the flags shared by every command that builds a
// query-set.
type QueryOptions struct {
	*RootOptions
	DB       string
	Driver   string
	Models   string
	Model    string
	Filters  []string // lookup=value, ANDed together
	Excludes []string // lookup=value, each excluded on its own
	Order    []string
	Offset   int
	Limit    int // negative means no limit
	Related  bool
}

// addQueryFlags registers the query flags on cmd.
func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.DB, "db", "", "database DSN (default from config)")
	f.StringVar(&opts.Driver, "driver", "", "driver: sqlite3, sqlite, postgres, mysql or pgx (default from config)")
	f.StringVar(&opts.Models, "models", "", "CUE models directory (default from config)")
	f.StringVarP(&opts.Model, "model", "m", "", "model to query")
	f.StringArrayVar(&opts.Filters, "filter", nil, "keep rows matching lookup=value (repeatable)")
	f.StringArrayVar(&opts.Excludes, "exclude", nil, "drop rows matching lookup=value (repeatable)")
	f.StringSliceVar(&opts.Order, "order", nil, "order by fields, '-' prefix for descending")
	f.IntVar(&opts.Offset, "offset", 0, "rows to skip")
	f.IntVar(&opts.Limit, "limit", -1, "maximum rows, negative for no limit")
	f.BoolVar(&opts.Related, "related", false, "fetch foreign-key targets in the same query")
	_ = cmd.MarkFlagRequired("model")
}

// resolve fills unset connection flags from the config.
func (o *QueryOptions) resolve() {
	cfg := o.settings()
	if o.DB == "" {
		o.DB = cfg.DSN
	}
	if o.Driver == "" {
		o.Driver = cfg.Driver
	}
	if o.Models == "" {
		o.Models = cfg.Models
	}
}

// session is an open database plus the compiler for its dialect.
type session struct {
	exec     store.Executor
	compiler *querysql.Compiler
	metrics  *prometheus.Registry
	logger   *slog.Logger
	closeFn  func()
}

// Close releases the connection and logs statement totals at debug level.
func (s *session) Close() {
	logStatementTotals(s.logger, s.metrics)
	s.closeFn()
}

// loadRegistry reads the models directory.
func (o *QueryOptions) loadRegistry() (*meta.Registry, error) {
	reg, err := compiler.LoadRegistry(o.Models)
	if err != nil {
		return nil, fmt.Errorf("models %s: %w", o.Models, err)
	}
	return reg, nil
}

// open connects to the configured database. Every statement is counted in
// a private Prometheus registry and logged at debug level.
func (o *QueryOptions) open(ctx context.Context, f *OutputFormatter) (*session, error) {
	o.resolve()
	logger := o.logger()

	reg, err := o.loadRegistry()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeModels, err)
	}
	if o.DB == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig,
			errors.New("no database: set --db, dsn in "+config.DefaultFile+" or "+config.EnvPrefix+"_DSN"))
	}

	var (
		raw     store.Executor
		dialect querysql.Dialect
		closeFn func()
	)
	if o.Driver == DriverPgx {
		p, err := store.OpenPgx(ctx, o.DB)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeConnect, err)
		}
		raw, dialect, closeFn = p, p.Dialect(), p.Close
	} else {
		s, err := store.Open(ctx, store.Config{Driver: o.Driver, DSN: o.DB})
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeConnect, err)
		}
		raw, dialect, closeFn = s, s.Dialect(), func() { s.Close() }
	}
	logger.Debug("connected", "driver", o.Driver, "dialect", dialect.Name())

	metrics := prometheus.NewRegistry()
	return &session{
		exec:     store.Instrument(raw, store.NewMetrics(metrics), logger),
		compiler: querysql.New(dialect, reg),
		metrics:  metrics,
		logger:   logger,
		closeFn:  closeFn,
	}, nil
}

// querySet builds the model's query-set from the flags. A nil session
// yields a query-set that is only good for its Spec.
func (o *QueryOptions) querySet(s *session) (queryset.QuerySet[meta.Record], error) {
	opts := queryset.Options[meta.Record]{
		Populator: queryset.RecordPopulator{},
		BatchSize: o.settings().BatchSize,
		Logger:    o.logger(),
	}
	if s != nil {
		opts.Executor = s.exec
		opts.Compiler = s.compiler
	}
	qs := queryset.New(o.Model, opts)

	filter, err := parseLookups(o.Filters)
	if err != nil {
		return qs, err
	}
	if filter != nil {
		qs = qs.Filter(filter)
	}
	for _, e := range o.Excludes {
		p, err := parseLookups([]string{e})
		if err != nil {
			return qs, err
		}
		qs = qs.Exclude(p)
	}
	if len(o.Order) > 0 {
		qs = qs.OrderBy(o.Order...)
	}
	if o.Offset != 0 || o.Limit >= 0 {
		qs = qs.Limit(o.Offset, o.Limit)
	}
	if o.Related {
		qs = qs.SelectRelated()
	}
	return qs, nil
}

// parseLookups ANDs "lookup=value" arguments in order. No arguments
// yield nil.
func parseLookups(args []string) (queryir.Predicate, error) {
	var p queryir.Predicate
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("lookup %q: want lookup=value", arg)
		}
		c, err := queryir.Lookup(key, parseValue(raw))
		if err != nil {
			return nil, err
		}
		if p == nil {
			p = c
		} else {
			p = queryir.AndWith(p, c)
		}
	}
	return p, nil
}

// parseAssignments turns "field=value" arguments into update values.
func parseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("assignment %q: want field=value", arg)
		}
		if _, dup := values[field]; dup {
			return nil, fmt.Errorf("assignment %q: field assigned twice", arg)
		}
		values[field] = parseValue(raw)
	}
	return values, nil
}

// parseValue reads a command-line value: null, true and false, integers
// and floats get their types; a double-quoted value is always a string;
// anything else is taken verbatim.
func parseValue(raw string) any {
	return queryir.ParseScalar(raw)
}

// queryFailure maps a query-set error to an exit code and error code.
func queryFailure(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, queryset.ErrDoesNotExist):
		return f.Fail(ExitFailure, ErrCodeDoesNotExist, err)
	case errors.Is(err, queryset.ErrMultipleObjectsReturned):
		return f.Fail(ExitFailure, ErrCodeMultiple, err)
	case queryir.IsInvalidPredicate(err):
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	default:
		return f.Fail(ExitCommandError, ErrCodeQuery, err)
	}
}

// logStatementTotals logs the statement counters gathered during a
// command.
func logStatementTotals(logger *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Debug("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		if mf.GetName() != "qset_statements_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			attrs := []any{"count", m.GetCounter().GetValue()}
			for _, l := range m.GetLabel() {
				attrs = append(attrs, l.GetName(), l.GetValue())
			}
			logger.Debug("statements", attrs...)
		}
	}
}
