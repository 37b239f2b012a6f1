package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/queryir"
	"github.com/roach88/qset/internal/querysql"
)

// sqlOps lists the statement kinds the sql command can print.
var sqlOps = []string{"select", "count", "exists", "values", "update", "delete"}

// StatementOutput is one compiled statement.
type StatementOutput struct {
	SQL         string `json:"sql" yaml:"sql"`
	Params      []any  `json:"params" yaml:"params"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// SQLResult is the structured output of the sql command.
type SQLResult struct {
	Model      string            `json:"model" yaml:"model"`
	Dialect    string            `json:"dialect" yaml:"dialect"`
	Spec       string            `json:"spec" yaml:"spec"`
	Statements []StatementOutput `json:"statements" yaml:"statements"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql [select|count|exists|values|update|delete] [args...]",
		Short: "Print the statements a query-set would run",
		Long: `Compile the query-set for the configured dialect and print the
statements without connecting to a database. The operation defaults to
select; values takes field names and update takes field=value pairs.

Examples:
  qset sql --model Person --filter age__gte=18 count
  qset sql --model Post --driver postgres values title author__name
  qset sql --model Author --filter name=Ann delete`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runSQL(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	opts.resolve()

	op := "select"
	if len(args) > 0 {
		op, args = args[0], args[1:]
	}
	if !slices.Contains(sqlOps, op) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("unknown operation %q: must be one of %v", op, sqlOps))
	}

	dialect, err := querysql.DialectFor(opts.Driver)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	reg, err := opts.loadRegistry()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeModels, err)
	}
	comp := querysql.New(dialect, reg)

	qs, err := opts.querySet(nil)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}
	spec := qs.Spec()

	var stmts []querysql.Statement
	switch op {
	case "select":
		stmts, err = one(comp.Select(opts.Model, spec))
	case "count":
		stmts, err = one(comp.Count(opts.Model, spec))
	case "exists":
		stmts, err = one(comp.Exists(opts.Model, spec))
	case "values":
		stmts, err = one(comp.Values(opts.Model, spec, args))
	case "update":
		values, perr := parseAssignments(args)
		if perr != nil {
			return f.Fail(ExitCommandError, ErrCodeLookup, perr)
		}
		stmts, err = one(comp.Update(opts.Model, spec, values))
	case "delete":
		stmts, err = comp.Delete(opts.Model, spec)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeQuery, err)
	}

	result := SQLResult{
		Model:      opts.Model,
		Dialect:    dialect.Name(),
		Spec:       spec.String(),
		Statements: make([]StatementOutput, len(stmts)),
		Warnings:   queryir.Validate(spec).Warnings,
	}
	for i, s := range stmts {
		fp, err := s.Fingerprint()
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		params := s.Params
		if params == nil {
			params = []any{}
		}
		result.Statements[i] = StatementOutput{SQL: s.SQL, Params: params, Fingerprint: fp}
	}

	if f.Structured() {
		return f.Success(result)
	}

	w := f.Writer
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "-- warning: %s\n", warning)
	}
	for _, s := range result.Statements {
		fmt.Fprintf(w, "%s;\n", s.SQL)
		if len(s.Params) > 0 {
			fmt.Fprintf(w, "-- params: %v\n", s.Params)
		}
		f.VerboseLog("fingerprint %s", s.Fingerprint)
	}
	return nil
}

func one(s querysql.Statement, err error) ([]querysql.Statement, error) {
	if err != nil {
		return nil, err
	}
	return []querysql.Statement{s}, nil
}
