package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/ir"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
)

// CountResult is the structured output of count.
type CountResult struct {
	Model string `json:"model" yaml:"model"`
	Count int    `json:"count" yaml:"count"`
}

// RowsResult is the structured output of list, get and values.
type RowsResult struct {
	Model string `json:"model" yaml:"model"`
	Count int    `json:"count" yaml:"count"`
	Rows  any    `json:"rows" yaml:"rows"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the rows of a query-set",
		Long: `Count the rows matched by the filters, honouring --offset and --limit.

Examples:
  qset count --model Person --filter age__gte=18 --exclude status=banned
  qset count --model Post --filter author__name__istartswith=a`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runCount(opts *QueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}
	n, err := qs.Count(cmd.Context())
	if err != nil {
		return queryFailure(f, err)
	}

	if f.Structured() {
		return f.Success(CountResult{Model: opts.Model, Count: n})
	}
	fmt.Fprintln(f.Writer, n)
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the rows of a query-set",
		Long: `Print every row of the query-set, fetched in pages of batch_size rows.

Text output prints one canonical JSON object per row. With --related,
foreign keys hold the nested related row.

Examples:
  qset list --model Person --order -age --limit 5
  qset list --model Comment --related --format yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runList(opts *QueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}

	rows := []meta.Record{}
	for rec, err := range qs.Iter(cmd.Context()) {
		if err != nil {
			return queryFailure(f, err)
		}
		rows = append(rows, rec)
	}
	f.VerboseLog("fetched %d row(s), cache %s", len(rows), qs.CacheID())

	if f.Structured() {
		return f.Success(RowsResult{Model: opts.Model, Count: len(rows), Rows: rows})
	}
	return writeLines(f, rows)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the single row matching the filters",
		Long: `Fetch exactly one row. Fails with exit code 1 when no row or more
than one row matches.

Examples:
  qset get --model Person --filter name=Eve
  qset get --model Post --filter id=3 --related`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runGet(opts *QueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}
	rec, err := qs.Get(cmd.Context(), queryir.All{})
	if err != nil {
		return queryFailure(f, err)
	}

	if f.Structured() {
		return f.Success(RowsResult{Model: opts.Model, Count: 1, Rows: []meta.Record{rec}})
	}
	return writeLines(f, []meta.Record{rec})
}

// ValuesOptions holds flags for the values command.
type ValuesOptions struct {
	QueryOptions
	Flat bool // print lists instead of objects
}

// NewValuesCommand creates the values command.
func NewValuesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValuesOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "values [field...]",
		Short: "Print selected fields of each row",
		Long: `Print the named fields of each row, following foreign keys through
"__" paths such as author__name. With no fields, every field of the
model is printed.

Examples:
  qset values --model Post title author__name editor__name
  qset values --model Person --flat name age --order age`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValues(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.Flat, "flat", false, "print each row as a list of values")
	return cmd
}

func runValues(opts *ValuesOptions, fields []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}

	if opts.Flat {
		rows, err := qs.ValuesList(cmd.Context(), fields...)
		if err != nil {
			return queryFailure(f, err)
		}
		if f.Structured() {
			return f.Success(RowsResult{Model: opts.Model, Count: len(rows), Rows: rows})
		}
		return writeLines(f, rows)
	}

	rows, err := qs.Values(cmd.Context(), fields...)
	if err != nil {
		return queryFailure(f, err)
	}
	if f.Structured() {
		return f.Success(RowsResult{Model: opts.Model, Count: len(rows), Rows: rows})
	}
	return writeLines(f, rows)
}

// writeLines prints each value as one line of canonical JSON.
func writeLines[T any](f *OutputFormatter, rows []T) error {
	var buf strings.Builder
	for _, row := range rows {
		line, err := ir.MarshalCanonical(row)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	_, err := fmt.Fprint(f.Writer, buf.String())
	return err
}
