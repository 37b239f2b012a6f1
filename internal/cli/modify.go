package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ModifyResult is the structured output of update and delete.
type ModifyResult struct {
	Model    string `json:"model" yaml:"model"`
	Affected int64  `json:"affected" yaml:"affected"`
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update field=value...",
		Short: "Set fields on every row of a query-set",
		Long: `Run one UPDATE over the rows matched by the filters and print the
number of rows changed. A window set with --offset or --limit is applied
through the primary key.

Values are typed: null, true, false and numbers become SQL values of
that type; wrap a value in double quotes to keep it a string.

Examples:
  qset update --model Person --filter age__gte=18 status=archived
  qset update --model Post --filter id=2 published=true score=null`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runUpdate(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	values, err := parseAssignments(args)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}

	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}
	n, err := qs.Update(cmd.Context(), values)
	if err != nil {
		return queryFailure(f, err)
	}
	return outputModify(f, "updated", ModifyResult{Model: opts.Model, Affected: n})
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	QueryOptions
	Yes bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every row of a query-set and the rows depending on it",
		Long: `Delete the rows matched by the filters. Rows of other models that
reference them through foreign keys are deleted first, deepest first.
The printed count is the number of rows removed from the queried model.

Deleting without any --filter or --exclude removes the whole table and
needs --yes.

Examples:
  qset delete --model Author --filter name=Ann
  qset delete --model Comment --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd)
		},
	}
	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "allow deleting without filters")
	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if len(opts.Filters) == 0 && len(opts.Excludes) == 0 && !opts.Yes {
		return f.Fail(ExitCommandError, ErrCodeLookup,
			errors.New("refusing to delete every "+opts.Model+" row without --yes"))
	}

	s, err := opts.open(cmd.Context(), f)
	if err != nil {
		return err
	}
	defer s.Close()

	qs, err := opts.querySet(s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLookup, err)
	}
	n, err := qs.Remove(cmd.Context())
	if err != nil {
		return queryFailure(f, err)
	}
	return outputModify(f, "deleted", ModifyResult{Model: opts.Model, Affected: n})
}

func outputModify(f *OutputFormatter, verb string, res ModifyResult) error {
	if f.Structured() {
		return f.Success(res)
	}
	fmt.Fprintf(f.Writer, "%s %d %s row(s)\n", verb, res.Affected, res.Model)
	return nil
}
