package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run query-set scenarios",
		Long: `Run YAML query-set scenarios against in-memory SQLite databases.

Each scenario loads its models, schema and fixtures, runs its steps and
checks their expectations. A scenario with a golden/<name>.golden file
next to it must also reproduce the recorded statement trace.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  qset test ./scenarios
  qset test ./scenarios --filter "people*"
  qset test ./scenarios --update
  qset test ./scenarios/people.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, err := harness.RunSuite(cmd.Context(), harness.SuiteOptions{
		Filter: opts.Filter,
		Update: opts.Update,
	}, paths...)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if formatter.Structured() {
		return outputTestStructured(formatter, result)
	}
	return outputTestText(formatter, result)
}

// outputTestStructured outputs the suite result as JSON or YAML.
func outputTestStructured(formatter *OutputFormatter, result *harness.SuiteResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.OK() {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the suite result as text.
func outputTestText(formatter *OutputFormatter, result *harness.SuiteResult) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, s := range result.Scenarios {
		switch {
		case s.Pass && s.Golden == "updated":
			fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
		case s.Pass:
			fmt.Fprintf(w, "✓ %s\n", s.Name)
		default:
			fmt.Fprintf(w, "✗ %s\n", s.Name)
			for _, e := range s.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		formatter.VerboseLog("%s: %s", s.Name, s.Path)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if !result.OK() {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
