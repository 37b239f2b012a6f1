package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid" yaml:"valid"`
	Models []string                   `json:"models,omitempty" yaml:"models,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Cycles []compiler.CycleWarning    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate CUE model declarations",
		Long: `Validate the CUE model declarations in a directory.

Checks syntax, field types, names, primary keys and foreign-key targets,
and reports foreign-key cycles. A cycle made only of non-nullable links
is a warning: no row on it can be inserted first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := compiler.LoadDir(modelsDir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, compiler.ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			line := 0
			if loadErr.Pos.IsValid() {
				line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    line,
			})
		}
	}

	names := make([]string, len(loadResult.Models))
	for i, m := range loadResult.Models {
		formatter.VerboseLog("Validating model: %s", m.Name)
		names[i] = m.Name
	}
	validationErrors = append(validationErrors, compiler.Validate(loadResult.Models)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:  true,
		Models: names,
		Cycles: compiler.AnalyzeRelations(loadResult.Models),
	})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %d model(s) valid\n", len(result.Models))
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "  %s: %s\n", c.Level, c.Message)
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Structured() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return failure
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return failure
}
