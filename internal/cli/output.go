package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario or validation failure, or no matching row
	ExitCommandError = 2 // Command error (invalid paths, bad lookups, database unreachable, etc.)
)

// Error codes reported in JSON and YAML output.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E010" // Missing or invalid setting
	ErrCodeModels       = "E011" // Models could not be loaded
	ErrCodeConnect      = "E012" // Database could not be opened
	ErrCodeLookup       = "E013" // Malformed lookup or assignment
	ErrCodeQuery        = "E014" // Statement failed to compile or run
	ErrCodeDoesNotExist = "E015" // get matched no row
	ErrCodeMultiple     = "E016" // get matched more than one row
	ErrCodeTestFailed   = "E020" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles text, JSON and YAML output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard structured response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status" yaml:"status"`                   // "ok" or "error"
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`                           // "E001", "E002", etc.
	Message string `json:"message" yaml:"message"`                     // human-readable message
	Details any    `json:"details,omitempty" yaml:"details,omitempty"` // additional context
}

// Structured reports whether output is JSON or YAML.
func (f *OutputFormatter) Structured() bool {
	return f.Format == "json" || f.Format == "yaml"
}

// Encode writes a response in the structured format.
func (f *OutputFormatter) Encode(resp CLIResponse) error {
	if f.Format == "yaml" {
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Structured() {
		return f.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Structured() {
		return f.Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError carrying exit.
func (f *OutputFormatter) Fail(exit int, code string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exit, code, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When output is structured, verbose logs go to ErrWriter to avoid corrupting it.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
