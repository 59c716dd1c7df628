package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed or check found broken orderings
	ExitCommandError = 2 // Command error (bad flags, unreadable config, database not found)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeConfig     = "E002" // Config file invalid or unreadable
	ErrCodeOpenFailed = "E003" // Database could not be opened
	ErrCodeNotFound   = "E005" // Item not found
	ErrCodeConflict   = "E010" // Ordering conflict (retry)
	ErrCodeProgrammer = "E011" // Invalid use of the ordering API
	ErrCodeStore      = "E012" // Store failure during an ordering operation
	ErrCodeCheck      = "E020" // Check found a broken ordering
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
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Phase   string `json:"phase,omitempty"`   // ordering phase that failed
	Details any    `json:"details,omitempty"` // additional context
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
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
	return f.write(&CLIError{Code: code, Message: message, Details: details})
}

func (f *OutputFormatter) write(cliErr *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  cliErr,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
	if f.Verbose && cliErr.Phase != "" {
		fmt.Fprintf(f.Writer, "Phase: %s\n", cliErr.Phase)
	}
	if f.Verbose && cliErr.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", cliErr.Details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// Ordering errors are classified by their dberr code.
func (f *OutputFormatter) Fail(message string, err error) error {
	cliErr := &CLIError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", message, err), Phase: dberr.PhaseOf(err)}
	exit := ExitFailure
	switch {
	case errors.Is(err, store.ErrNotFound):
		cliErr.Code = ErrCodeNotFound
	case dberr.IsConflict(err):
		cliErr.Code = ErrCodeConflict
	case dberr.IsProgrammer(err):
		cliErr.Code = ErrCodeProgrammer
		exit = ExitCommandError
	case dberr.IsStore(err):
		cliErr.Code = ErrCodeStore
	}
	if werr := f.write(cliErr); werr != nil {
		return werr
	}
	return WrapExitError(exit, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
