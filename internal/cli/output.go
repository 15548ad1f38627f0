package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/config"
	"github.com/roach88/linql/internal/qerr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Search rejected or failed, scenarios failed
	ExitCommandError = 2 // Command error (invalid paths, bad config, store unavailable, etc.)
)

// CLI error codes for failures outside the compiler's taxonomy. Compile
// and execution failures report their qerr code instead.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeNotFound   = "E002" // Path not found
	ErrCodeConfig     = "E003" // Invalid configuration
	ErrCodeCatalog    = "E004" // Catalog failed to load
	ErrCodeStore      = "E005" // Store unavailable
	ErrCodeInput      = "E006" // Malformed input document
	ErrCodeTestFailed = "E_TEST_FAILED"
	ErrCodeBatch      = "E_BATCH_FAILED"
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
	Code       string `json:"code"`                 // qerr code or "E001", "E002", etc.
	Message    string `json:"message"`              // human-readable message
	Node       string `json:"node,omitempty"`       // AST node kind for compile errors
	Suggestion string `json:"suggestion,omitempty"` // did-you-mean hint
	Details    any    `json:"details,omitempty"`    // additional context
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
	return f.writeError(&CLIError{Code: code, Message: message, Details: details})
}

// Fail outputs err, classified by describeError, and returns an
// ExitError carrying exitCode.
func (f *OutputFormatter) Fail(exitCode int, fallback string, err error) error {
	cliErr := describeError(err, fallback)
	_ = f.writeError(cliErr)
	return WrapExitError(exitCode, cliErr.Code, err)
}

func (f *OutputFormatter) writeError(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  e,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if e.Node != "" {
		fmt.Fprintf(f.Writer, "  at %s\n", e.Node)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(f.Writer, "  %s\n", e.Suggestion)
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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

// describeError maps an error to its response form. Coded compiler
// errors keep their code, node and suggestion; configuration and schema
// errors get their CLI codes; anything else is reported under fallback.
func describeError(err error, fallback string) *CLIError {
	var qe *qerr.Error
	if errors.As(err, &qe) {
		return &CLIError{
			Code:       string(qe.Code),
			Message:    qe.Message,
			Node:       qe.Node,
			Suggestion: qe.Suggestion,
			Details:    causeOf(qe),
		}
	}

	var verr config.ValidationError
	if errors.As(err, &verr) {
		fields := make([]string, len(verr.Errors))
		for i, fe := range verr.Errors {
			fields[i] = fe.Error()
		}
		return &CLIError{Code: ErrCodeConfig, Message: "invalid configuration", Details: fields}
	}

	var serr *catalog.SchemaError
	if errors.As(err, &serr) {
		return &CLIError{Code: ErrCodeCatalog, Message: serr.Error()}
	}

	if fallback == "" {
		fallback = ErrCodeGeneric
	}
	return &CLIError{Code: fallback, Message: err.Error()}
}

func causeOf(e *qerr.Error) any {
	if e.Err == nil {
		return nil
	}
	return e.Err.Error()
}
