package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful run
	ExitFailure      = 1 // Generation failure (fatal diagnostics)
	ExitCommandError = 2 // Command error (invalid paths, bad flags)
)

// Error code constants, unified across commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found / not a directory
	ErrCodeGenerate    = "E003" // Fatal diagnostics aborted generation
	ErrCodeWriteFailed = "E004" // Output write error
	ErrCodePack        = "E005" // Packaging tool failure
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the exit code from an error, defaulting to
// ExitFailure for errors without one.
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
	ErrWriter io.Writer // verbose output, kept off stdout so JSON stays parseable
	Verbose   bool
}

// CLIResponse is the standard JSON envelope for command output.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error payload of a CLIResponse.
type CLIError struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, diags []diag.Diagnostic) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Diagnostics: diags},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	for _, d := range diags {
		fmt.Fprintf(f.Writer, "  %s\n", d)
	}
	return nil
}

// VerboseLog outputs a message only when verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Summarize renders the human-readable run report: workspace, counts, flow
// files, and the head of the warning list.
func Summarize(w io.Writer, d ir.RunDiagnostics, warnings []ir.Warning) {
	fmt.Fprintf(w, "Workspace: %s\n", d.WorkspaceRoot)
	if d.DistArtifact != "" {
		fmt.Fprintf(w, "Pack: %s\n", d.DistArtifact)
	}
	fmt.Fprintf(w, "Cards processed: %d\n", d.CardsProcessed)

	fmt.Fprintln(w, "Flows:")
	if len(d.Flows) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, flow := range d.Flows {
		fmt.Fprintf(w, "  - %s (%d cards)\n", flow.FlowName, flow.CardCount)
	}

	fmt.Fprintln(w, "Generated flow files:")
	if len(d.FlowPaths) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, path := range d.FlowPaths {
		fmt.Fprintf(w, "  - %s\n", path)
	}

	fmt.Fprintf(w, "Warnings: %d\n", d.WarningsCount)
	for i, warning := range warnings {
		if i == 5 {
			break
		}
		fmt.Fprintf(w, "  - [%s] %s\n", warning.Kind, warning.Message)
	}
}
