package executor

import (
	"errors"
	"fmt"
	"strings"
)

// outputSnippetLen bounds how much captured output an error message renders.
// The full output stays available on the error value.
const outputSnippetLen = 512

// PromptError represents a failure to read the backend's prompt file. It is
// raised before the external tool is spawned.
type PromptError struct {
	Path string // Prompt file that could not be read
	Err  error  // Underlying read error
}

// NewPromptError creates a new PromptError for the given prompt path.
func NewPromptError(path string, err error) *PromptError {
	return &PromptError{Path: path, Err: err}
}

// Error implements the error interface for PromptError.
func (e *PromptError) Error() string {
	return fmt.Sprintf("unable to read prompt file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PromptError) Unwrap() error {
	return e.Err
}

// SpawnError represents a failure to start the external tool at all (not
// installed, not executable, bad working directory).
type SpawnError struct {
	Command string // Full command line that failed to start
	Err     error  // Underlying exec error
}

// NewSpawnError creates a new SpawnError for the given command line.
func NewSpawnError(command string, err error) *SpawnError {
	return &SpawnError{Command: command, Err: err}
}

// Error implements the error interface for SpawnError.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to execute [%s]: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError represents an external tool that ran and exited non-zero.
// Output holds everything the tool wrote, so callers can diagnose the
// failure without re-running it.
type ExitError struct {
	Command  string // Full command line that was run
	ExitCode int    // Non-zero exit code
	Output   string // Captured combined stdout+stderr
}

// NewExitError creates a new ExitError carrying the captured output.
func NewExitError(command string, exitCode int, output string) *ExitError {
	return &ExitError{Command: command, ExitCode: exitCode, Output: output}
}

// Error implements the error interface for ExitError. Long output is
// trimmed to its tail, which is where tools report what went wrong.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command [%s] exited with %d", e.Command, e.ExitCode)
	snippet := strings.TrimSpace(e.Output)
	if snippet == "" {
		return msg
	}
	if len(snippet) > outputSnippetLen {
		snippet = "..." + snippet[len(snippet)-outputSnippetLen:]
	}
	return msg + ": " + snippet
}

// IsPromptError checks if the error is or wraps a PromptError.
func IsPromptError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PromptError
	return errors.As(err, &pe)
}

// IsSpawnError checks if the error is or wraps a SpawnError.
func IsSpawnError(err error) bool {
	if err == nil {
		return false
	}
	var se *SpawnError
	return errors.As(err, &se)
}

// IsExitError checks if the error is or wraps an ExitError.
func IsExitError(err error) bool {
	if err == nil {
		return false
	}
	var ee *ExitError
	return errors.As(err, &ee)
}
