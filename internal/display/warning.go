package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow. Color is dropped
// automatically when the writer is not a terminal.
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}

		for i, file := range w.Files {
			b.WriteString("      ")
			b.WriteString(fmt.Sprintf("%d. %s", i+1, file))
			b.WriteString("\n")
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnTaskSource creates the warning shown when the task list cannot be
// loaded. The run continues; task display is advisory.
func WarnTaskSource(err error) Warning {
	return Warning{
		Title:      "Task list unavailable",
		Message:    err.Error(),
		Suggestion: "Create .taskmaster/tasks/tasks.json or a PLAN.md to see task progress here.",
	}
}
