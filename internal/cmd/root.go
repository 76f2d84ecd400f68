package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "0.1.0"

// ExitError carries a process exit status out of a command whose outcome was
// already reported through the run log. main() exits with Code without
// printing anything further.
type ExitError struct {
	Code int
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCommand creates and returns the root cobra command for drover
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drover",
		Short: "Autonomous coding-agent loop runner",
		Long: `Drover runs an external coding agent in a loop until the agent reports
that every task is done.

Each iteration feeds the agent a prompt file, captures its output, and
scans for the completion marker. A budget guardian caps attempts and
spend, task status lives in the project's task source, and every run
appends to a progress log and the run history database.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main() owns error printing and exit codes
		SilenceErrors: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewTasksCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
