package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/drover/internal/display"
	"github.com/harrison/drover/internal/progress"
	"github.com/harrison/drover/internal/tasks"
)

// statusTailLines is how many progress-log lines the status view shows.
const statusTailLines = 5

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current task status summary",
		Long: `Display a summary of task completion status.

Shows the progress bar, per-status tallies, the task tree with blockers,
the next available task, and the tail of the progress log.`,
		Args: cobra.NoArgs,
		RunE: runStatusCommand,
	}

	cmd.Flags().String("work-dir", ".", "Working directory containing the task source")

	return cmd
}

// runStatusCommand implements the status command logic
func runStatusCommand(cmd *cobra.Command, args []string) error {
	workDirFlag, _ := cmd.Flags().GetString("work-dir")
	workDir, err := filepath.Abs(workDirFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve work directory %s: %w", workDirFlag, err)
	}

	source, err := tasks.Detect(workDir)
	if err != nil {
		return fmt.Errorf("failed to detect task source: %w", err)
	}

	taskList, err := source.GetAllTasks()
	if err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}

	out := cmd.OutOrStdout()

	stats := display.ComputeStats(taskList)
	fmt.Fprintf(out, "Total Tasks: %d\n", stats.TotalTasks)
	fmt.Fprintln(out, strings.TrimRight(display.RenderProgressSummary(taskList), "\n"))

	if next, err := tasks.NextTask(taskList); err == nil {
		fmt.Fprintf(out, "\nNext task: %s: %s\n", next.ID, next.Title)
	}

	// The progress log is optional; a project that has never run has none.
	tail, err := progress.DefaultLog(workDir).Tail(statusTailLines)
	if err != nil {
		return fmt.Errorf("failed to read progress log: %w", err)
	}
	if len(tail) > 0 {
		fmt.Fprintf(out, "\nRecent progress (%s):\n", progress.DefaultFileName)
		for _, line := range tail {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	return nil
}
