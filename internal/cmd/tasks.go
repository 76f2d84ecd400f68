package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/drover/internal/tasks"
)

// taskFilters are the accepted --filter values. "all" disables filtering;
// the rest match task statuses exactly.
var taskFilters = map[string]bool{
	"all":                  true,
	tasks.StatusPending:    true,
	tasks.StatusInProgress: true,
	tasks.StatusDone:       true,
}

// NewTasksCommand creates the tasks command
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks from the task source",
		Long: `List all tasks with optional status filtering.

Tasks are sorted by priority (lower number first). Blocked tasks carry a
[BLOCKED] marker.

Examples:
  # List everything
  drover tasks

  # List only pending tasks
  drover tasks --filter pending`,
		Args: cobra.NoArgs,
		RunE: runTasksCommand,
	}

	cmd.Flags().String("filter", "all", "Filter tasks by status: all, pending, in-progress, done")
	cmd.Flags().String("work-dir", ".", "Working directory containing the task source")

	return cmd
}

// runTasksCommand implements the tasks command logic
func runTasksCommand(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetString("filter")
	if !taskFilters[filter] {
		return fmt.Errorf("invalid filter %q, must be one of: all, pending, in-progress, done", filter)
	}

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

	if filter != "all" {
		filtered := taskList[:0]
		for _, t := range taskList {
			if t.Status == filter {
				filtered = append(filtered, t)
			}
		}
		taskList = filtered
	}

	printTaskTable(cmd.OutOrStdout(), taskList)
	return nil
}

var taskStatusIcons = map[string]string{
	tasks.StatusDone:       "✓",
	tasks.StatusInProgress: "⚡",
	tasks.StatusPending:    "○",
	tasks.StatusReview:     "👀",
	tasks.StatusCancelled:  "✗",
}

// printTaskTable renders the task listing, sorted by priority.
func printTaskTable(out io.Writer, taskList []tasks.Task) {
	sorted := make([]tasks.Task, len(taskList))
	copy(sorted, taskList)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	fmt.Fprintf(out, "\n%-15s %-15s %-10s %s\n", "ID", "Status", "Priority", "Title")
	fmt.Fprintln(out, strings.Repeat("=", 80))

	for _, task := range sorted {
		icon, ok := taskStatusIcons[task.Status]
		if !ok {
			icon = "?"
		}
		blockedMarker := ""
		if len(task.BlockedBy) > 0 {
			blockedMarker = " [BLOCKED]"
		}
		fmt.Fprintf(out, "%-15s %s %-13s %-10d %s%s\n",
			task.ID, icon, task.Status, task.Priority, task.Title, blockedMarker)
	}

	fmt.Fprintln(out)
}
