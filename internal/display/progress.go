package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/drover/internal/tasks"
)

// DefaultBarWidth is the progress bar width used by the summary block.
const DefaultBarWidth = 20

// titleLimit caps task titles in the tree so one long title cannot wrap
// the whole display.
const titleLimit = 50

// Stats summarizes task-list progress.
type Stats struct {
	TotalTasks int
	Completed  int
	InProgress int
	Pending    int
	Blocked    int
}

// ComputeStats tallies task statuses. Blocked counts pending tasks whose
// BlockedBy list is non-empty; those tasks are counted under Pending too.
func ComputeStats(taskList []tasks.Task) Stats {
	stats := Stats{TotalTasks: len(taskList)}
	for _, t := range taskList {
		switch t.Status {
		case tasks.StatusDone:
			stats.Completed++
		case tasks.StatusInProgress:
			stats.InProgress++
		case tasks.StatusPending:
			stats.Pending++
			if len(t.BlockedBy) > 0 {
				stats.Blocked++
			}
		}
	}
	return stats
}

// RenderProgressBar renders a fixed-width bar like "[████████░░░░] 66.7%".
// The percentage tracks completed tasks; an empty list renders as 0.0%.
func RenderProgressBar(stats Stats, width int) string {
	percentage := 0.0
	filled := 0
	if stats.TotalTasks > 0 {
		percentage = float64(stats.Completed) / float64(stats.TotalTasks) * 100
		filled = stats.Completed * width / stats.TotalTasks
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %.1f%%", bar, percentage)
}

var statusIcons = map[string]string{
	tasks.StatusDone:       "✓",
	tasks.StatusInProgress: "⚡",
	tasks.StatusPending:    "○",
	tasks.StatusReview:     "👀",
	tasks.StatusCancelled:  "✗",
}

// RenderTaskTree renders one line per task, sorted by priority, with the
// blockers of a blocked task nested beneath it.
func RenderTaskTree(taskList []tasks.Task) string {
	if len(taskList) == 0 {
		return "(no tasks)"
	}

	sorted := make([]tasks.Task, len(taskList))
	copy(sorted, taskList)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	var lines []string
	for i, task := range sorted {
		isLast := i == len(sorted)-1
		prefix := "├─"
		if isLast {
			prefix = "└─"
		}

		icon, ok := statusIcons[task.Status]
		if !ok {
			icon = "?"
		}

		title := task.Title
		if runes := []rune(title); len(runes) > titleLimit {
			title = string(runes[:titleLimit]) + "..."
		}

		lines = append(lines, fmt.Sprintf("%s %s: %s %s [%s]", prefix, task.ID, icon, title, task.Status))

		if len(task.BlockedBy) > 0 {
			indent := "│  "
			if isLast {
				indent = "   "
			}
			lines = append(lines, fmt.Sprintf("%s└─ (blocked by: %s)", indent, strings.Join(task.BlockedBy, ", ")))
		}
	}

	return strings.Join(lines, "\n")
}

// RenderProgressSummary renders the full progress block: bar, tallies and
// task tree.
func RenderProgressSummary(taskList []tasks.Task) string {
	stats := ComputeStats(taskList)
	bar := RenderProgressBar(stats, DefaultBarWidth)
	tree := RenderTaskTree(taskList)

	separator := strings.Repeat("=", 50)
	summaryLine := fmt.Sprintf(
		"Completed: %d/%d | In Progress: %d | Pending: %d | Blocked: %d",
		stats.Completed, stats.TotalTasks, stats.InProgress, stats.Pending, stats.Blocked,
	)

	return fmt.Sprintf("%s\nProgress: %s\n%s\n%s\n\nTask Tree:\n%s\n",
		separator, bar, summaryLine, separator, tree)
}
