// Package display renders the terminal views of a task list: the progress
// bar, the per-task tree, the combined summary block, and user-facing
// warnings.
//
// # Progress Summary
//
// The summary block is what `drover run` prints before and after a loop and
// what `drover status` centers on:
//
//	fmt.Print(display.RenderProgressSummary(taskList))
//
// The pieces compose individually:
//
//	stats := display.ComputeStats(taskList)
//	bar := display.RenderProgressBar(stats, display.DefaultBarWidth)
//	tree := display.RenderTaskTree(taskList)
//
// Render functions return plain strings with no escape codes, so their
// output can go to the console, the progress log, or a test assertion
// unchanged.
//
// # Warnings
//
// Warnings carry an optional message, file list, and suggestion:
//
//	warning := display.Warning{
//	    Title:      "Task list unavailable",
//	    Message:    err.Error(),
//	    Suggestion: "Create .taskmaster/tasks/tasks.json",
//	}
//	warning.Display(os.Stderr)
//
// Warning display is the one place this package colors output; it uses the
// shared color stack, which disables itself when the target is not a
// terminal.
package display
