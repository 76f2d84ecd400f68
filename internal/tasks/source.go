// Package tasks reads and updates the task list drover reports progress
// against. Task CRUD belongs to whatever authored the list; drover only
// selects the next piece of work, flips statuses, and appends notes.
//
// Three sources are supported: a tasks.json file managed in-place, the
// taskmaster command-line tool, and a read-only PLAN.md-style markdown file.
package tasks

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultTasksFile is where taskmaster-managed projects keep their task
// list, relative to the working directory.
const DefaultTasksFile = ".taskmaster/tasks/tasks.json"

// DefaultPlanFile is the markdown fallback used when neither a tasks.json
// nor the taskmaster binary is available.
const DefaultPlanFile = "PLAN.md"

// ErrNoAvailableTasks is returned by NextTask when no pending, unblocked
// task exists.
var ErrNoAvailableTasks = errors.New("no available tasks")

// Source abstracts where tasks live and how they are updated.
type Source interface {
	// GetAllTasks returns every task known to the source.
	GetAllTasks() ([]Task, error)
	// GetTask returns the task with the given id.
	GetTask(id string) (*Task, error)
	// UpdateTaskStatus moves the task to a new status.
	UpdateTaskStatus(id, status string) error
	// AddNote appends a timestamped note to the task.
	AddNote(id, note string) error
}

// NextTask selects the task to work on next: the pending task with the
// lowest priority number whose BlockedBy list is empty. Ties keep input
// order. Returns ErrNoAvailableTasks when nothing qualifies.
func NextTask(taskList []Task) (*Task, error) {
	var best *Task
	for i := range taskList {
		t := &taskList[i]
		if !t.IsAvailable() {
			continue
		}
		if best == nil || t.Priority < best.Priority {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNoAvailableTasks
	}
	next := *best
	return &next, nil
}

// Open returns a source for an explicitly chosen task file. The extension
// decides the format: .json gets the file source, .md the read-only
// markdown source.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewFileSource(path), nil
	case ".md", ".markdown":
		return NewMarkdownSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported task file %s (want .json or .md)", path)
	}
}

// Detect picks a task source for the working directory. The conventional
// tasks.json wins when present, then the taskmaster CLI when installed,
// then a PLAN.md in the directory.
func Detect(workDir string) (Source, error) {
	tasksPath := filepath.Join(workDir, DefaultTasksFile)
	if _, err := os.Stat(tasksPath); err == nil {
		return NewFileSource(tasksPath), nil
	}

	if _, err := exec.LookPath("taskmaster"); err == nil {
		return NewCLISource(), nil
	}

	planPath := filepath.Join(workDir, DefaultPlanFile)
	if _, err := os.Stat(planPath); err == nil {
		return NewMarkdownSource(planPath), nil
	}

	return nil, fmt.Errorf("no task source found in %s", workDir)
}
