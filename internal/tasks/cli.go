package tasks

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
)

// commandRunner executes a taskmaster subcommand and returns its stdout.
// Swappable in tests.
type commandRunner func(args ...string) ([]byte, error)

// CLISource drives the taskmaster command-line tool. taskmaster owns the
// task data; this source only consumes its JSON output and issues update
// verbs.
type CLISource struct {
	run commandRunner
}

// NewCLISource returns a source that shells out to taskmaster on PATH.
func NewCLISource() *CLISource {
	return &CLISource{run: runTaskmaster}
}

func runTaskmaster(args ...string) ([]byte, error) {
	out, err := exec.Command("taskmaster", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("taskmaster %s failed: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("taskmaster %s failed: %w", args[0], err)
	}
	return out, nil
}

// GetAllTasks lists every task via `taskmaster list`.
func (s *CLISource) GetAllTasks() ([]Task, error) {
	out, err := s.run("list", "--format", "json")
	if err != nil {
		return nil, err
	}
	return tasksFromJSON(out), nil
}

// GetTask fetches a single task via `taskmaster get`.
func (s *CLISource) GetTask(id string) (*Task, error) {
	out, err := s.run("get", id, "--format", "json")
	if err != nil {
		return nil, err
	}

	task := taskFromJSON(gjson.ParseBytes(out))
	if task.ID == "" {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return &task, nil
}

// UpdateTaskStatus moves the task to a new status via `taskmaster update`.
func (s *CLISource) UpdateTaskStatus(id, status string) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("unknown task status %q", status)
	}
	_, err := s.run("update", id, "--status", status)
	return err
}

// AddNote appends a timestamped note via `taskmaster add-note`.
func (s *CLISource) AddNote(id, note string) error {
	_, err := s.run("add-note", id, timestampNote(note))
	return err
}
