package tasks

import (
	"errors"
	"fmt"
)

// Task statuses as they appear in task files and taskmaster output.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusReview     = "review"
	StatusCancelled  = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusReview:     true,
	StatusCancelled:  true,
}

// IsValidStatus reports whether s is a recognized task status. Status
// writes are checked against this before they reach a task file.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// Task represents a single task from a task source
type Task struct {
	ID                 string   // Task identifier (numeric JSON ids are coerced to strings)
	Title              string   // Task name/title
	Description        string   // Full task description
	Status             string   // Task status: pending, in-progress, done, review, cancelled
	Priority           int      // Scheduling priority (lower number = higher priority)
	AcceptanceCriteria []string // Conditions that define done
	DependsOn          []string // Task ids this task depends on
	BlockedBy          []string // Task ids currently blocking this task
	Notes              []string // Timestamped progress notes
	CreatedAt          string   // Creation timestamp, passed through as found
	UpdatedAt          string   // Last-modified timestamp, stamped RFC 3339 on writes
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Title == "" {
		return errors.New("task title is required")
	}
	if t.Status != "" && !IsValidStatus(t.Status) {
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	return nil
}

// IsPending returns true if the task status is "pending"
func (t *Task) IsPending() bool {
	return t.Status == StatusPending
}

// IsDone returns true if the task status is "done"
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsBlocked returns true when the task is pending but other tasks block it
func (t *Task) IsBlocked() bool {
	return t.Status == StatusPending && len(t.BlockedBy) > 0
}

// IsAvailable returns true when the task is pending and nothing blocks it
func (t *Task) IsAvailable() bool {
	return t.Status == StatusPending && len(t.BlockedBy) == 0
}
