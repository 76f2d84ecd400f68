// Package progress maintains the append-only progress log that drover and
// the agent processes it spawns both write to. Entries are plain text; the
// file is the audit trail an operator reads to see what the run did.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/drover/internal/filelock"
)

// DefaultFileName is the log's conventional name in the working directory.
const DefaultFileName = "progress.txt"

// Log is an append-only progress file shared with spawned agent processes.
// All writes go through the file's companion lock.
type Log struct {
	path string
}

// NewLog returns a progress log at the given path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// DefaultLog returns the progress log for a working directory.
func DefaultLog(workDir string) *Log {
	return NewLog(filepath.Join(workDir, DefaultFileName))
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Initialize creates the log with a header when it does not exist yet. An
// existing log is left untouched so records from earlier runs survive.
func (l *Log) Initialize() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat progress log: %w", err)
	}

	header := fmt.Sprintf("# Drover Progress Log\nStarted: %s\n---\n", time.Now().Format(time.RFC3339))
	if err := filelock.LockAndWrite(l.path, []byte(header)); err != nil {
		return fmt.Errorf("failed to initialize progress log: %w", err)
	}
	return nil
}

// Append writes one entry, adding a trailing newline when the message does
// not already carry one. The file is created on first append if Initialize
// was never called.
func (l *Log) Append(message string) error {
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	if err := filelock.LockAndAppend(l.path, []byte(message)); err != nil {
		return fmt.Errorf("failed to append to progress log: %w", err)
	}
	return nil
}

// Tail returns the last n lines of the log, or every line when n <= 0 or
// the log is shorter. A missing log yields no lines and no error.
func (l *Log) Tail(n int) ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress log: %w", err)
	}

	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}

	lines := strings.Split(trimmed, "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
