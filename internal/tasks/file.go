package tasks

import (
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/harrison/drover/internal/filelock"
)

// FileSource reads and updates a tasks.json file shaped {"tasks": [...]}.
// Reads go through gjson and updates through sjson, so fields this tool
// does not know about survive a round-trip untouched.
type FileSource struct {
	path string
}

// NewFileSource returns a source backed by the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the tasks file location.
func (s *FileSource) Path() string {
	return s.path
}

// GetAllTasks returns every task in the file.
func (s *FileSource) GetAllTasks() ([]Task, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return tasksFromJSON(data), nil
}

// GetTask returns the task with the given id.
func (s *FileSource) GetTask(id string) (*Task, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}

	idx := findTaskIndex(data, id)
	if idx < 0 {
		return nil, fmt.Errorf("task %s not found", id)
	}

	task := taskFromJSON(gjson.GetBytes(data, fmt.Sprintf("tasks.%d", idx)))
	return &task, nil
}

// UpdateTaskStatus sets the task's status and stamps updatedAt.
func (s *FileSource) UpdateTaskStatus(id, status string) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("unknown task status %q", status)
	}

	return s.mutate(id, func(data []byte, idx int) ([]byte, error) {
		updated, err := sjson.SetBytes(data, fmt.Sprintf("tasks.%d.status", idx), status)
		if err != nil {
			return nil, err
		}
		return stampUpdatedAt(updated, idx)
	})
}

// AddNote appends a timestamped note to the task and stamps updatedAt.
func (s *FileSource) AddNote(id, note string) error {
	stamped := timestampNote(note)

	return s.mutate(id, func(data []byte, idx int) ([]byte, error) {
		// The -1 key appends to the notes array, creating it if missing.
		updated, err := sjson.SetBytes(data, fmt.Sprintf("tasks.%d.notes.-1", idx), stamped)
		if err != nil {
			return nil, err
		}
		return stampUpdatedAt(updated, idx)
	})
}

func (s *FileSource) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("tasks file not found: %s", s.path)
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	return data, nil
}

// mutate runs a read-modify-write on the tasks file while holding its
// companion lock, so an agent process editing the same file cannot race
// the update.
func (s *FileSource) mutate(id string, fn func(data []byte, idx int) ([]byte, error)) error {
	lock := filelock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock tasks file: %w", err)
	}
	defer lock.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}

	idx := findTaskIndex(data, id)
	if idx < 0 {
		return fmt.Errorf("task %s not found", id)
	}

	updated, err := fn(data, idx)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}

	return filelock.AtomicWrite(s.path, updated)
}

// taskFromJSON builds a Task from a gjson object. Missing keys fall back
// to zero values; numeric ids are coerced to their decimal string form.
func taskFromJSON(obj gjson.Result) Task {
	task := Task{
		ID:                 obj.Get("id").String(),
		Title:              obj.Get("title").String(),
		Description:        obj.Get("description").String(),
		Status:             obj.Get("status").String(),
		Priority:           int(obj.Get("priority").Int()),
		AcceptanceCriteria: stringList(obj.Get("acceptanceCriteria")),
		DependsOn:          stringList(obj.Get("dependsOn")),
		BlockedBy:          stringList(obj.Get("blockedBy")),
		Notes:              stringList(obj.Get("notes")),
		CreatedAt:          obj.Get("createdAt").String(),
		UpdatedAt:          obj.Get("updatedAt").String(),
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	return task
}

func tasksFromJSON(data []byte) []Task {
	results := gjson.GetBytes(data, "tasks").Array()
	tasks := make([]Task, 0, len(results))
	for _, r := range results {
		tasks = append(tasks, taskFromJSON(r))
	}
	return tasks
}

func stringList(arr gjson.Result) []string {
	if !arr.Exists() {
		return nil
	}
	var out []string
	for _, v := range arr.Array() {
		out = append(out, v.String())
	}
	return out
}

// findTaskIndex returns the array index of the task with the given id, or
// -1 when absent. Ids compare by string form, so a numeric JSON id matches
// its decimal rendering.
func findTaskIndex(data []byte, id string) int {
	for i, r := range gjson.GetBytes(data, "tasks").Array() {
		if r.Get("id").String() == id {
			return i
		}
	}
	return -1
}

func timestampNote(note string) string {
	return fmt.Sprintf("%s: %s", time.Now().Format(time.RFC3339), note)
}

func stampUpdatedAt(data []byte, idx int) ([]byte, error) {
	return sjson.SetBytes(data, fmt.Sprintf("tasks.%d.updatedAt", idx), time.Now().Format(time.RFC3339))
}
