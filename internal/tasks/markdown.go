package tasks

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrReadOnlySource is returned when a write is attempted against a source
// that cannot persist changes.
var ErrReadOnlySource = errors.New("markdown task source is read-only")

var (
	taskHeadingRegex = regexp.MustCompile(`^Task\s+(\S+):\s+(.+)$`)
	priorityRegex    = regexp.MustCompile(`(?m)^Priority:\s*(\d+)\s*$`)
	blockedByRegex   = regexp.MustCompile(`(?m)^Blocked-By:\s*(.+)$`)
	statusLineRegex  = regexp.MustCompile(`(?m)^Status:\s*([\w-]+)\s*$`)
	checkboxRegex    = regexp.MustCompile(`(?m)^\s*[-*]\s+\[([xX ])\]`)
)

// MarkdownSource parses a PLAN.md-style file where each task is a level 2
// heading of the form "## Task <n>: <title>". The body until the next
// level 2 heading belongs to the task: Priority:, Blocked-By: and Status:
// lines are metadata, and when no explicit status is given the task's
// checkbox list decides between pending, in-progress and done.
//
// The source is read-only. Status updates and notes belong in a tasks.json
// or taskmaster-managed list.
type MarkdownSource struct {
	path     string
	markdown goldmark.Markdown
}

// NewMarkdownSource returns a read-only source backed by the markdown file
// at path.
func NewMarkdownSource(path string) *MarkdownSource {
	return &MarkdownSource{
		path:     path,
		markdown: goldmark.New(),
	}
}

// Path returns the plan file location.
func (s *MarkdownSource) Path() string {
	return s.path
}

// GetAllTasks parses the plan file and returns its tasks in file order.
func (s *MarkdownSource) GetAllTasks() ([]Task, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s", s.path)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return s.parse(content)
}

// GetTask returns the task with the given id.
func (s *MarkdownSource) GetTask(id string) (*Task, error) {
	tasks, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %s not found", id)
}

// UpdateTaskStatus always fails: the markdown plan is never rewritten.
func (s *MarkdownSource) UpdateTaskStatus(id, status string) error {
	return fmt.Errorf("cannot update task %s: %w", id, ErrReadOnlySource)
}

// AddNote always fails: the markdown plan is never rewritten.
func (s *MarkdownSource) AddNote(id, note string) error {
	return fmt.Errorf("cannot add note to task %s: %w", id, ErrReadOnlySource)
}

// parse walks the goldmark AST for level 2 headings and slices the source
// into per-task sections. Any level 2 heading ends the previous section,
// whether or not it starts a new task.
func (s *MarkdownSource) parse(content []byte) ([]Task, error) {
	doc := s.markdown.Parser().Parse(text.NewReader(content))

	type mark struct {
		id        string
		title     string
		isTask    bool
		lineStart int // offset of the heading's own line
		bodyStart int // offset just past the heading's line
	}
	var marks []mark

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		first := heading.Lines().At(0)
		last := heading.Lines().At(heading.Lines().Len() - 1)
		m := mark{
			lineStart: lineStartOffset(content, first.Start),
			bodyStart: nextLineOffset(content, last.Stop),
		}

		if matches := taskHeadingRegex.FindStringSubmatch(extractText(heading, content)); len(matches) == 3 {
			m.isTask = true
			m.id = matches[1]
			m.title = strings.TrimSpace(matches[2])
		}

		marks = append(marks, m)
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for i, m := range marks {
		if !m.isTask {
			continue
		}
		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}
		tasks = append(tasks, taskFromSection(m.id, m.title, string(content[m.bodyStart:end])))
	}
	return tasks, nil
}

// taskFromSection builds a Task from a heading match and its section body.
func taskFromSection(id, title, body string) Task {
	task := Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(body),
		Status:      StatusPending,
	}

	// Metadata is matched with code fences stripped so examples inside a
	// task body cannot masquerade as metadata lines.
	stripped := stripCodeBlocks(body)

	if m := priorityRegex.FindStringSubmatch(stripped); len(m) == 2 {
		if p, err := strconv.Atoi(m[1]); err == nil {
			task.Priority = p
		}
	}

	if m := blockedByRegex.FindStringSubmatch(stripped); len(m) == 2 {
		for _, part := range strings.Split(m[1], ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" || strings.EqualFold(trimmed, "none") {
				continue
			}
			task.BlockedBy = append(task.BlockedBy, trimmed)
		}
	}

	// An explicit Status: line wins; otherwise the checkbox list decides.
	if m := statusLineRegex.FindStringSubmatch(stripped); len(m) == 2 && IsValidStatus(strings.ToLower(m[1])) {
		task.Status = strings.ToLower(m[1])
	} else if boxes := checkboxRegex.FindAllStringSubmatch(stripped, -1); len(boxes) > 0 {
		checked := 0
		for _, box := range boxes {
			if strings.EqualFold(box[1], "x") {
				checked++
			}
		}
		switch {
		case checked == len(boxes):
			task.Status = StatusDone
		case checked > 0:
			task.Status = StatusInProgress
		}
	}

	return task
}

// extractText extracts plain text from an AST node
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if text, ok := c.(*ast.Text); ok {
			buf.Write(text.Segment.Value(source))
		}
	}
	return buf.String()
}

func stripCodeBlocks(content string) string {
	lines := strings.Split(content, "\n")
	var result strings.Builder
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if !inCodeBlock {
			result.WriteString(line)
			result.WriteString("\n")
		}
	}

	return result.String()
}

// lineStartOffset walks back from off to the beginning of its line.
func lineStartOffset(content []byte, off int) int {
	for off > 0 && content[off-1] != '\n' {
		off--
	}
	return off
}

// nextLineOffset advances past the end of the line containing off.
func nextLineOffset(content []byte, off int) int {
	for off < len(content) && content[off] != '\n' {
		off++
	}
	if off < len(content) {
		off++
	}
	return off
}
