// Package runner drives the iteration loop: authorize an attempt, invoke
// the agent tool, scan its output for the completion marker, and stop on
// completion, denial, tool failure, or iteration exhaustion.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harrison/drover/internal/display"
	"github.com/harrison/drover/internal/guardian"
	"github.com/harrison/drover/internal/history"
	"github.com/harrison/drover/internal/progress"
	"github.com/harrison/drover/internal/tasks"
)

// CompletionMarker is the exact, case-sensitive substring an agent prints
// to signal that all tasks are done.
const CompletionMarker = "<promise>COMPLETE</promise>"

// DefaultIterationDelay paces consecutive iterations so the agent CLI is
// not respawned back-to-back.
const DefaultIterationDelay = 2 * time.Second

// ToolRunner is the behavior the controller needs from the tool executor.
type ToolRunner interface {
	Run(ctx context.Context) (string, error)
	CommandLine() string
}

// Logger is the subset of the console logger the controller logs through.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Params wires a Controller. Executor and Progress are required; the rest
// may be nil, which disables the corresponding collaborator.
type Params struct {
	Executor      ToolRunner
	Progress      *progress.Log
	MaxIterations int
	Backend       string

	Guardian       *guardian.Guardian // nil runs without budget control
	Source         tasks.Source       // nil skips task summaries
	History        *history.Store     // nil skips run recording
	Logger         Logger             // nil silences the controller
	Out            io.Writer          // summary blocks; defaults to os.Stderr
	IterationDelay time.Duration      // defaults to DefaultIterationDelay
}

// Result summarizes a finished run.
type Result struct {
	Outcome    Outcome
	Iterations int    // tool invocations actually made
	Output     string // last iteration's captured output
	StartedAt  time.Time
	Duration   time.Duration
	Err        error // terminating failure when Outcome is OutcomeAborted
}

// Controller owns one run of the loop. It is single-threaded: one iteration
// is in flight at a time, and the guardian is only touched from Run.
type Controller struct {
	executor      ToolRunner
	progressLog   *progress.Log
	maxIterations int
	backend       string

	guardian *guardian.Guardian
	source   tasks.Source
	history  *history.Store
	logger   Logger
	out      io.Writer
	delay    time.Duration
}

// New creates a Controller and installs the escalation hook on the guardian
// when one is supplied.
func New(params Params) *Controller {
	if params.Executor == nil {
		panic("executor cannot be nil")
	}
	if params.Progress == nil {
		panic("progress log cannot be nil")
	}

	out := params.Out
	if out == nil {
		out = os.Stderr
	}
	delay := params.IterationDelay
	if delay <= 0 {
		delay = DefaultIterationDelay
	}

	c := &Controller{
		executor:      params.Executor,
		progressLog:   params.Progress,
		maxIterations: params.MaxIterations,
		backend:       params.Backend,
		guardian:      params.Guardian,
		source:        params.Source,
		history:       params.History,
		logger:        params.Logger,
		out:           out,
		delay:         delay,
	}

	if c.guardian != nil {
		c.guardian.OnEscalation(c.logEscalation)
	}

	return c
}

// Run executes the loop. The returned error is non-nil only when the run
// could not start because the progress log failed to initialize; every
// started run yields a Result whose Outcome decides the exit status.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if err := c.progressLog.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize progress log: %w", err)
	}

	result := &Result{StartedAt: time.Now()}

	c.logInfo(fmt.Sprintf("Configuration loaded: tool=%s iterations=%d", c.backend, c.maxIterations))
	if c.guardian != nil {
		cfg := c.guardian.Config()
		c.logInfo(fmt.Sprintf("Budget guardian on duty: max_attempts=%d, budget=%.2f",
			cfg.MaxAttempts, cfg.BudgetLimit))
	}
	c.appendProgress(fmt.Sprintf("Run started (tool: %s, max iterations: %d)", c.backend, c.maxIterations))

	c.showTaskSummary()

	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		if c.guardian != nil {
			auth, err := c.guardian.AuthorizeAttempt()
			if err != nil {
				c.logError(fmt.Sprintf("Budget guardian: %v", err))
				c.writeBlock(c.guardian.Summary())
				c.appendProgress(fmt.Sprintf("Run aborted: %v", err))
				return c.finish(ctx, result, OutcomeAborted, err), nil
			}
			c.logInfo(fmt.Sprintf("Budget guardian: attempt %d authorized (budget: %.2f/%.2f)",
				auth.AttemptNumber, auth.RemainingBudget, c.guardian.Config().BudgetLimit))
		}

		rule := strings.Repeat("=", 63)
		c.logInfo(rule)
		c.logInfo(fmt.Sprintf("Drover iteration %d of %d (%s)", iteration, c.maxIterations, c.backend))
		c.logInfo(rule)

		output, err := c.executor.Run(ctx)
		result.Iterations = iteration
		if err != nil {
			c.logError(fmt.Sprintf("Tool execution failed: %v", err))
			if c.guardian != nil {
				c.guardian.RecordFailure(err.Error())
				c.writeBlock(c.guardian.Summary())
			}
			c.appendProgress(fmt.Sprintf("Run aborted: %v", err))
			return c.finish(ctx, result, OutcomeAborted, err), nil
		}
		if c.guardian != nil {
			c.guardian.RecordSuccess()
		}
		result.Output = output

		if strings.Contains(output, CompletionMarker) {
			c.logInfo("Drover completed all tasks!")
			c.logInfo(fmt.Sprintf("Completed at iteration %d of %d", iteration, c.maxIterations))
			if c.guardian != nil {
				c.writeBlock(c.guardian.Summary())
			}
			c.showTaskSummary()
			c.appendProgress(fmt.Sprintf("Run completed at iteration %d", iteration))
			return c.finish(ctx, result, OutcomeCompleted, nil), nil
		}

		c.logInfo(fmt.Sprintf("Iteration %d complete. Continuing...", iteration))
		if iteration < c.maxIterations {
			c.pause(ctx)
		}
	}

	c.logWarn(fmt.Sprintf("Reached max iterations (%d) without completing all tasks.", c.maxIterations))
	if c.guardian != nil {
		c.writeBlock(c.guardian.Summary())
	}
	c.appendProgress(fmt.Sprintf("Run exhausted after %d iterations", c.maxIterations))
	return c.finish(ctx, result, OutcomeExhausted, nil), nil
}

// finish stamps the result and records it into run history.
func (c *Controller) finish(ctx context.Context, result *Result, outcome Outcome, err error) *Result {
	result.Outcome = outcome
	result.Err = err
	result.Duration = time.Since(result.StartedAt)
	c.recordHistory(ctx, result)
	return result
}

// recordHistory writes the finished run to the history store. Failures are
// logged and swallowed; history is never worth failing a run over.
func (c *Controller) recordHistory(ctx context.Context, result *Result) {
	if c.history == nil {
		return
	}

	run := &history.Run{
		Backend:      c.backend,
		Outcome:      result.Outcome.String(),
		Iterations:   result.Iterations,
		DurationSecs: int64(result.Duration / time.Second),
		StartedAt:    result.StartedAt,
	}
	if c.guardian != nil {
		state := c.guardian.State()
		run.Attempts = state.TotalAttempts
		run.Cost = state.TotalCost
	}

	// Recording must still happen when the run context was canceled.
	if err := c.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		c.logWarn(fmt.Sprintf("Could not record run history: %v", err))
	}
}

// showTaskSummary renders the task progress block. Task access is advisory:
// any failure is a warning and the run carries on.
func (c *Controller) showTaskSummary() {
	if c.source == nil {
		return
	}

	taskList, err := c.source.GetAllTasks()
	if err != nil {
		c.logWarn(fmt.Sprintf("Could not load tasks: %v", err))
		return
	}

	c.writeBlock(display.RenderProgressSummary(taskList))

	if next, err := tasks.NextTask(taskList); err == nil {
		fmt.Fprintf(c.out, "Next task: %s: %s\n", next.ID, next.Title)
	}
}

// pause sleeps the pacing delay, returning early when the context ends.
func (c *Controller) pause(ctx context.Context) {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}
}

// appendProgress adds one line to the progress log, warning on failure.
func (c *Controller) appendProgress(message string) {
	if err := c.progressLog.Append(message); err != nil {
		c.logWarn(fmt.Sprintf("Could not append to progress log: %v", err))
	}
}

// writeBlock prints a multi-line block to the summary writer with exactly
// one trailing newline.
func (c *Controller) writeBlock(block string) {
	fmt.Fprintln(c.out, strings.TrimRight(block, "\n"))
}

// logEscalation is the guardian hook: escalations surface as log lines.
func (c *Controller) logEscalation(level guardian.EscalationLevel, _ guardian.GuardianState) {
	switch level {
	case guardian.EscalationWarning:
		c.logWarn("Budget guardian: budget usage passed the warning threshold")
	case guardian.EscalationCritical:
		c.logWarn("Budget guardian: CRITICAL - approaching budget limit")
	case guardian.EscalationExceeded:
		c.logError("Budget guardian: BUDGET EXCEEDED - stopping execution")
	}
}

func (c *Controller) logInfo(message string) {
	if c.logger != nil {
		c.logger.LogInfo(message)
	}
}

func (c *Controller) logWarn(message string) {
	if c.logger != nil {
		c.logger.LogWarn(message)
	}
}

func (c *Controller) logError(message string) {
	if c.logger != nil {
		c.logger.LogError(message)
	}
}
