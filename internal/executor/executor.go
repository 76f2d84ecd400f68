// Package executor runs one external coding-agent invocation per call. Four
// backend variants share a single execution primitive; they differ only in
// the argument vector they build and whether a prompt file is piped to the
// child's stdin.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Backend identifies one of the interchangeable agent CLIs.
type Backend string

const (
	// BackendAmp is the amp CLI, prompted via prompt.md on stdin.
	BackendAmp Backend = "amp"
	// BackendClaude is the Claude Code CLI, prompted via CLAUDE.md on stdin.
	BackendClaude Backend = "claude"
	// BackendCodex is the Codex CLI, prompted via its @drover-next saved
	// prompt and configured through CODEX_* environment defaults.
	BackendCodex Backend = "codex"
	// BackendOpencode is the OpenCode CLI, prompted via prompt.md on stdin.
	BackendOpencode Backend = "opencode"
)

// Prompt file conventions inside the working directory.
const (
	// PromptFileName feeds the amp and opencode backends.
	PromptFileName = "prompt.md"
	// ClaudePromptFileName feeds the claude backend and is the default
	// CODEX_PROMPT_FILE exported to the codex backend.
	ClaudePromptFileName = "CLAUDE.md"
)

// Backends returns the recognized backend identifiers, for flag validation
// and help text.
func Backends() []string {
	return []string{
		string(BackendAmp),
		string(BackendClaude),
		string(BackendCodex),
		string(BackendOpencode),
	}
}

// IsValidBackend reports whether name names a known backend.
func IsValidBackend(name string) bool {
	switch Backend(name) {
	case BackendAmp, BackendClaude, BackendCodex, BackendOpencode:
		return true
	default:
		return false
	}
}

// CodexOptions carries the codex backend's distinguishing parameters.
type CodexOptions struct {
	Model           string // Passed to -m and exported as CODEX_MODEL
	ReasoningEffort string // Exported and passed via --config model_reasoning_effort
	Sandbox         string // Passed to --sandbox and exported as CODEX_SANDBOX
	FullAuto        bool   // Exported as CODEX_FULL_AUTO
	ExtraArgs       string // Whitespace-split into extra argv entries
	PromptFile      string // Exported as CODEX_PROMPT_FILE; defaults to CLAUDE.md
}

// OpencodeOptions carries the opencode backend's distinguishing parameters.
type OpencodeOptions struct {
	Model     string // Passed to --model
	ExtraArgs string // Whitespace-split into extra argv entries
}

// Params configures a ToolExecutor.
type Params struct {
	Backend  Backend         // Which agent CLI to invoke
	WorkDir  string          // Working directory for the child process
	Stderr   io.Writer       // Live tee target; defaults to os.Stderr
	Codex    CodexOptions    // Used when Backend is codex
	Opencode OpencodeOptions // Used when Backend is opencode
}

// ToolExecutor executes one agent turn per Run call. Construct it once per
// run and reuse it across iterations; it holds no per-invocation state.
type ToolExecutor struct {
	backend  Backend
	workDir  string
	stderr   io.Writer
	codex    CodexOptions
	opencode OpencodeOptions
}

// New creates a ToolExecutor for the given backend. The backend identifier
// must already be validated; an unrecognized one panics when the command is
// built, since it can only get there through a programming error.
func New(params Params) *ToolExecutor {
	codex := params.Codex
	if codex.PromptFile == "" {
		codex.PromptFile = filepath.Join(params.WorkDir, ClaudePromptFileName)
	}
	return &ToolExecutor{
		backend:  params.Backend,
		workDir:  params.WorkDir,
		stderr:   params.Stderr,
		codex:    codex,
		opencode: params.Opencode,
	}
}

// Backend returns the backend this executor invokes.
func (e *ToolExecutor) Backend() Backend {
	return e.backend
}

// PromptPath returns the prompt file piped to the child's stdin, or empty
// for backends that take no stdin.
func (e *ToolExecutor) PromptPath() string {
	return e.buildInvocation().stdinPath
}

// CommandLine renders the full argument vector for dry-run display and
// error messages.
func (e *ToolExecutor) CommandLine() string {
	return strings.Join(e.buildInvocation().args, " ")
}

// Run executes one agent turn: read the prompt if the backend takes one,
// spawn the tool, tee its combined output live to the diagnostic writer
// while buffering it, and return the buffered text on exit 0.
func (e *ToolExecutor) Run(ctx context.Context) (string, error) {
	return e.runCommand(ctx, e.buildInvocation())
}

// invocation is one fully constructed backend command: the argv, the prompt
// file piped to stdin (if any), and environment defaults overlaid on the
// inherited environment without clobbering caller-supplied values.
type invocation struct {
	args      []string
	stdinPath string
	env       map[string]string
}

// buildInvocation constructs the per-backend command. This is the single
// point of variant dispatch.
func (e *ToolExecutor) buildInvocation() invocation {
	switch e.backend {
	case BackendAmp:
		return invocation{
			args:      []string{"amp", "--dangerously-allow-all"},
			stdinPath: filepath.Join(e.workDir, PromptFileName),
		}

	case BackendClaude:
		return invocation{
			args: []string{
				"claude",
				"--model", "sonnet",
				"--dangerously-skip-permissions",
				"--print",
			},
			stdinPath: filepath.Join(e.workDir, ClaudePromptFileName),
		}

	case BackendCodex:
		args := []string{
			"codex", "exec",
			"-m", e.codex.Model,
			"--config", fmt.Sprintf("model_reasoning_effort=%q", e.codex.ReasoningEffort),
			"--sandbox", e.codex.Sandbox,
			"--dangerously-bypass-approvals-and-sandbox",
			"--cd", e.workDir,
		}
		args = append(args, strings.Fields(e.codex.ExtraArgs)...)
		args = append(args, "@drover-next")

		env := map[string]string{
			"CODEX_PROMPT_FILE":      e.codex.PromptFile,
			"CODEX_MODEL":            e.codex.Model,
			"CODEX_REASONING_EFFORT": e.codex.ReasoningEffort,
			"CODEX_SANDBOX":          e.codex.Sandbox,
			"CODEX_FULL_AUTO":        strconv.FormatBool(e.codex.FullAuto),
		}
		if e.codex.ExtraArgs != "" {
			env["CODEX_EXTRA_ARGS"] = e.codex.ExtraArgs
		}
		return invocation{args: args, env: env}

	case BackendOpencode:
		args := []string{"opencode", "--model", e.opencode.Model}
		args = append(args, strings.Fields(e.opencode.ExtraArgs)...)
		return invocation{
			args:      args,
			stdinPath: filepath.Join(e.workDir, PromptFileName),
		}

	default:
		panic(fmt.Sprintf("executor: unknown backend %q", e.backend))
	}
}

// runCommand is the shared execution primitive. The child's stdout and
// stderr go through one writer so exec serializes the two copy goroutines;
// the same bytes land in the diagnostic stream and the returned buffer.
func (e *ToolExecutor) runCommand(ctx context.Context, inv invocation) (string, error) {
	command := strings.Join(inv.args, " ")

	var stdin io.Reader
	if inv.stdinPath != "" {
		prompt, err := os.ReadFile(inv.stdinPath)
		if err != nil {
			return "", NewPromptError(inv.stdinPath, err)
		}
		stdin = bytes.NewReader(prompt)
	}

	cmd := exec.CommandContext(ctx, inv.args[0], inv.args[1:]...)
	cmd.Dir = e.workDir
	cmd.Env = overlayEnv(os.Environ(), inv.env)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	diag := e.stderr
	if diag == nil {
		diag = os.Stderr
	}

	var buf bytes.Buffer
	tee := io.MultiWriter(diag, &buf)
	cmd.Stdout = tee
	cmd.Stderr = tee

	if err := cmd.Start(); err != nil {
		return "", NewSpawnError(command, err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", NewExitError(command, exitErr.ExitCode(), buf.String())
		}
		return "", NewSpawnError(command, err)
	}

	return buf.String(), nil
}
