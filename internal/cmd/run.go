package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/drover/internal/config"
	"github.com/harrison/drover/internal/display"
	"github.com/harrison/drover/internal/executor"
	"github.com/harrison/drover/internal/guardian"
	"github.com/harrison/drover/internal/history"
	"github.com/harrison/drover/internal/logger"
	"github.com/harrison/drover/internal/progress"
	"github.com/harrison/drover/internal/runner"
	"github.com/harrison/drover/internal/tasks"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the agent loop",
		Long: `Execute the autonomous agent loop with the configured tool.

The run command invokes the agent CLI once per iteration, feeding it the
prompt file from the working directory and scanning its output for the
completion marker. The loop stops when the marker appears, when the budget
guardian denies an attempt, when the tool fails, or when the iteration
limit runs out.

Configuration is loaded from .drover.yaml in the working directory if
present, then overlaid with environment variables (DROVER_*, CODEX_*,
OPENCODE_*). CLI flags override both.

Examples:
  # Run with the amp tool for 10 iterations
  drover run --tool amp --max-iterations 10

  # Run with codex in a different project
  drover run --tool codex --work-dir ~/src/myproject

  # Mark a task in-progress before looping
  drover run --task-id 42

  # Show what would be executed without running anything
  drover run --tool opencode --dry-run

  # Run without budget enforcement
  drover run --no-budget`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	// Add flags
	cmd.Flags().StringP("tool", "t", "", "Agent CLI to run: amp, claude, codex, opencode (default from config)")
	cmd.Flags().Int("max-iterations", 10, "Maximum iterations to run")
	cmd.Flags().String("task-id", "", "Mark this task in-progress before the loop starts")
	cmd.Flags().Bool("dry-run", false, "Print the resolved configuration and command line without executing")
	cmd.Flags().Bool("verbose", false, "Show debug-level output")
	cmd.Flags().String("work-dir", ".", "Working directory for the agent and its task files")
	cmd.Flags().String("config", "", "Path to config file (default: .drover.yaml in the work directory)")
	cmd.Flags().Bool("no-budget", false, "Disable the budget guardian")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	workDirFlag, _ := cmd.Flags().GetString("work-dir")
	workDir, err := filepath.Abs(workDirFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve work directory %s: %w", workDirFlag, err)
	}

	// Load configuration from file
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config

	if configPath != "" {
		// Load from explicit config path
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		// Load from .drover.yaml in the work directory
		cfg, err = config.LoadConfigFromDir(workDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Overlay environment variables
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	// Get flag values
	toolFlag, _ := cmd.Flags().GetString("tool")
	maxIterationsFlag, _ := cmd.Flags().GetInt("max-iterations")
	noBudgetFlag, _ := cmd.Flags().GetBool("no-budget")
	taskID, _ := cmd.Flags().GetString("task-id")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Build flag pointers for merge (only values the user set)
	var toolPtr *string
	if cmd.Flags().Changed("tool") {
		toolPtr = &toolFlag
	}

	var maxIterationsPtr *int
	if cmd.Flags().Changed("max-iterations") {
		maxIterationsPtr = &maxIterationsFlag
	}

	var noBudgetPtr *bool
	if cmd.Flags().Changed("no-budget") {
		noBudgetPtr = &noBudgetFlag
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(toolPtr, maxIterationsPtr, nil, noBudgetPtr)

	// Validate merged configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Determine log level: verbose flag overrides config
	logLevel := cfg.LogLevel
	if verbose {
		logLevel = "debug"
	}

	// Build the executor once; the controller reuses it across iterations
	exec := executor.New(executor.Params{
		Backend: executor.Backend(cfg.Tool),
		WorkDir: workDir,
		Codex: executor.CodexOptions{
			Model:           cfg.Codex.Model,
			ReasoningEffort: cfg.Codex.ReasoningEffort,
			Sandbox:         cfg.Codex.Sandbox,
			FullAuto:        cfg.Codex.FullAuto,
			ExtraArgs:       cfg.Codex.ExtraArgs,
			PromptFile:      cfg.Codex.PromptFile,
		},
		Opencode: executor.OpencodeOptions{
			Model:     cfg.Opencode.Model,
			ExtraArgs: cfg.Opencode.ExtraArgs,
		},
	})

	// Dry-run mode: show the resolved configuration and command, touch nothing
	if dryRun {
		printDryRun(cmd.OutOrStdout(), cfg, workDir, exec)
		return nil
	}

	// Create console logger for real-time progress
	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), logLevel)

	// Create file logger for the run log (best-effort; console carries on alone)
	var fileLog *logger.FileLogger
	fileLog, err = logger.NewFileLoggerWithDirAndLevel(cfg.ResolveLogDir(workDir), logLevel)
	if err != nil {
		consoleLog.LogWarn(fmt.Sprintf("Could not create run log: %v", err))
		fileLog = nil
	} else {
		defer fileLog.Close()
	}

	// Create multi-logger that writes to both console and file
	multiLog := &multiLogger{loggers: []runLogger{consoleLog}}
	if fileLog != nil {
		multiLog.loggers = append(multiLog.loggers, fileLog)
	}

	// Detect the task source; task access is advisory throughout
	var source tasks.Source
	if src, err := tasks.Detect(workDir); err == nil {
		source = src
	} else {
		warning := display.WarnTaskSource(err)
		warning.Display(cmd.OutOrStdout())
	}

	// Mark the requested task in-progress before the loop starts
	if taskID != "" {
		markTaskInProgress(multiLog, source, taskID)
	}

	// Create the budget guardian unless disabled
	var guard *guardian.Guardian
	if cfg.Budget.Enabled {
		gcfg := guardian.DefaultGuardianConfig()
		gcfg.MaxAttempts = cfg.Budget.MaxAttempts
		gcfg.BudgetLimit = cfg.Budget.BudgetLimit
		gcfg.CostPerAttempt = cfg.Budget.CostPerAttempt
		gcfg.AllowBudgetOverflow = cfg.Budget.AllowOverflow
		guard = guardian.New(gcfg)
	}

	// Open the run history store (best-effort; a run without history still runs)
	var store *history.Store
	if dbPath, err := config.GetHistoryDBPath(workDir); err != nil {
		multiLog.LogWarn(fmt.Sprintf("Could not resolve history database: %v", err))
	} else if s, err := history.NewStore(dbPath); err != nil {
		multiLog.LogWarn(fmt.Sprintf("Could not open history database: %v", err))
	} else {
		store = s
		defer store.Close()
	}

	controller := runner.New(runner.Params{
		Executor:      exec,
		Progress:      progress.DefaultLog(workDir),
		MaxIterations: cfg.MaxIterations,
		Backend:       cfg.Tool,
		Guardian:      guard,
		Source:        source,
		History:       store,
		Logger:        multiLog,
		Out:           cmd.OutOrStdout(),
	})

	result, err := controller.Run(cmd.Context())
	if err != nil {
		return err
	}

	// Final summary to both loggers
	summary := logger.RunSummary{
		Outcome:       result.Outcome.String(),
		Iterations:    result.Iterations,
		MaxIterations: cfg.MaxIterations,
		Duration:      result.Duration,
	}
	if guard != nil {
		state := guard.State()
		summary.Attempts = state.TotalAttempts
		summary.Cost = state.TotalCost
	}
	multiLog.LogRunSummary(summary)

	if fileLog != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Logs written to: %s\n", fileLog.Path())
	}

	// The outcome was already logged; hand main() the bare exit status
	if code := result.Outcome.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// printDryRun shows the resolved configuration and the exact command line
// the loop would execute.
func printDryRun(out io.Writer, cfg *config.Config, workDir string, exec *executor.ToolExecutor) {
	fmt.Fprintf(out, "Resolved configuration:\n")
	fmt.Fprintf(out, "  Tool: %s\n", cfg.Tool)
	fmt.Fprintf(out, "  Max iterations: %d\n", cfg.MaxIterations)
	fmt.Fprintf(out, "  Work directory: %s\n", workDir)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "  Log directory: %s\n", cfg.ResolveLogDir(workDir))

	if cfg.Budget.Enabled {
		fmt.Fprintf(out, "  Budget: max attempts %d, limit $%.2f, cost per attempt $%.2f\n",
			cfg.Budget.MaxAttempts, cfg.Budget.BudgetLimit, cfg.Budget.CostPerAttempt)
		if cfg.Budget.AllowOverflow {
			fmt.Fprintf(out, "  Budget overflow: allowed\n")
		}
	} else {
		fmt.Fprintf(out, "  Budget: disabled\n")
	}

	switch executor.Backend(cfg.Tool) {
	case executor.BackendCodex:
		fmt.Fprintf(out, "  Codex model: %s (reasoning: %s, sandbox: %s, full auto: %t)\n",
			cfg.Codex.Model, cfg.Codex.ReasoningEffort, cfg.Codex.Sandbox, cfg.Codex.FullAuto)
	case executor.BackendOpencode:
		fmt.Fprintf(out, "  Opencode model: %s\n", cfg.Opencode.Model)
	}

	fmt.Fprintf(out, "\nDry-run mode: nothing was executed.\n")
	fmt.Fprintf(out, "  Command: %s\n", exec.CommandLine())
	if promptPath := exec.PromptPath(); promptPath != "" {
		fmt.Fprintf(out, "  Prompt: %s (piped to stdin)\n", promptPath)
	}
}

// markTaskInProgress flips the task's status ahead of the loop. Failure is
// advisory: the loop starts either way.
func markTaskInProgress(log *multiLogger, source tasks.Source, taskID string) {
	if source == nil {
		log.LogWarn(fmt.Sprintf("Could not mark task %s in-progress: no task source", taskID))
		return
	}
	if err := source.UpdateTaskStatus(taskID, tasks.StatusInProgress); err != nil {
		log.LogWarn(fmt.Sprintf("Could not mark task %s in-progress: %v", taskID, err))
		return
	}
	log.LogInfo(fmt.Sprintf("Task %s marked in-progress", taskID))
}

// runLogger is the logging surface the run command drives: leveled lines
// plus the final run summary.
type runLogger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunSummary(summary logger.RunSummary)
}

// multiLogger implements runLogger by delegating to multiple loggers
type multiLogger struct {
	loggers []runLogger
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, logger := range ml.loggers {
		logger.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, logger := range ml.loggers {
		logger.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, logger := range ml.loggers {
		logger.LogWarn(message)
	}
}

// LogError forwards to all loggers
func (ml *multiLogger) LogError(message string) {
	for _, logger := range ml.loggers {
		logger.LogError(message)
	}
}

// LogRunSummary forwards to all loggers
func (ml *multiLogger) LogRunSummary(summary logger.RunSummary) {
	for _, logger := range ml.loggers {
		logger.LogRunSummary(summary)
	}
}
