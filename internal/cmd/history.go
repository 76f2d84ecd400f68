package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/drover/internal/config"
	"github.com/harrison/drover/internal/history"
	"github.com/harrison/drover/internal/runner"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long: `Display runs recorded in the history database, most recent first.

Every finished run records its tool, outcome, iteration count, guardian
attempts and cost, and duration.

Examples:
  drover history             # Show the last 10 runs
  drover history --limit 3   # Show the last 3 runs
  drover history --limit 0   # Show everything`,
		Args: cobra.NoArgs,
		RunE: runHistoryCommand,
	}

	cmd.Flags().Int("limit", 10, "Maximum runs to show (0 shows all)")
	cmd.Flags().String("work-dir", ".", "Working directory whose run history to show")

	return cmd
}

// runHistoryCommand implements the history command logic
func runHistoryCommand(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	workDirFlag, _ := cmd.Flags().GetString("work-dir")
	workDir, err := filepath.Abs(workDirFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve work directory %s: %w", workDirFlag, err)
	}

	dbPath, err := config.GetHistoryDBPath(workDir)
	if err != nil {
		return fmt.Errorf("failed to resolve history database: %w", err)
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	printRunHistory(cmd.OutOrStdout(), runs)
	return nil
}

// printRunHistory renders recorded runs in human-readable form.
func printRunHistory(out io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return
	}

	fmt.Fprintf(out, "Recent runs: %d\n\n", len(runs))

	completed := 0
	totalCost := 0.0
	for _, run := range runs {
		fmt.Fprintf(out, "%s\n", run.RunID)
		fmt.Fprintf(out, "  Started:     %s\n", run.StartedAt.Format("Jan 02, 3:04 PM"))
		fmt.Fprintf(out, "  Tool:        %s\n", run.Backend)
		fmt.Fprintf(out, "  Outcome:     %s\n", run.Outcome)
		fmt.Fprintf(out, "  Iterations:  %d\n", run.Iterations)
		fmt.Fprintf(out, "  Attempts:    %d\n", run.Attempts)
		fmt.Fprintf(out, "  Cost:        $%.2f\n", run.Cost)
		fmt.Fprintf(out, "  Duration:    %s\n", formatRunDuration(run.DurationSecs))
		fmt.Fprintln(out)

		if run.Outcome == runner.OutcomeCompleted.String() {
			completed++
		}
		totalCost += run.Cost
	}

	fmt.Fprintln(out, strings.Repeat("─", 55))
	fmt.Fprintf(out, "Total: %d runs, %d completed, $%.2f spent\n", len(runs), completed, totalCost)
}

// formatRunDuration formats a duration in seconds in human-readable form
func formatRunDuration(secs int64) string {
	d := time.Duration(secs) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
