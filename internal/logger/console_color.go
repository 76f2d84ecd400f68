package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for run summary metrics.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// formatRunMetrics formats the guardian counters for the run summary.
// Format: "attempts: N, cost: $X.XX"
// The attempts label is colored green, the cost label cyan. Colors are
// automatically disabled when output is not a TTY via fatih/color's
// built-in detection.
func formatRunMetrics(attempts int, cost float64, colorize bool) string {
	costStr := fmt.Sprintf("$%.2f", cost)

	if !colorize {
		return fmt.Sprintf("attempts: %d, cost: %s", attempts, costStr)
	}

	scheme := newColorScheme()
	var parts []string

	attemptsLabel := scheme.success.Sprint("attempts")
	attemptsValue := scheme.value.Sprintf("%d", attempts)
	parts = append(parts, fmt.Sprintf("%s: %s", attemptsLabel, attemptsValue))

	parts = append(parts, formatColorizedMetric("cost", costStr, scheme))

	return strings.Join(parts, ", ")
}
