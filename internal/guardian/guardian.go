// Package guardian gates iteration attempts against an attempt ceiling and
// a cumulative cost budget. Every attempt must be authorized before it runs;
// the guardian keeps an append-only audit trail and escalates a severity
// level as usage rises.
package guardian

import (
	"fmt"
	"strings"
	"time"
)

// GuardianConfig holds the immutable limits a Guardian enforces. It is set
// at construction and never mutated afterwards.
type GuardianConfig struct {
	MaxAttempts         int     // Attempt ceiling, must be positive
	BudgetLimit         float64 // Cumulative cost ceiling; <= 0 counts as already maxed
	CostPerAttempt      float64 // Default charge when no per-attempt cost is supplied
	WarningThreshold    float64 // Usage fraction that escalates to warning
	CriticalThreshold   float64 // Usage fraction that escalates to critical
	ExceededThreshold   float64 // Usage fraction that escalates to exceeded
	AllowBudgetOverflow bool    // Skip the budget check, attempts still capped
}

// DefaultGuardianConfig returns the stock limits: ten attempts against a
// $100 budget at $10 per attempt, escalating at 50/80/90 percent.
func DefaultGuardianConfig() GuardianConfig {
	return GuardianConfig{
		MaxAttempts:         10,
		BudgetLimit:         100.0,
		CostPerAttempt:      10.0,
		WarningThreshold:    0.5,
		CriticalThreshold:   0.8,
		ExceededThreshold:   0.9,
		AllowBudgetOverflow: false,
	}
}

// AttemptAuthorization is the receipt returned for each authorized attempt.
// Remaining values reflect the state after this attempt's charge and are
// floored at zero.
type AttemptAuthorization struct {
	AttemptNumber     int             // 1-based sequential attempt number
	Cost              float64         // Cost charged for this attempt
	RemainingBudget   float64         // Budget left after the charge, never negative
	RemainingAttempts int             // Attempts left after this one, never negative
	EscalationLevel   EscalationLevel // Severity after the charge
}

// EscalationFunc is invoked when the escalation level changes. It receives
// the new level and a copy of the ledger; a panicking callback is swallowed
// so host-side alerting can never corrupt the guardian.
type EscalationFunc func(level EscalationLevel, state GuardianState)

// Guardian authorizes attempts until its limits run out. It is owned by a
// single run loop and is not safe for concurrent use.
type Guardian struct {
	config       GuardianConfig
	state        GuardianState
	onEscalation EscalationFunc
}

// New creates a Guardian with a fresh ledger starting now.
func New(config GuardianConfig) *Guardian {
	return &Guardian{
		config: config,
		state:  newState(),
	}
}

// OnEscalation installs the escalation hook. Passing nil removes it.
func (g *Guardian) OnEscalation(fn EscalationFunc) {
	g.onEscalation = fn
}

// Config returns the immutable limits.
func (g *Guardian) Config() GuardianConfig {
	return g.config
}

// State returns a copy of the current ledger.
func (g *Guardian) State() GuardianState {
	return g.state.Clone()
}

// RemainingAttempts returns how many attempts may still be authorized.
func (g *Guardian) RemainingAttempts() int {
	remaining := g.config.MaxAttempts - g.state.TotalAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingBudget returns the budget still available, floored at zero even
// when overflow has pushed the true figure negative.
func (g *Guardian) RemainingBudget() float64 {
	remaining := g.config.BudgetLimit - g.state.TotalCost
	if remaining < 0 {
		return 0.0
	}
	return remaining
}

// BudgetPercentageUsed returns the used fraction of the budget (may exceed
// 1.0 under overflow). A non-positive limit counts as fully used.
func (g *Guardian) BudgetPercentageUsed() float64 {
	if g.config.BudgetLimit <= 0 {
		return 1.0
	}
	return g.state.TotalCost / g.config.BudgetLimit
}

// AuthorizeAttempt charges one attempt against the ledger. The optional
// taskCost overrides the configured per-attempt cost. The attempt ceiling
// is checked before the budget; a denial appends an audit note but never
// touches the counters.
func (g *Guardian) AuthorizeAttempt(taskCost ...float64) (AttemptAuthorization, error) {
	cost := g.config.CostPerAttempt
	if len(taskCost) > 0 {
		cost = taskCost[0]
	}

	if g.state.TotalAttempts >= g.config.MaxAttempts {
		g.state.Notes = append(g.state.Notes,
			fmt.Sprintf("Denied: max attempts (%d)", g.config.MaxAttempts))
		return AttemptAuthorization{}, newDenialError(ReasonMaxAttempts, g.state,
			"maximum attempts reached (%d)", g.config.MaxAttempts)
	}

	if !g.config.AllowBudgetOverflow && g.RemainingBudget() < cost {
		g.state.Notes = append(g.state.Notes,
			fmt.Sprintf("Denied: insufficient budget (%.2f < %.2f)", g.RemainingBudget(), cost))
		return AttemptAuthorization{}, newDenialError(ReasonInsufficientBudget, g.state,
			"insufficient budget (remaining: %.2f, required: %.2f)", g.RemainingBudget(), cost)
	}

	g.state.TotalAttempts++
	g.state.TotalCost += cost
	g.state.LastAttemptTime = time.Now()

	level := g.updateEscalation()

	auth := AttemptAuthorization{
		AttemptNumber:     g.state.TotalAttempts,
		Cost:              cost,
		RemainingBudget:   g.RemainingBudget(),
		RemainingAttempts: g.RemainingAttempts(),
		EscalationLevel:   level,
	}

	g.state.Notes = append(g.state.Notes,
		fmt.Sprintf("Attempt %d authorized (cost: %.2f, remaining: %.2f)",
			auth.AttemptNumber, cost, auth.RemainingBudget))

	return auth, nil
}

// RecordSuccess marks the most recent attempt as succeeded. It has no
// guard conditions and may be called any number of times.
func (g *Guardian) RecordSuccess() {
	g.state.SuccessfulAttempts++
	g.state.Notes = append(g.state.Notes,
		fmt.Sprintf("Attempt %d succeeded", g.state.TotalAttempts))
}

// RecordFailure marks the most recent attempt as failed, including the
// reason in the audit note when one is given.
func (g *Guardian) RecordFailure(reason string) {
	g.state.FailedAttempts++
	msg := fmt.Sprintf("Attempt %d failed", g.state.TotalAttempts)
	if reason != "" {
		msg += ": " + reason
	}
	g.state.Notes = append(g.state.Notes, msg)
}

// ElapsedTime returns how long this ledger has been running.
func (g *Guardian) ElapsedTime() time.Duration {
	return time.Since(g.state.StartTime)
}

// Summary renders the fixed-format resource report. Pure read.
func (g *Guardian) Summary() string {
	rule := strings.Repeat("=", 50)
	lines := []string{
		rule,
		"Resource Guardian Report",
		rule,
		fmt.Sprintf("Attempts: %d/%d (%d succeeded, %d failed)",
			g.state.TotalAttempts, g.config.MaxAttempts,
			g.state.SuccessfulAttempts, g.state.FailedAttempts),
		fmt.Sprintf("Budget:   %.2f/%.2f (%.1f%% used)",
			g.state.TotalCost, g.config.BudgetLimit, g.BudgetPercentageUsed()*100),
		fmt.Sprintf("Elapsed:  %.1fs", g.ElapsedTime().Seconds()),
		fmt.Sprintf("Status:   %s", strings.ToUpper(g.state.EscalationLevel.String())),
		rule,
	}
	return strings.Join(lines, "\n")
}

// Reset replaces the ledger with a fresh one. The config is untouched.
func (g *Guardian) Reset() {
	g.state = newState()
}

// updateEscalation recomputes the severity from current usage and, on a
// transition, records it and fires the hook with a state copy.
func (g *Guardian) updateEscalation() EscalationLevel {
	budgetFraction := g.BudgetPercentageUsed()

	attemptFraction := 1.0
	if g.config.MaxAttempts > 0 {
		attemptFraction = float64(g.state.TotalAttempts) / float64(g.config.MaxAttempts)
	}

	effective := budgetFraction
	if attemptFraction > effective {
		effective = attemptFraction
	}

	var level EscalationLevel
	switch {
	case effective >= g.config.ExceededThreshold:
		level = EscalationExceeded
	case effective >= g.config.CriticalThreshold:
		level = EscalationCritical
	case effective >= g.config.WarningThreshold:
		level = EscalationWarning
	default:
		level = EscalationNormal
	}

	if level != g.state.EscalationLevel {
		old := g.state.EscalationLevel
		g.state.EscalationLevel = level
		g.state.Notes = append(g.state.Notes,
			fmt.Sprintf("Escalation: %s -> %s (%.1f%% used)", old, level, effective*100))
		if g.onEscalation != nil {
			g.fireEscalation(level)
		}
	}

	return level
}

// fireEscalation runs the hook, swallowing panics so a broken callback
// cannot corrupt the ledger mid-authorization.
func (g *Guardian) fireEscalation(level EscalationLevel) {
	defer func() {
		_ = recover()
	}()
	g.onEscalation(level, g.state.Clone())
}
