package guardian

import "time"

// EscalationLevel classifies how close the run is to exhausting its
// resources. Levels are totally ordered by severity; the guardian only
// ever moves a run's level upward (a Reset starts a fresh ledger).
type EscalationLevel int

const (
	// EscalationNormal means usage is below every configured threshold.
	EscalationNormal EscalationLevel = iota
	// EscalationWarning means usage crossed the warning threshold.
	EscalationWarning
	// EscalationCritical means usage crossed the critical threshold.
	EscalationCritical
	// EscalationExceeded means usage crossed the exceeded threshold.
	EscalationExceeded
)

// String returns the lowercase name used in audit notes and reports.
func (l EscalationLevel) String() string {
	switch l {
	case EscalationNormal:
		return "normal"
	case EscalationWarning:
		return "warning"
	case EscalationCritical:
		return "critical"
	case EscalationExceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}

// GuardianState is the mutable ledger owned by a Guardian. It is only
// mutated by the guardian's own methods; everything handed out to callers
// is a copy.
type GuardianState struct {
	TotalAttempts      int             // Authorized attempts so far
	TotalCost          float64         // Cumulative cost charged, never decremented
	SuccessfulAttempts int             // Attempts recorded as succeeded
	FailedAttempts     int             // Attempts recorded as failed
	StartTime          time.Time       // When this ledger began
	LastAttemptTime    time.Time       // Zero until the first authorization
	EscalationLevel    EscalationLevel // Current severity classification
	Notes              []string        // Append-only audit trail
}

// newState returns a fresh ledger starting now.
func newState() GuardianState {
	return GuardianState{
		StartTime:       time.Now(),
		EscalationLevel: EscalationNormal,
	}
}

// Clone returns a deep copy so callers cannot reach back into the
// guardian's ledger through the notes slice.
func (s GuardianState) Clone() GuardianState {
	out := s
	out.Notes = make([]string, len(s.Notes))
	copy(out.Notes, s.Notes)
	return out
}
