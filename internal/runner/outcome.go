package runner

// Outcome is the terminal disposition of one run. A run is in flight until
// it reaches exactly one of these; there are no transitions between them.
type Outcome int

const (
	// OutcomeCompleted means an iteration's output carried the completion
	// marker.
	OutcomeCompleted Outcome = iota
	// OutcomeExhausted means the iteration limit ran out without a marker.
	OutcomeExhausted
	// OutcomeAborted means the run stopped early: an attempt was denied or
	// the tool invocation failed.
	OutcomeAborted
)

// String returns the lower-case name recorded into run history.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome onto the process exit status. Only a completed
// run exits zero.
func (o Outcome) ExitCode() int {
	if o == OutcomeCompleted {
		return 0
	}
	return 1
}
