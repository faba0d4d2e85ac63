package app

// State represents the position of a workflow in the select/digest/submit cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingDigest
	StateReady
	StateSubmitting
	StateReported
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingDigest:
		return "AwaitingDigest"
	case StateReady:
		return "Ready"
	case StateSubmitting:
		return "Submitting"
	case StateReported:
		return "Reported"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Pending returns true while an asynchronous step is outstanding.
func (s State) Pending() bool {
	return s == StateAwaitingDigest || s == StateSubmitting
}

// EventEmitter is called when workflow state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(previous, current State, reason string)

// OnStateChange calls f.
func (f EmitterFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}
