// Package livesync turns the store's live queries into a consistent
// in-memory view of one user's notes, topics and events.
package livesync

// State is the lifecycle of one subscribed collection.
type State string

const (
	StateIdle        State = "idle"
	StateSubscribing State = "subscribing"
	StateLive        State = "live"
	StateError       State = "error"
	StateClosed      State = "closed"
)

// Status reports a collection's state. Err is set in StateError and is
// retryable via Core.Retry.
type Status struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
	Seq   uint64 `json:"seq"`

	err error
}

// Err returns the error that moved the collection into StateError.
func (s Status) Err() error { return s.err }
