package domain

// LiveState is the state of an interactive search session.
type LiveState int

// Live search states.
const (
	// LiveIdle means there is no query.
	LiveIdle LiveState = iota

	// LivePending means input arrived and the debounce timer is running.
	LivePending

	// LiveSearching means a search has been dispatched.
	LiveSearching

	// LivePresenting means the latest results were delivered.
	LivePresenting

	// LiveCancelled means the in-flight search was superseded by newer input.
	LiveCancelled
)

// String returns the state name.
func (s LiveState) String() string {
	switch s {
	case LiveIdle:
		return "idle"
	case LivePending:
		return "pending"
	case LiveSearching:
		return "searching"
	case LivePresenting:
		return "presenting"
	case LiveCancelled:
		return "cancelled"
	default:
		return unknownDescription
	}
}

// LiveUpdate is one delivery from a live search session to the renderer.
// Seq never decreases across deliveries of the same session.
type LiveUpdate struct {
	// Seq is the sequence number of the search that produced this update.
	Seq uint64

	// Query is the query text the results belong to.
	Query string

	// Mode is the mode the query ran in.
	Mode SearchMode

	// Results is the ordered result list. Empty when the query was cleared.
	Results []SearchResult

	// Err is set when the query failed, e.g. with ErrInvalidPattern.
	Err error

	// Cached is true when the results were served from the session cache.
	Cached bool
}
