package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs one query in exactly one mode and returns ranked results.
	// An empty query yields an empty slice and no error.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error)

	// ModeAvailable returns nil if the mode can run, or an error wrapping
	// domain.ErrModeUnavailable.
	ModeAvailable(mode domain.SearchMode) error

	// AvailableModes lists the modes that can currently run.
	AvailableModes() []domain.SearchMode
}

// LiveSearch is an interactive search session fed by keystrokes.
type LiveSearch interface {
	// Input records the full current query text.
	Input(text string)

	// SetMode switches mode and re-runs the current query.
	SetMode(mode domain.SearchMode)

	// Mode returns the active mode.
	Mode() domain.SearchMode

	// State returns the current session state.
	State() domain.LiveState

	// Updates delivers results in non-decreasing sequence order.
	Updates() <-chan domain.LiveUpdate

	// Close stops the session and closes Updates.
	Close()
}
