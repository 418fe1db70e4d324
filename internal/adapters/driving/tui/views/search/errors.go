package search

import (
	"errors"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ErrNoLiveSearch indicates that no live search session was provided.
var ErrNoLiveSearch = errors.New("live search session is required")

// Describe turns an error into a one-line message for the status bar.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidPattern):
		return "Invalid regex, keep typing"
	case errors.Is(err, domain.ErrModeUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "Semantic search is not configured"
	case errors.Is(err, domain.ErrNotFound):
		return "Conversation no longer exists"
	case errors.Is(err, domain.ErrRateLimited):
		return "Embedding provider is rate limited, try again"
	default:
		return err.Error()
	}
}
