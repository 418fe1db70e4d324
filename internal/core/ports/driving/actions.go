package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ResultActionService provides actions on search results for external actors.
// This is used by TUI, CLI, and MCP adapters.
type ResultActionService interface {
	// CopyToClipboard copies the matched turn's full text to the system clipboard.
	CopyToClipboard(ctx context.Context, result *domain.SearchResult) error

	// OpenConversation opens the result's source log in the default application.
	OpenConversation(ctx context.Context, result *domain.SearchResult) error
}
