package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ConversationService exposes the loaded conversations.
type ConversationService interface {
	// List returns conversations, most recently modified first.
	List(ctx context.Context) ([]*domain.Conversation, error)

	// Get retrieves a conversation by ID or unique ID prefix.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Reload re-reads all logs from the source.
	// Returns true if the corpus fingerprint changed.
	Reload(ctx context.Context) (bool, error)

	// ApplyChange folds a single file change into the store.
	ApplyChange(ctx context.Context, change domain.LogChange) error
}

// ExportService renders conversations to files or writers.
type ExportService interface {
	// Export writes each conversation to dir in the given format.
	Export(ctx context.Context, ids []string, format domain.ExportFormat, dir string) ([]domain.ExportResult, error)

	// Render writes one conversation to w.
	Render(ctx context.Context, id string, format domain.ExportFormat, w io.Writer) error
}
