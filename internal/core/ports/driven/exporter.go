package driven

import (
	"io"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Exporter renders a conversation in one output format.
type Exporter interface {
	// Format returns the format this exporter produces.
	Format() domain.ExportFormat

	// Render writes the conversation to w.
	Render(w io.Writer, conv *domain.Conversation) error
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}
