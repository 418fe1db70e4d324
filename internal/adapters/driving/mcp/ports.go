package mcp

import (
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs queries over the conversation corpus.
	Search driving.SearchService

	// Conversations lists and resolves conversations.
	Conversations driving.ConversationService

	// Export renders whole conversations. Optional; plain text is used without it.
	Export driving.ExportService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Conversations == nil {
		return ErrMissingConversationService
	}
	return nil
}
