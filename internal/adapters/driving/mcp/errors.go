// Package mcp provides an MCP (Model Context Protocol) server adapter for recall.
// It lets AI assistants search and read the local Claude conversation history.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingConversationService is returned when the conversation service is not provided.
var ErrMissingConversationService = errors.New("mcp: conversation service is required")

// toolError turns a service error into a message an assistant can act on.
// The original error stays in the chain.
func toolError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: no such conversation; call list_conversations for valid ids: %w", op, err)
	case errors.Is(err, domain.ErrInvalidPattern):
		return fmt.Errorf("%s: the regex does not compile: %w", op, err)
	case errors.Is(err, domain.ErrModeUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Errorf("%s: semantic search is not configured, use mode smart: %w", op, err)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return fmt.Errorf("%s: invalid arguments: %w", op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
