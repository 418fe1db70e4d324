package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

const (
	// uriScheme is the URI scheme for conversation resources.
	uriScheme = "conversation://"

	// recentURI lists the most recent conversations.
	recentURI = uriScheme + "recent"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         recentURI,
		Name:        "recent-conversations",
		Description: "The most recently modified conversations",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{id}",
		Name:        "conversation",
		Description: "A whole conversation rendered as Markdown",
		MIMEType:    "text/markdown",
	}, s.handleConversationResource)
}

// handleRecentResource returns summaries of the latest conversations.
func (s *Server) handleRecentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, out, err := s.handleList(ctx, nil, ListInput{})
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(out.Conversations, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling conversations: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleConversationResource returns one conversation as Markdown.
func (s *Server) handleConversationResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractConversationID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	conv, err := s.ports.Conversations.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	content, err := s.render(ctx, conv, domain.ExportFormatMarkdown)
	if err != nil {
		return nil, fmt.Errorf("rendering conversation: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		}},
	}, nil
}

// extractConversationID extracts the id from a URI like conversation://{id}.
func extractConversationID(uri string) string {
	if !strings.HasPrefix(uri, uriScheme) || uri == recentURI {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(uri, uriScheme), "/")
}
