package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

const (
	defaultSearchLimit = 10
	defaultListLimit   = 20
)

// SearchInput is the input schema for the search_conversations tool.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"the text to search for"`
	Mode           string `json:"mode,omitempty" jsonschema:"smart (default), exact, regex or semantic"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Speaker        string `json:"speaker,omitempty" jsonschema:"only match turns by user or assistant"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"search within one conversation"`
	From           string `json:"from,omitempty" jsonschema:"only conversations active on or after this date (YYYY-MM-DD)"`
	To             string `json:"to,omitempty" jsonschema:"only conversations started on or before this date (YYYY-MM-DD)"`
}

// SearchOutput is the output schema for the search_conversations tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single matched turn.
type SearchResultOutput struct {
	ConversationID string  `json:"conversation_id"`
	Project        string  `json:"project"`
	Ordinal        int     `json:"ordinal"`
	Speaker        string  `json:"speaker"`
	Score          float64 `json:"score"`
	Snippet        string  `json:"snippet"`
	Timestamp      string  `json:"timestamp,omitempty"`
}

// ListInput is the input schema for the list_conversations tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of conversations (default 20)"`
}

// ListOutput is the output schema for the list_conversations tool.
type ListOutput struct {
	Conversations []ConversationOutput `json:"conversations"`
	Count         int                  `json:"count"`
}

// ConversationOutput summarises one conversation.
type ConversationOutput struct {
	ID         string `json:"id"`
	Project    string `json:"project"`
	ModifiedAt string `json:"modified_at"`
	Messages   int    `json:"messages"`
	Preview    string `json:"preview"`
}

// GetInput is the input schema for the get_conversation tool.
type GetInput struct {
	ID     string `json:"id" jsonschema:"conversation id or unique prefix"`
	Format string `json:"format,omitempty" jsonschema:"markdown (default) or json"`
}

// GetOutput is the output schema for the get_conversation tool.
type GetOutput struct {
	ID      string `json:"id"`
	Project string `json:"project"`
	Content string `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_conversations",
		Description: "Search past Claude conversations and return the best matching turns",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List recent Claude conversations, newest first",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Read a whole Claude conversation by id",
	}, s.handleGet)
}

// handleSearch handles the search_conversations tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	q, err := s.buildQuery(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, toolError("search_conversations", err)
	}

	results, err := s.ports.Search.Search(ctx, q)
	if err != nil {
		return nil, SearchOutput{}, toolError("search_conversations", err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		r := results[i]
		output.Results[i] = SearchResultOutput{
			ConversationID: r.ConversationID,
			Project:        r.Project,
			Ordinal:        r.Ordinal,
			Speaker:        r.Role.String(),
			Score:          r.Score,
			Snippet:        r.Snippet,
		}
		if !r.Timestamp.IsZero() {
			output.Results[i].Timestamp = r.Timestamp.Format(time.RFC3339)
		}
	}

	return nil, output, nil
}

func (s *Server) buildQuery(ctx context.Context, input SearchInput) (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Text:  input.Query,
		Mode:  domain.SearchModeSmart,
		Limit: input.Limit,
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if input.Mode != "" {
		mode, ok := domain.ParseSearchMode(input.Mode)
		if !ok {
			return q, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, input.Mode)
		}
		q.Mode = mode
	}
	if err := s.ports.Search.ModeAvailable(q.Mode); err != nil {
		return q, err
	}

	switch strings.ToLower(input.Speaker) {
	case "":
	case "user":
		q.Scope.Roles = []domain.Role{domain.RoleUser}
	case "assistant", "claude":
		q.Scope.Roles = []domain.Role{domain.RoleAssistant}
	default:
		return q, fmt.Errorf("%w: unknown speaker %q", domain.ErrInvalidInput, input.Speaker)
	}

	var err error
	if q.Scope.From, err = parseDay(input.From, false); err != nil {
		return q, err
	}
	if q.Scope.To, err = parseDay(input.To, true); err != nil {
		return q, err
	}

	if input.ConversationID != "" {
		conv, err := s.ports.Conversations.Get(ctx, input.ConversationID)
		if err != nil {
			return q, err
		}
		q.Scope.ConversationID = conv.ID
	}
	return q, nil
}

func parseDay(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// handleList handles the list_conversations tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	convs, err := s.ports.Conversations.List(ctx)
	if err != nil {
		return nil, ListOutput{}, toolError("list_conversations", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(convs) > limit {
		convs = convs[:limit]
	}

	output := ListOutput{
		Conversations: make([]ConversationOutput, len(convs)),
		Count:         len(convs),
	}
	for i, c := range convs {
		output.Conversations[i] = ConversationOutput{
			ID:         c.ID,
			Project:    c.Project,
			ModifiedAt: c.ModifiedAt.Format(time.RFC3339),
			Messages:   len(c.Turns),
			Preview:    c.Preview(),
		}
	}
	return nil, output, nil
}

// handleGet handles the get_conversation tool invocation.
func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetInput,
) (*mcp.CallToolResult, GetOutput, error) {
	format := domain.ExportFormatMarkdown
	if input.Format != "" {
		f, err := domain.ParseExportFormat(input.Format)
		if err != nil {
			return nil, GetOutput{}, toolError("get_conversation", err)
		}
		format = f
	}

	conv, err := s.ports.Conversations.Get(ctx, input.ID)
	if err != nil {
		return nil, GetOutput{}, toolError("get_conversation", err)
	}
	content, err := s.render(ctx, conv, format)
	if err != nil {
		return nil, GetOutput{}, toolError("get_conversation", err)
	}

	return nil, GetOutput{ID: conv.ID, Project: conv.Project, Content: content}, nil
}

// render produces the conversation body, using the export service when one
// is wired and a plain transcript otherwise.
func (s *Server) render(ctx context.Context, conv *domain.Conversation, format domain.ExportFormat) (string, error) {
	if s.ports.Export != nil {
		var buf bytes.Buffer
		if err := s.ports.Export.Render(ctx, conv.ID, format, &buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return transcript(conv), nil
}

func transcript(conv *domain.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n", conv.Project, conv.ID)
	for _, t := range conv.Turns {
		fmt.Fprintf(&b, "\n%s:\n%s\n", t.Role.Label(), t.Text)
	}
	return b.String()
}
