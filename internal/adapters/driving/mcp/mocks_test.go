package mcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results     []domain.SearchResult
	err         error
	unavailable error
	lastQuery   domain.SearchQuery
}

func (m *mockSearchService) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	m.lastQuery = q
	return m.results, m.err
}

func (m *mockSearchService) ModeAvailable(_ domain.SearchMode) error {
	return m.unavailable
}

func (m *mockSearchService) AvailableModes() []domain.SearchMode {
	return domain.AllSearchModes()
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	conversations []*domain.Conversation
	err           error
}

func (m *mockConversationService) List(_ context.Context) ([]*domain.Conversation, error) {
	return m.conversations, m.err
}

func (m *mockConversationService) Get(_ context.Context, id string) (*domain.Conversation, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.conversations {
		if strings.HasPrefix(c.ID, id) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
}

func (m *mockConversationService) Reload(_ context.Context) (bool, error) {
	return false, m.err
}

func (m *mockConversationService) ApplyChange(_ context.Context, _ domain.LogChange) error {
	return m.err
}

// mockExportService is a mock implementation of driving.ExportService.
type mockExportService struct {
	body       string
	err        error
	lastFormat domain.ExportFormat
}

func (m *mockExportService) Export(
	_ context.Context, _ []string, _ domain.ExportFormat, _ string,
) ([]domain.ExportResult, error) {
	return nil, m.err
}

func (m *mockExportService) Render(_ context.Context, _ string, format domain.ExportFormat, w io.Writer) error {
	m.lastFormat = format
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, m.body)
	return err
}

func sampleConversation(id string) *domain.Conversation {
	ts := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	return &domain.Conversation{
		ID:         id,
		Project:    "demo",
		Path:       "/logs/demo/" + id + ".jsonl",
		StartedAt:  ts,
		ModifiedAt: ts.Add(time.Hour),
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Text: "how do I rotate the signing keys", Ordinal: 0, Timestamp: ts},
			{Role: domain.RoleAssistant, Text: "Generate a new key pair first.", Ordinal: 1, Timestamp: ts},
		},
	}
}
