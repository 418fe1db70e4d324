package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func searchResults() []domain.SearchResult {
	modified := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	return []domain.SearchResult{
		{
			ConversationID:         "4f1c2a9e-0000-4000-8000-000000000001",
			Project:                "billing-api",
			Ordinal:                1,
			Role:                   domain.RoleAssistant,
			Snippet:                "the backoff never resets",
			Highlights:             []domain.Span{{Start: 4, End: 11}},
			Score:                  0.874,
			Rank:                   1,
			Matches:                1,
			ConversationModifiedAt: modified,
		},
		{
			ConversationID:         "4f1c2a9e-0000-4000-8000-000000000001",
			Project:                "billing-api",
			Ordinal:                0,
			Role:                   domain.RoleUser,
			Snippet:                "why does the invoice job retry forever",
			Score:                  0.4,
			Rank:                   2,
			Matches:                1,
			ConversationModifiedAt: modified,
		},
	}
}

func TestSearchCmd_Table(t *testing.T) {
	search := &fakeSearch{results: searchResults()}

	out, err := execute(t, &Services{Search: search}, "search", "backoff", "reset")

	require.NoError(t, err)
	assert.Equal(t, "backoff reset", search.lastQuery.Text)
	assert.Equal(t, domain.SearchModeSmart, search.lastQuery.Mode)
	assert.Contains(t, out, `Found 2 results for "backoff reset" (smart):`)
	assert.Contains(t, out, "[4f1c2a9e] billing-api")
	assert.Equal(t, 1, strings.Count(out, "[4f1c2a9e]"), "results are grouped by conversation")
	assert.Contains(t, out, "1. Claude (87%)")
	assert.Contains(t, out, "2. User (40%)")
	assert.Contains(t, out, "the backoff never resets")
}

func TestSearchCmd_NoResults(t *testing.T) {
	out, err := execute(t, &Services{Search: &fakeSearch{}}, "search", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	out, err := execute(t, &Services{Search: &fakeSearch{results: searchResults()}}, "search", "backoff", "--json")
	require.NoError(t, err)

	var got []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "assistant", got[0].Speaker)
	assert.Equal(t, 1, got[0].Ordinal)
	assert.Empty(t, got[0].Timestamp)
}

func TestSearchCmd_Flags(t *testing.T) {
	search := &fakeSearch{}
	convs := &fakeConversations{convs: testConversations()}

	_, err := execute(t, &Services{Search: search, Conversations: convs},
		"search", "retry",
		"--mode", "regex",
		"--limit", "5",
		"--speaker", "claude",
		"--conversation", "9b7d",
		"--from", "2026-05-01",
		"--to", "2026-05-02",
		"--case-sensitive",
	)
	require.NoError(t, err)

	q := search.lastQuery
	assert.Equal(t, domain.SearchModeRegex, q.Mode)
	assert.Equal(t, 5, q.Limit)
	assert.True(t, q.CaseSensitive)
	assert.Equal(t, []domain.Role{domain.RoleAssistant}, q.Scope.Roles)
	assert.Equal(t, "9b7d0c11-0000-4000-8000-000000000002", q.Scope.ConversationID)
	assert.Equal(t, 1, q.Scope.From.Day())
	assert.Equal(t, 2, q.Scope.To.Day())
	assert.Equal(t, 23, q.Scope.To.Hour())
}

func TestSearchCmd_SettingsDefaults(t *testing.T) {
	search := &fakeSearch{}
	settings := newFakeSettings()
	settings.settings.Search.Mode = domain.SearchModeExact
	settings.settings.Search.Limit = 7

	_, err := execute(t, &Services{Search: search, Settings: settings}, "search", "tmux")

	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeExact, search.lastQuery.Mode)
	assert.Equal(t, 7, search.lastQuery.Limit)
}

func TestSearchCmd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"search", "x", "--mode", "fuzzy"}},
		{"unknown speaker", []string{"search", "x", "--speaker", "robot"}},
		{"bad date", []string{"search", "x", "--from", "02/05/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, &Services{Search: &fakeSearch{}}, tt.args...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSearchCmd_SemanticUnavailable(t *testing.T) {
	search := &fakeSearch{unavailable: domain.ErrModeUnavailable}

	_, err := execute(t, &Services{Search: search}, "search", "x", "--mode", "semantic")

	assert.ErrorIs(t, err, domain.ErrModeUnavailable)
}

func TestSearchCmd_InvalidPattern(t *testing.T) {
	search := &fakeSearch{err: domain.ErrInvalidPattern}

	_, err := execute(t, &Services{Search: search}, "search", "a(", "--mode", "regex")

	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
}

func TestSearchCmd_UnknownConversation(t *testing.T) {
	_, err := execute(t, &Services{Search: &fakeSearch{}, Conversations: &fakeConversations{}},
		"search", "x", "--conversation", "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHighlight(t *testing.T) {
	r := searchResults()[0]
	style := lipgloss.NewStyle()

	assert.Equal(t, "the backoff never resets", highlight(r, style))
}

func TestRelevance(t *testing.T) {
	assert.Equal(t, 0, relevance(-1))
	assert.Equal(t, 50, relevance(0.5))
	assert.Equal(t, 87, relevance(0.874))
	assert.Equal(t, 100, relevance(3))
}
