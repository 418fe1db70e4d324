package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// fakeLive records what the view sends to the live session.
type fakeLive struct {
	inputs  []string
	mode    domain.SearchMode
	state   domain.LiveState
	updates chan domain.LiveUpdate
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		mode:    domain.SearchModeSmart,
		updates: make(chan domain.LiveUpdate, 1),
	}
}

func (f *fakeLive) Input(text string) {
	f.inputs = append(f.inputs, text)
	if text == "" {
		f.state = domain.LiveIdle
		return
	}
	f.state = domain.LivePending
}

func (f *fakeLive) SetMode(mode domain.SearchMode)    { f.mode = mode }
func (f *fakeLive) Mode() domain.SearchMode           { return f.mode }
func (f *fakeLive) State() domain.LiveState           { return f.state }
func (f *fakeLive) Updates() <-chan domain.LiveUpdate { return f.updates }
func (f *fakeLive) Close()                            {}

// fakeActions implements driving.ResultActionService.
type fakeActions struct {
	copied []domain.SearchResult
	opened []domain.SearchResult
	err    error
}

func (f *fakeActions) CopyToClipboard(_ context.Context, r *domain.SearchResult) error {
	f.copied = append(f.copied, *r)
	return f.err
}

func (f *fakeActions) OpenConversation(_ context.Context, r *domain.SearchResult) error {
	f.opened = append(f.opened, *r)
	return f.err
}

func testResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ConversationID: "conv-1", Ordinal: 0, Role: domain.RoleUser, Snippet: "rotate the keys", Score: 0.9, Project: "vault"},
		{ConversationID: "conv-2", Ordinal: 3, Role: domain.RoleAssistant, Snippet: "key rotation done", Score: 0.5, Project: "infra"},
	}
}

func newTestView(t *testing.T) (*View, *fakeLive, *fakeActions) {
	t.Helper()
	live := newFakeLive()
	actions := &fakeActions{}
	v := NewView(nil, nil, live, actions, nil)
	v.SetDimensions(120, 40)
	return v, live, actions
}

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil, nil, nil)

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
	assert.Equal(t, domain.AllSearchModes(), v.modes)
	assert.Equal(t, domain.SearchModeSmart, v.Mode())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, newFakeLive(), nil, nil)

	v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.True(t, v.Ready())
	assert.Equal(t, 100, v.Width())
	assert.Equal(t, 30, v.Height())
}

func TestView_TypingForwardsEveryEdit(t *testing.T) {
	v, live, _ := newTestView(t)

	typeText(v, "key")

	assert.Equal(t, []string{"k", "ke", "key"}, live.inputs)
	assert.Equal(t, "key", v.Query())
	assert.Equal(t, status.StateTyping, v.Status())
}

func TestView_BackspaceToEmptyClears(t *testing.T) {
	v, live, _ := newTestView(t)
	typeText(v, "k")
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "k", Results: testResults()}})

	v.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Equal(t, []string{"k", ""}, live.inputs)
	assert.Empty(t, v.Results())
	assert.Equal(t, status.StateReady, v.Status())
}

func TestView_ControlRunesIgnored(t *testing.T) {
	v, live, _ := newTestView(t)

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'\x07'}})

	assert.Empty(t, live.inputs)
	assert.Empty(t, v.Query())
}

func TestView_LiveResults(t *testing.T) {
	v, _, _ := newTestView(t)

	v.Update(messages.LiveResults{Update: domain.LiveUpdate{
		Seq:     2,
		Query:   "key",
		Mode:    domain.SearchModeExact,
		Results: testResults(),
	}})

	assert.Len(t, v.Results(), 2)
	assert.Equal(t, uint64(2), v.LastSeq())
	assert.Equal(t, status.StateResults, v.Status())
	assert.Equal(t, domain.SearchModeExact, v.Mode())
	assert.Contains(t, v.View(), "Results (2)")
}

func TestView_DropsStaleDeliveries(t *testing.T) {
	v, _, _ := newTestView(t)
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 5, Query: "key", Results: testResults()[:1]}})

	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 4, Query: "ke", Results: testResults()}})

	assert.Len(t, v.Results(), 1)
	assert.Equal(t, uint64(5), v.LastSeq())
}

func TestView_InvalidPatternKeepsInputLive(t *testing.T) {
	v, live, _ := newTestView(t)
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "a", Results: testResults()}})

	v.Update(messages.LiveResults{Update: domain.LiveUpdate{
		Seq:   2,
		Query: "a(",
		Err:   domain.ErrInvalidPattern,
	}})

	assert.Equal(t, status.StateError, v.Status())
	assert.Equal(t, "Invalid regex, keep typing", v.ErrorMessage())
	assert.Len(t, v.Results(), 2, "previous results stay visible")
	assert.Contains(t, v.View(), "Invalid regex")

	typeText(v, "x")
	assert.Equal(t, []string{"x"}, live.inputs)

	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 3, Query: "x", Results: nil}})
	assert.Empty(t, v.ErrorMessage())
}

func TestView_CycleModeSkipsUnavailable(t *testing.T) {
	live := newFakeLive()
	modes := []domain.SearchMode{domain.SearchModeSmart, domain.SearchModeExact, domain.SearchModeRegex}
	v := NewView(nil, nil, live, nil, modes)
	v.SetDimensions(120, 40)

	seen := make([]domain.SearchMode, 0, 3)
	for range 3 {
		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyTab})
		require.NotNil(t, cmd)
		msg, ok := cmd().(messages.ModeChanged)
		require.True(t, ok)
		seen = append(seen, msg.Mode)
	}

	assert.Equal(t, []domain.SearchMode{
		domain.SearchModeExact, domain.SearchModeRegex, domain.SearchModeSmart,
	}, seen)
	assert.Equal(t, domain.SearchModeSmart, live.mode)
}

func TestView_CycleModeSingleMode(t *testing.T) {
	live := newFakeLive()
	v := NewView(nil, nil, live, nil, []domain.SearchMode{domain.SearchModeSmart})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyTab})

	assert.Nil(t, cmd)
}

func TestView_EnterRequestsConversation(t *testing.T) {
	v, _, _ := newTestView(t)
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "key", Results: testResults()}})
	v.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.ConversationRequested)
	require.True(t, ok)
	assert.Equal(t, "conv-2", msg.Result.ConversationID)
	assert.Equal(t, 3, msg.Result.Ordinal)
}

func TestView_EnterWithoutResults(t *testing.T) {
	v, _, _ := newTestView(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_Navigation(t *testing.T) {
	v, _, _ := newTestView(t)
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "key", Results: testResults()}})

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.SelectedIndex())
	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_EscQuits(t *testing.T) {
	v, _, _ := newTestView(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	_, ok := cmd().(messages.Quit)
	assert.True(t, ok)
}

func TestView_CopySelected(t *testing.T) {
	v, _, actions := newTestView(t)
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "key", Results: testResults()}})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	msg := cmd()

	require.Len(t, actions.copied, 1)
	assert.Equal(t, "conv-1", actions.copied[0].ConversationID)

	v.Update(msg)
	assert.Equal(t, "Copied to clipboard", v.StatusMessage())
}

func TestView_OpenSelectedError(t *testing.T) {
	v, _, actions := newTestView(t)
	actions.err = errors.New("no opener")
	v.Update(messages.LiveResults{Update: domain.LiveUpdate{Seq: 1, Query: "key", Results: testResults()}})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	v.Update(cmd())

	require.Len(t, actions.opened, 1)
	assert.Equal(t, "no opener", v.StatusMessage())
}

func TestView_ActionsWithoutSelection(t *testing.T) {
	v, _, _ := newTestView(t)

	_, copyCmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	_, openCmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlO})

	assert.Nil(t, copyCmd)
	assert.Nil(t, openCmd)
}

func TestView_CorpusChangedRerunsQuery(t *testing.T) {
	v, live, _ := newTestView(t)
	typeText(v, "ab")

	v.Update(messages.CorpusChanged{Change: domain.LogChange{Path: "/x.jsonl", Type: domain.ChangeUpdated}})

	assert.Equal(t, []string{"a", "ab", "ab"}, live.inputs)
}

func TestView_CorpusChangedWithEmptyQuery(t *testing.T) {
	v, live, _ := newTestView(t)

	v.Update(messages.CorpusChanged{})

	assert.Empty(t, live.inputs)
}

func TestView_NoLiveSession(t *testing.T) {
	v := NewView(nil, nil, nil, nil, nil)
	v.SetDimensions(80, 24)

	typeText(v, "a")

	assert.Equal(t, status.StateError, v.Status())
	assert.Equal(t, ErrNoLiveSearch.Error(), v.ErrorMessage())
}

func TestView_EmptyPrompt(t *testing.T) {
	v, _, _ := newTestView(t)

	assert.Contains(t, v.View(), "Start typing to search")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{domain.ErrInvalidPattern, "Invalid regex, keep typing"},
		{domain.ErrModeUnavailable, "Semantic search is not configured"},
		{domain.ErrEmbeddingUnavailable, "Semantic search is not configured"},
		{domain.ErrNotFound, "Conversation no longer exists"},
		{domain.ErrRateLimited, "Embedding provider is rate limited, try again"},
		{errors.New("disk full"), "disk full"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Describe(tt.err))
	}
}
