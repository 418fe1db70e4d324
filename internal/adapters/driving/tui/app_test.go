package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func testConversation() *domain.Conversation {
	return &domain.Conversation{
		ID:      "conv-1",
		Project: "vault",
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Text: "how do I rotate keys", Ordinal: 0},
			{Role: domain.RoleAssistant, Text: "use the rotate command", Ordinal: 1},
		},
	}
}

func newTestApp(t *testing.T) (*App, *fakeLive) {
	t.Helper()
	live := newFakeLive()
	convs := &fakeConversations{convs: map[string]*domain.Conversation{"conv-1": testConversation()}}
	app, err := NewApp(NewPorts(live, &fakeSearch{modes: domain.AllSearchModes()}, convs, nil))
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app, live
}

func result() domain.SearchResult {
	return domain.SearchResult{ConversationID: "conv-1", Ordinal: 1, Role: domain.RoleAssistant, Snippet: "use the rotate command"}
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.NotNil(t, app.SearchView())
	assert.NotNil(t, app.ConversationView())
	assert.True(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.Nil(t, app)
	assert.ErrorIs(t, err, ErrMissingLiveSearch)
}

func TestApp_ViewBeforeReady(t *testing.T) {
	app, err := NewApp(NewPorts(newFakeLive(), nil, &fakeConversations{}, nil))
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(NewPorts(newFakeLive(), nil, &fakeConversations{}, nil))
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 90, Height: 20})

	assert.True(t, app.Ready())
	assert.Equal(t, 90, app.SearchView().Width())
}

func TestApp_TypingReachesLiveSession(t *testing.T) {
	app, live := newTestApp(t)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})

	assert.Equal(t, []string{"k"}, live.inputs)
}

func TestApp_LiveResultsRearmsWait(t *testing.T) {
	app, live := newTestApp(t)

	_, cmd := app.Update(messages.LiveResults{Update: domain.LiveUpdate{
		Seq: 1, Query: "rotate", Results: []domain.SearchResult{result()},
	}})

	assert.Len(t, app.SearchView().Results(), 1)
	require.NotNil(t, cmd)

	live.updates <- domain.LiveUpdate{Seq: 2, Query: "rotate"}
	msg, ok := cmd().(messages.LiveResults)
	require.True(t, ok)
	assert.Equal(t, uint64(2), msg.Update.Seq)
}

func TestApp_WaitReportsClosedSession(t *testing.T) {
	live := newFakeLive()
	live.Close()

	msg := waitForUpdate(live.Updates())()

	assert.IsType(t, messages.LiveClosed{}, msg)

	app, _ := newTestApp(t)
	app.Update(msg)
	assert.True(t, app.Closed())
}

func TestApp_OpenConversation(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(messages.ConversationRequested{Result: result()})
	require.NotNil(t, cmd)
	loaded, ok := cmd().(messages.ConversationLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, 1, loaded.Ordinal)

	app.Update(loaded)

	assert.Equal(t, messages.ViewConversation, app.CurrentView())
	assert.Equal(t, 1, app.ConversationView().Focus())
	assert.Contains(t, app.View(), "vault")
}

func TestApp_OpenMissingConversation(t *testing.T) {
	app, _ := newTestApp(t)
	r := result()
	r.ConversationID = "gone"

	_, cmd := app.Update(messages.ConversationRequested{Result: r})
	app.Update(cmd())

	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.Equal(t, "Conversation no longer exists", app.SearchView().ErrorMessage())
}

func TestApp_BackFromConversation(t *testing.T) {
	app, live := newTestApp(t)
	app.Update(messages.ConversationLoaded{Conversation: testConversation(), Ordinal: 0})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.Empty(t, live.inputs, "keys in the conversation view never reach the query")
}

func TestApp_EscQuitsFromSearch(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())
	require.NotNil(t, cmd)

	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(messages.ConversationLoaded{Conversation: testConversation(), Ordinal: 0})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_CorpusChangedRerunsQuery(t *testing.T) {
	app, live := newTestApp(t)
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})

	app.Update(messages.CorpusChanged{Change: domain.LogChange{Path: "/logs/a.jsonl", Type: domain.ChangeUpdated}})

	assert.Equal(t, []string{"k", "k"}, live.inputs)
}

func TestApp_ActionCompletedRoutesToActiveView(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(messages.ConversationLoaded{Conversation: testConversation(), Ordinal: 0})

	app.Update(messages.ActionCompleted{Message: "Copied to clipboard"})

	assert.Equal(t, "Copied to clipboard", app.ConversationView().Message())
	assert.Empty(t, app.SearchView().StatusMessage())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(messages.ErrorOccurred{Err: domain.ErrModeUnavailable})

	assert.Equal(t, "Semantic search is not configured", app.SearchView().ErrorMessage())
}

func TestApp_ModeCycleUsesAvailableModes(t *testing.T) {
	live := newFakeLive()
	search := &fakeSearch{modes: []domain.SearchMode{domain.SearchModeSmart, domain.SearchModeRegex}}
	app, err := NewApp(NewPorts(live, search, &fakeConversations{}, nil))
	require.NoError(t, err)

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.SearchModeRegex, live.mode)

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.SearchModeSmart, live.mode)
}
