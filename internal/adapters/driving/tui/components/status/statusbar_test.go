package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, domain.SearchModeSmart, bar.Mode())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.Nil(t, bar.Init())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_Update(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestFromLive(t *testing.T) {
	tests := []struct {
		live     domain.LiveState
		expected State
	}{
		{domain.LiveIdle, StateReady},
		{domain.LivePending, StateTyping},
		{domain.LiveSearching, StateSearching},
		{domain.LiveCancelled, StateSearching},
		{domain.LivePresenting, StateResults},
	}

	for _, tt := range tests {
		t.Run(tt.live.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, FromLive(tt.live))
		})
	}
}

func TestStatusBar_Setters(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateSearching)
	bar.SetMode(domain.SearchModeRegex)
	bar.SetMessage("Copied")
	bar.SetResultCount(7)
	bar.SetWidth(120)

	assert.Equal(t, StateSearching, bar.State())
	assert.Equal(t, domain.SearchModeRegex, bar.Mode())
	assert.Equal(t, "Copied", bar.Message())
	assert.Equal(t, 7, bar.ResultCount())
	assert.Equal(t, 120, bar.Width())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMode(domain.SearchModeExact)
	bar.SetMessage("boom")
	bar.SetResultCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.Equal(t, domain.SearchModeExact, bar.Mode())
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Bar)
		contains []string
	}{
		{
			name:     "ready",
			setup:    func(*Bar) {},
			contains: []string{"smart", "Ready", "tab: mode"},
		},
		{
			name:     "searching",
			setup:    func(b *Bar) { b.SetState(StateSearching) },
			contains: []string{"Searching..."},
		},
		{
			name: "error message",
			setup: func(b *Bar) {
				b.SetState(StateError)
				b.SetMessage("Invalid regex")
			},
			contains: []string{"Invalid regex"},
		},
		{
			name: "results",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetMode(domain.SearchModeExact)
				b.SetResultCount(5)
			},
			contains: []string{"exact", "5 results", "enter: open", "ctrl+y: copy"},
		},
		{
			name:     "conversation",
			setup:    func(b *Bar) { b.SetState(StateConversation) },
			contains: []string{"esc: back", "ctrl+o: open file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			tt.setup(bar)

			view := bar.View()
			for _, want := range tt.contains {
				assert.Contains(t, view, want)
			}
		})
	}
}
