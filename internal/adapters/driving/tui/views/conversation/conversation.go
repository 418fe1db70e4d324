// Package conversation provides the full conversation view for the TUI.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// reserved is the number of rows taken by the title, separator and footer.
const reserved = 5

// View shows one conversation, scrolled to the turn a result pointed at.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	actions driving.ResultActionService
	ctx     context.Context

	viewport viewport.Model
	conv     *domain.Conversation
	focus    int
	offsets  []int
	message  string
	width    int
	height   int
	ready    bool
}

// NewView creates a new conversation view.
func NewView(s *styles.Styles, km *keymap.KeyMap, actions driving.ResultActionService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:   s,
		keymap:   km,
		actions:  actions,
		ctx:      context.Background(),
		viewport: viewport.New(80, 24-reserved),
		focus:    -1,
		width:    80,
		height:   24,
	}
}

// WithContext sets the context used for result actions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Show loads a conversation and scrolls to the given turn ordinal.
func (v *View) Show(conv *domain.Conversation, ordinal int) {
	v.conv = conv
	v.focus = ordinal
	v.message = ""
	v.render()
	v.scrollToFocus()
}

// Update handles messages for the conversation view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Back):
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewSearch}
			}
		case key.Matches(msg, v.keymap.Copy):
			return v, v.act(false)
		case key.Matches(msg, v.keymap.OpenFile):
			return v, v.act(true)
		}

	case messages.ActionCompleted:
		v.message = msg.Message
		if msg.Err != nil {
			v.message = msg.Err.Error()
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// act copies or opens the focused turn.
func (v *View) act(open bool) tea.Cmd {
	if v.actions == nil || v.conv == nil {
		return nil
	}
	turn, ok := v.conv.Turn(v.focus)
	if !ok {
		return nil
	}
	result := domain.SearchResult{
		ConversationID: v.conv.ID,
		Ordinal:        turn.Ordinal,
		Role:           turn.Role,
		Snippet:        turn.Text,
		Project:        v.conv.Project,
		Timestamp:      turn.Timestamp,
	}
	ctx, actions := v.ctx, v.actions
	return func() tea.Msg {
		if open {
			if err := actions.OpenConversation(ctx, &result); err != nil {
				return messages.ActionCompleted{Err: err}
			}
			return messages.ActionCompleted{Message: "Opened conversation log"}
		}
		if err := actions.CopyToClipboard(ctx, &result); err != nil {
			return messages.ActionCompleted{Err: err}
		}
		return messages.ActionCompleted{Message: "Copied to clipboard"}
	}
}

// render lays out every turn and records the line each one starts on.
func (v *View) render() {
	if v.conv == nil {
		v.offsets = nil
		v.viewport.SetContent("")
		return
	}

	body := lipgloss.NewStyle().Width(max(v.width-4, 20))
	var b strings.Builder
	v.offsets = make([]int, len(v.conv.Turns))
	line := 0
	for i, t := range v.conv.Turns {
		v.offsets[i] = line

		label := v.styles.Role(t.Role).Render(t.Role.Label())
		if !t.Timestamp.IsZero() {
			label += " " + v.styles.Muted.Render(t.Timestamp.Local().Format("2006-01-02 15:04"))
		}
		text := body.Render(t.Text)
		if t.Ordinal == v.focus {
			text = v.styles.Focus.Render(text)
		}

		block := label + "\n" + text + "\n\n"
		b.WriteString(block)
		line += strings.Count(block, "\n")
	}
	v.viewport.SetContent(b.String())
}

func (v *View) scrollToFocus() {
	for i, t := range v.conv.Turns {
		if t.Ordinal == v.focus {
			v.viewport.SetYOffset(v.offsets[i])
			return
		}
	}
	v.viewport.GotoTop()
}

// View renders the conversation view.
func (v *View) View() string {
	if v.conv == nil {
		return v.styles.Muted.Render("No conversation loaded")
	}

	title := v.styles.Title.Render(v.conv.Project) + "  " +
		v.styles.Muted.Render(fmt.Sprintf("%s  %d messages", v.conv.ShortID(), len(v.conv.Turns)))

	footer := fmt.Sprintf("  [%3.f%%]", v.viewport.ScrollPercent()*100)
	if v.message != "" {
		footer += "  " + v.message
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		strings.Repeat("─", min(v.width-4, 60)),
		v.viewport.View(),
		v.styles.Muted.Render(footer),
	)
}

// SetDimensions sets the view dimensions and re-wraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = width
	v.viewport.Height = max(height-reserved, 1)
	if v.conv != nil {
		offset := v.viewport.YOffset
		v.render()
		v.viewport.SetYOffset(offset)
	}
}

// Conversation returns the conversation being shown.
func (v *View) Conversation() *domain.Conversation {
	return v.conv
}

// Focus returns the ordinal of the highlighted turn.
func (v *View) Focus() int {
	return v.focus
}

// YOffset returns the current scroll position in lines.
func (v *View) YOffset() int {
	return v.viewport.YOffset
}

// Message returns the last action message.
func (v *View) Message() string {
	return v.message
}
