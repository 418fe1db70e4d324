// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
// The search view keeps the query input focused, so its bindings avoid
// printable characters.
type KeyMap struct {
	// Quit exits the application from the search view.
	Quit key.Binding

	// Back leaves the conversation view.
	Back key.Binding

	// Up moves the result selection up.
	Up key.Binding

	// Down moves the result selection down.
	Down key.Binding

	// Open shows the conversation behind the selected result.
	Open key.Binding

	// CycleMode switches to the next available search mode.
	CycleMode key.Binding

	// Copy copies the selected turn to the clipboard.
	Copy key.Binding

	// OpenFile opens the conversation log in the default application.
	OpenFile key.Binding

	// ScrollUp scrolls the conversation view.
	ScrollUp key.Binding

	// ScrollDown scrolls the conversation view.
	ScrollDown key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "mode"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy"),
		),
		OpenFile: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "open file"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll"),
		),
	}
}

// ShortHelp returns the bindings shown while typing a query.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CycleMode, k.Quit}
}

// ResultsHelp returns the bindings shown when results are listed.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Open, k.CycleMode, k.Copy, k.Quit}
}

// ConversationHelp returns the bindings shown in the conversation view.
func (k *KeyMap) ConversationHelp() []key.Binding {
	return []key.Binding{k.ScrollDown, k.Copy, k.OpenFile, k.Back}
}

// FullHelp returns the full list of keybindings.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.CycleMode, k.Copy, k.OpenFile},
		{k.Back, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
