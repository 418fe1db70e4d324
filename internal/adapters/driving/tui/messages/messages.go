// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// LiveResults carries one delivery from the live search session.
type LiveResults struct {
	Update domain.LiveUpdate
}

// LiveClosed is sent when the live search session stops delivering.
type LiveClosed struct{}

// ModeChanged is sent after the search mode was switched.
type ModeChanged struct {
	Mode domain.SearchMode
}

// ConversationRequested asks the app to open the conversation behind a result.
type ConversationRequested struct {
	Result domain.SearchResult
}

// ConversationLoaded carries a conversation for the conversation view.
// Ordinal is the turn to scroll to.
type ConversationLoaded struct {
	Conversation *domain.Conversation
	Ordinal      int
	Err          error
}

// ActionCompleted reports the outcome of a copy or open action.
type ActionCompleted struct {
	Message string
	Err     error
}

// CorpusChanged is sent when a watched log file changed on disk.
type CorpusChanged struct {
	Change domain.LogChange
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the live search input and results view.
	ViewSearch ViewType = iota
	// ViewConversation shows a whole conversation.
	ViewConversation
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
