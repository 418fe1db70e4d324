package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ConversationSource discovers and parses conversation logs.
// Implementations read line-delimited JSON session files from disk.
type ConversationSource interface {
	// Load parses every discoverable conversation.
	// Files that cannot be read are skipped and logged, not fatal.
	Load(ctx context.Context) ([]*domain.Conversation, error)

	// LoadFile parses a single session file.
	LoadFile(ctx context.Context, path string) (*domain.Conversation, error)

	// Root returns the directory being scanned.
	Root() string
}

// ConversationStore holds the current snapshot of conversations.
// Readers never observe a partially replaced snapshot.
type ConversationStore interface {
	// List returns all conversations, most recently modified first.
	List(ctx context.Context) ([]*domain.Conversation, error)

	// Get retrieves a conversation by ID.
	// Returns domain.ErrNotFound if no conversation has that ID.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Replace swaps in a new snapshot.
	Replace(ctx context.Context, convs []*domain.Conversation) error

	// Upsert adds or replaces a single conversation keyed by its path.
	Upsert(ctx context.Context, conv *domain.Conversation) error

	// RemovePath drops the conversation loaded from path, if any.
	RemovePath(ctx context.Context, path string) error

	// Fingerprint summarises the current snapshot.
	Fingerprint() domain.Fingerprint
}

// LogWatcher reports changes to conversation log files.
type LogWatcher interface {
	// Watch starts watching and returns a channel of changes.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.LogChange, error)
}
