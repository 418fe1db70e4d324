package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
// Every write publishes a fresh sorted snapshot; slices handed to readers are
// never modified afterwards.
type ConversationStore struct {
	mu       sync.RWMutex
	byPath   map[string]*domain.Conversation
	snapshot []*domain.Conversation
	byID     map[string]*domain.Conversation
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		byPath: make(map[string]*domain.Conversation),
		byID:   make(map[string]*domain.Conversation),
	}
}

// List returns all conversations, most recently modified first.
func (s *ConversationStore) List(_ context.Context) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

// Get retrieves a conversation by ID.
func (s *ConversationStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// Replace swaps in a new snapshot.
func (s *ConversationStore) Replace(_ context.Context, convs []*domain.Conversation) error {
	byPath := make(map[string]*domain.Conversation, len(convs))
	for _, c := range convs {
		if c == nil {
			continue
		}
		byPath[pathKey(c)] = c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPath = byPath
	s.publish()
	return nil
}

// Upsert adds or replaces a single conversation keyed by its path.
func (s *ConversationStore) Upsert(_ context.Context, conv *domain.Conversation) error {
	if conv == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byPath := make(map[string]*domain.Conversation, len(s.byPath)+1)
	for k, v := range s.byPath {
		byPath[k] = v
	}
	byPath[pathKey(conv)] = conv
	s.byPath = byPath
	s.publish()
	return nil
}

// RemovePath drops the conversation loaded from path, if any.
func (s *ConversationStore) RemovePath(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPath[path]; !ok {
		return nil
	}
	byPath := make(map[string]*domain.Conversation, len(s.byPath))
	for k, v := range s.byPath {
		if k != path {
			byPath[k] = v
		}
	}
	s.byPath = byPath
	s.publish()
	return nil
}

// Fingerprint summarises the current snapshot.
func (s *ConversationStore) Fingerprint() domain.Fingerprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FingerprintOf(s.snapshot)
}

// publish rebuilds the sorted snapshot and ID map. When two files carry the
// same session ID the more recently modified one wins. Callers hold mu.
func (s *ConversationStore) publish() {
	byID := make(map[string]*domain.Conversation, len(s.byPath))
	for _, c := range s.byPath {
		if prev, ok := byID[c.ID]; ok && !newer(c, prev) {
			continue
		}
		byID[c.ID] = c
	}
	snapshot := make([]*domain.Conversation, 0, len(byID))
	for _, c := range byID {
		snapshot = append(snapshot, c)
	}
	sort.Slice(snapshot, func(i, j int) bool { return newer(snapshot[i], snapshot[j]) })
	s.byID = byID
	s.snapshot = snapshot
}

func newer(a, b *domain.Conversation) bool {
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Path < b.Path
}

func pathKey(c *domain.Conversation) string {
	if c.Path != "" {
		return c.Path
	}
	return "id:" + c.ID
}
