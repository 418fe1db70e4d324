package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// ConversationService loads conversation logs into the store and serves them.
type ConversationService struct {
	source driven.ConversationSource
	store  driven.ConversationStore
}

// NewConversationService creates a new conversation service.
func NewConversationService(source driven.ConversationSource, store driven.ConversationStore) *ConversationService {
	return &ConversationService{
		source: source,
		store:  store,
	}
}

// List returns conversations, most recently modified first.
func (s *ConversationService) List(ctx context.Context) ([]*domain.Conversation, error) {
	return s.store.List(ctx)
}

// Get retrieves a conversation by ID, falling back to a unique ID prefix.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: conversation id required", domain.ErrInvalidInput)
	}

	conv, err := s.store.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var found *domain.Conversation
	for _, c := range convs {
		if !strings.HasPrefix(c.ID, id) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: id prefix %q is ambiguous", domain.ErrInvalidInput, id)
		}
		found = c
	}
	if found == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return found, nil
}

// Reload re-reads every log and swaps the snapshot in. It reports whether
// the corpus fingerprint moved. An empty projects directory is not an error.
func (s *ConversationService) Reload(ctx context.Context) (bool, error) {
	before := s.store.Fingerprint()

	convs, err := s.source.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoConversations) {
		return false, fmt.Errorf("load conversations: %w", err)
	}
	if err := s.store.Replace(ctx, convs); err != nil {
		return false, fmt.Errorf("replace conversations: %w", err)
	}

	after := s.store.Fingerprint()
	changed := !after.Equal(before)
	logger.L().Debug("conversations reloaded",
		zap.String("root", s.source.Root()),
		zap.Int("count", len(convs)),
		zap.Stringer("fingerprint", after),
		zap.Bool("changed", changed))
	return changed, nil
}

// ApplyChange folds a single log file change into the store.
func (s *ConversationService) ApplyChange(ctx context.Context, change domain.LogChange) error {
	switch change.Type {
	case domain.ChangeDeleted:
		return s.store.RemovePath(ctx, change.Path)
	case domain.ChangeCreated, domain.ChangeUpdated:
		conv, err := s.source.LoadFile(ctx, change.Path)
		if err != nil {
			// The file may have been removed between the event and the read.
			if errors.Is(err, fs.ErrNotExist) {
				return s.store.RemovePath(ctx, change.Path)
			}
			return fmt.Errorf("load %s: %w", change.Path, err)
		}
		return s.store.Upsert(ctx, conv)
	default:
		return fmt.Errorf("%w: change type %q", domain.ErrInvalidInput, change.Type)
	}
}
