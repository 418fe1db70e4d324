package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// fakeSource serves conversations from a map keyed by path.
type fakeSource struct {
	files   map[string]*domain.Conversation
	loadErr error
}

func newFakeSource(convs ...*domain.Conversation) *fakeSource {
	s := &fakeSource{files: make(map[string]*domain.Conversation)}
	for _, c := range convs {
		s.files[c.Path] = c
	}
	return s
}

func (s *fakeSource) Load(_ context.Context) ([]*domain.Conversation, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]*domain.Conversation, 0, len(s.files))
	for _, c := range s.files {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeSource) LoadFile(_ context.Context, path string) (*domain.Conversation, error) {
	c, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return c, nil
}

func (s *fakeSource) Root() string { return "/logs" }

func newLoadedService(t *testing.T, convs ...*domain.Conversation) (*ConversationService, *fakeSource) {
	t.Helper()
	source := newFakeSource(convs...)
	svc := NewConversationService(source, memory.NewConversationStore())
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)
	return svc, source
}

func TestConversationService_Reload(t *testing.T) {
	source := newFakeSource(conversation("aaa", 1, "hi"), conversation("bbb", 2, "yo"))
	svc := NewConversationService(source, memory.NewConversationStore())

	changed, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	convs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "bbb", convs[0].ID, "most recently modified first")

	changed, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "same corpus keeps the fingerprint")
}

func TestConversationService_Reload_NoConversations(t *testing.T) {
	source := newFakeSource()
	source.loadErr = fmt.Errorf("scan: %w", domain.ErrNoConversations)
	svc := NewConversationService(source, memory.NewConversationStore())

	changed, err := svc.Reload(context.Background())
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestConversationService_Reload_Error(t *testing.T) {
	source := newFakeSource()
	source.loadErr = errors.New("disk on fire")
	svc := NewConversationService(source, memory.NewConversationStore())

	_, err := svc.Reload(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestConversationService_Get(t *testing.T) {
	svc, _ := newLoadedService(t,
		conversation("4f1c2a9e-1111", 1, "a"),
		conversation("4f1c2a9e-2222", 2, "b"),
		conversation("77aa0000-3333", 3, "c"),
	)
	ctx := context.Background()

	t.Run("exact id", func(t *testing.T) {
		c, err := svc.Get(ctx, "4f1c2a9e-2222")
		require.NoError(t, err)
		assert.Equal(t, "4f1c2a9e-2222", c.ID)
	})

	t.Run("unique prefix", func(t *testing.T) {
		c, err := svc.Get(ctx, "77aa")
		require.NoError(t, err)
		assert.Equal(t, "77aa0000-3333", c.ID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := svc.Get(ctx, "4f1c")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Get(ctx, "zzz")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := svc.Get(ctx, " ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestConversationService_ApplyChange(t *testing.T) {
	a := conversation("aaa", 1, "first")
	svc, source := newLoadedService(t, a)
	ctx := context.Background()

	b := conversation("bbb", 5, "second")
	source.files[b.Path] = b
	require.NoError(t, svc.ApplyChange(ctx, domain.LogChange{Path: b.Path, Type: domain.ChangeCreated}))

	convs, _ := svc.List(ctx)
	require.Len(t, convs, 2)
	assert.Equal(t, "bbb", convs[0].ID)

	updated := conversation("aaa", 9, "first", "more")
	source.files[a.Path] = updated
	require.NoError(t, svc.ApplyChange(ctx, domain.LogChange{Path: a.Path, Type: domain.ChangeUpdated}))
	got, err := svc.Get(ctx, "aaa")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 2)

	require.NoError(t, svc.ApplyChange(ctx, domain.LogChange{Path: b.Path, Type: domain.ChangeDeleted}))
	convs, _ = svc.List(ctx)
	require.Len(t, convs, 1)

	t.Run("vanished file is removed", func(t *testing.T) {
		delete(source.files, a.Path)
		require.NoError(t, svc.ApplyChange(ctx, domain.LogChange{Path: a.Path, Type: domain.ChangeUpdated}))
		convs, _ := svc.List(ctx)
		assert.Empty(t, convs)
	})

	t.Run("unknown change type", func(t *testing.T) {
		err := svc.ApplyChange(ctx, domain.LogChange{Path: "x", Type: "renamed"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
