package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

type recordingClipboard struct {
	text string
	err  error
}

func (c *recordingClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func TestResultActionService_CopyToClipboard(t *testing.T) {
	convs, _ := newLoadedService(t, conversation("aaa", 1, "question", "the full answer text"))
	clip := &recordingClipboard{}
	svc := NewResultActionService(convs, clip)

	err := svc.CopyToClipboard(context.Background(), &domain.SearchResult{
		ConversationID: "aaa", Ordinal: 1, Snippet: "full answer",
	})
	require.NoError(t, err)
	assert.Equal(t, "the full answer text", clip.text)
}

func TestResultActionService_CopyToClipboard_FallsBackToSnippet(t *testing.T) {
	convs, _ := newLoadedService(t)
	clip := &recordingClipboard{}
	svc := NewResultActionService(convs, clip)

	err := svc.CopyToClipboard(context.Background(), &domain.SearchResult{ConversationID: "gone", Snippet: "snip"})
	require.NoError(t, err)
	assert.Equal(t, "snip", clip.text)
}

func TestResultActionService_CopyToClipboard_Errors(t *testing.T) {
	convs, _ := newLoadedService(t)

	err := NewResultActionService(convs, &recordingClipboard{}).CopyToClipboard(context.Background(), nil)
	assert.Error(t, err)

	err = NewResultActionService(convs, nil).CopyToClipboard(context.Background(), &domain.SearchResult{})
	assert.ErrorContains(t, err, "clipboard not available")

	clip := &recordingClipboard{err: errors.New("no xclip")}
	err = NewResultActionService(convs, clip).CopyToClipboard(context.Background(), &domain.SearchResult{})
	assert.ErrorContains(t, err, "no xclip")
}

func TestResultActionService_OpenConversation(t *testing.T) {
	convs, _ := newLoadedService(t, conversation("aaa", 1, "hi"))
	svc := NewResultActionService(convs, nil)
	var opened string
	svc.open = func(target string) error {
		opened = target
		return nil
	}

	require.NoError(t, svc.OpenConversation(context.Background(), &domain.SearchResult{ConversationID: "aaa"}))
	assert.Equal(t, "/logs/demo/aaa.jsonl", opened)

	err := svc.OpenConversation(context.Background(), &domain.SearchResult{ConversationID: "zzz"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, svc.OpenConversation(context.Background(), nil))
}
