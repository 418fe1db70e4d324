package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingLiveSearch.Error(), ErrMissingConversationService.Error())
}

func TestErrMissingLiveSearch_Message(t *testing.T) {
	assert.Contains(t, ErrMissingLiveSearch.Error(), "live search")
}

func TestErrMissingConversationService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingConversationService.Error(), "conversation service")
}
