package tui

import "errors"

// ErrMissingLiveSearch is returned when the live search session is not provided.
var ErrMissingLiveSearch = errors.New("tui: live search session is required")

// ErrMissingConversationService is returned when the conversation service is not provided.
var ErrMissingConversationService = errors.New("tui: conversation service is required")
