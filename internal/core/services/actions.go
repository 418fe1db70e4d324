package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// Operating system identifiers.
const (
	osDarwin  = "darwin"
	osLinux   = "linux"
	osWindows = "windows"
)

// Ensure ResultActionService implements the interface.
var _ driving.ResultActionService = (*ResultActionService)(nil)

// ResultActionService provides actions on search results.
type ResultActionService struct {
	conversations driving.ConversationService
	clipboard     driven.Clipboard
	open          func(target string) error
}

// NewResultActionService creates a new result action service.
// The clipboard may be nil; copying then fails with an error.
func NewResultActionService(conversations driving.ConversationService, clipboard driven.Clipboard) *ResultActionService {
	return &ResultActionService{
		conversations: conversations,
		clipboard:     clipboard,
		open:          openPath,
	}
}

// CopyToClipboard copies the matched turn's full text to the clipboard.
// The snippet is used when the turn can no longer be resolved.
func (s *ResultActionService) CopyToClipboard(ctx context.Context, result *domain.SearchResult) error {
	if result == nil {
		return errors.New("result is nil")
	}
	if s.clipboard == nil {
		return errors.New("clipboard not available")
	}

	text := result.Snippet
	if conv, err := s.conversations.Get(ctx, result.ConversationID); err == nil {
		if turn, ok := conv.Turn(result.Ordinal); ok {
			text = turn.Text
		}
	}
	return s.clipboard.WriteAll(text)
}

// OpenConversation opens the result's source log in the default application.
func (s *ResultActionService) OpenConversation(ctx context.Context, result *domain.SearchResult) error {
	if result == nil {
		return errors.New("result is nil")
	}
	conv, err := s.conversations.Get(ctx, result.ConversationID)
	if err != nil {
		return err
	}
	if conv.Path == "" {
		return fmt.Errorf("conversation %s: %w: no source file", conv.ShortID(), domain.ErrNotFound)
	}
	return s.open(conv.Path)
}

// openPath hands a file to the platform's default opener.
func openPath(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case osDarwin:
		cmd = exec.Command("open", target)
	case osLinux:
		cmd = exec.Command("xdg-open", target)
	case osWindows:
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
