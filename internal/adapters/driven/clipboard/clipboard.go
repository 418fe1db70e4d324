// Package clipboard writes to the system clipboard through atotto/clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Clipboard = (*System)(nil)

// System is the OS clipboard.
type System struct{}

// New returns the system clipboard.
func New() *System { return &System{} }

// Available reports whether a clipboard utility was found.
func (s *System) Available() bool { return !clipboard.Unsupported }

// WriteAll copies text to the clipboard.
func (s *System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
