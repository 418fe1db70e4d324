package domain

import (
	"fmt"
	"strings"
)

// ExportFormat selects an export renderer.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
	ExportFormatHTML     ExportFormat = "html"
)

// ParseExportFormat converts user input into an ExportFormat.
// "md" is accepted as an alias for markdown.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	case "html":
		return ExportFormatHTML, nil
	default:
		return "", fmt.Errorf("%w: export format %q", ErrUnsupportedType, s)
	}
}

// Extension returns the file extension without the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case ExportFormatMarkdown:
		return "md"
	case ExportFormatJSON:
		return "json"
	case ExportFormatHTML:
		return "html"
	default:
		return "txt"
	}
}

// String returns the string representation.
func (f ExportFormat) String() string {
	return string(f)
}

// ExportFileName returns the conventional file name for an exported conversation.
func ExportFileName(c *Conversation, f ExportFormat) string {
	return fmt.Sprintf("claude-conversation-%s-%s.%s", c.StartedAt.UTC().Format("2006-01-02"), c.ShortID(), f.Extension())
}

// ExportResult reports where a conversation was written.
type ExportResult struct {
	ConversationID string
	Path           string
	Turns          int
}
