package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

var _ driven.Exporter = (*Markdown)(nil)

// Markdown renders a conversation as a Markdown log.
type Markdown struct{}

// Format implements driven.Exporter.
func (m *Markdown) Format() domain.ExportFormat { return domain.ExportFormatMarkdown }

// Render implements driven.Exporter.
func (m *Markdown) Render(w io.Writer, conv *domain.Conversation) error {
	if conv == nil {
		return fmt.Errorf("render markdown: %w: nil conversation", domain.ErrInvalidInput)
	}
	bw := bufio.NewWriter(w)
	date, clock := dateParts(conv)

	fmt.Fprintf(bw, "# Claude Conversation Log\n\nSession ID: %s\nDate: %s", conv.ID, date)
	if clock != "" {
		fmt.Fprintf(bw, " %s", clock)
	}
	bw.WriteString("\n\n---\n\n")

	for _, t := range conv.Turns {
		level := "##"
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			level = "###"
		}
		fmt.Fprintf(bw, "%s %s\n\n%s\n\n---\n\n", level, heading(t.Role), t.Text)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}
