package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

var _ driven.Exporter = (*JSON)(nil)

// JSON renders a conversation as an indented JSON document.
type JSON struct{}

type jsonMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type jsonDocument struct {
	SessionID    string        `json:"session_id"`
	Date         string        `json:"date"`
	MessageCount int           `json:"message_count"`
	Messages     []jsonMessage `json:"messages"`
}

// Format implements driven.Exporter.
func (j *JSON) Format() domain.ExportFormat { return domain.ExportFormatJSON }

// Render implements driven.Exporter.
func (j *JSON) Render(w io.Writer, conv *domain.Conversation) error {
	if conv == nil {
		return fmt.Errorf("render json: %w: nil conversation", domain.ErrInvalidInput)
	}
	date, _ := dateParts(conv)
	doc := jsonDocument{
		SessionID:    conv.ID,
		Date:         date,
		MessageCount: len(conv.Turns),
		Messages:     make([]jsonMessage, 0, len(conv.Turns)),
	}
	for _, t := range conv.Turns {
		var ts string
		if !t.Timestamp.IsZero() {
			ts = t.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		doc.Messages = append(doc.Messages, jsonMessage{Role: string(t.Role), Content: t.Text, Timestamp: ts})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}
