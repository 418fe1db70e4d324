package export

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

var _ driven.Exporter = (*HTML)(nil)

// HTML renders a conversation as a standalone styled page.
type HTML struct{}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Claude Conversation - {{.ShortID}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 900px;
            margin: 0 auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .header {
            background: white;
            padding: 20px;
            border-radius: 8px;
            margin-bottom: 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #2c3e50; margin: 0 0 10px 0; }
        .metadata { color: #666; font-size: 0.9em; }
        .message {
            background: white;
            padding: 15px 20px;
            margin-bottom: 15px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .user { border-left: 4px solid #3498db; }
        .assistant { border-left: 4px solid #2ecc71; }
        .tool_use { border-left: 4px solid #f39c12; background: #fffbf0; }
        .tool_result { border-left: 4px solid #e74c3c; background: #fff5f5; }
        .system { border-left: 4px solid #95a5a6; background: #f8f9fa; }
        .role { font-weight: bold; margin-bottom: 10px; }
        .content { white-space: pre-wrap; word-wrap: break-word; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Claude Conversation Log</h1>
        <div class="metadata">
            <p>Session ID: {{.ID}}</p>
            <p>Date: {{.Date}}</p>
            <p>Messages: {{.Count}}</p>
        </div>
    </div>
{{- range .Messages}}
    <div class="message {{.Class}}">
        <div class="role">{{.Heading}}</div>
        <div class="content">{{.Text}}</div>
    </div>
{{- end}}

</body>
</html>
`

var page = template.Must(template.New("conversation").Parse(pageTemplate))

type htmlMessage struct {
	Class   string
	Heading string
	Text    string
}

type htmlPage struct {
	ID       string
	ShortID  string
	Date     string
	Count    int
	Messages []htmlMessage
}

// Format implements driven.Exporter.
func (h *HTML) Format() domain.ExportFormat { return domain.ExportFormatHTML }

// Render implements driven.Exporter. Turn text is escaped by html/template.
func (h *HTML) Render(w io.Writer, conv *domain.Conversation) error {
	if conv == nil {
		return fmt.Errorf("render html: %w: nil conversation", domain.ErrInvalidInput)
	}
	date, clock := dateParts(conv)
	data := htmlPage{
		ID:       conv.ID,
		ShortID:  conv.ShortID(),
		Date:     strings.TrimSpace(date + " " + clock),
		Count:    len(conv.Turns),
		Messages: make([]htmlMessage, 0, len(conv.Turns)),
	}
	for _, t := range conv.Turns {
		data.Messages = append(data.Messages, htmlMessage{
			Class:   string(t.Role),
			Heading: heading(t.Role),
			Text:    t.Text,
		})
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
