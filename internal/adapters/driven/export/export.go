// Package export renders conversations as Markdown, JSON or HTML files.
package export

import (
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// All returns one exporter per supported format.
func All() []driven.Exporter {
	return []driven.Exporter{&Markdown{}, &JSON{}, &HTML{}}
}

// dateParts returns the conversation's start date and, when the first turn
// carries a timestamp, its time of day. Both are rendered in UTC.
func dateParts(c *domain.Conversation) (date, clock string) {
	if len(c.Turns) > 0 && !c.Turns[0].Timestamp.IsZero() {
		ts := c.Turns[0].Timestamp.UTC()
		return ts.Format(time.DateOnly), ts.Format(time.TimeOnly)
	}
	start := c.StartedAt
	if start.IsZero() {
		start = time.Now()
	}
	return start.UTC().Format(time.DateOnly), ""
}

// heading is the per-turn header used by the Markdown and HTML renderers.
func heading(r domain.Role) string {
	switch r {
	case domain.RoleUser:
		return "👤 User"
	case domain.RoleAssistant:
		return "🤖 Claude"
	case domain.RoleToolUse:
		return "🔧 Tool Use"
	case domain.RoleToolResult:
		return "📤 Tool Result"
	case domain.RoleSystem:
		return "ℹ️ System"
	default:
		return string(r)
	}
}
