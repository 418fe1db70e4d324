package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

// Turn roles. ToolUse and ToolResult only appear in detailed extraction.
const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystem     Role = "system"
	RoleToolUse    Role = "tool_use"
	RoleToolResult Role = "tool_result"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleToolUse, RoleToolResult:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Label returns the display label used in listings and exports.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Claude"
	case RoleSystem:
		return "System"
	case RoleToolUse:
		return "Tool Use"
	case RoleToolResult:
		return "Tool Result"
	default:
		return string(r)
	}
}

// Turn is one message within a conversation. Immutable once loaded.
type Turn struct {
	// Role is the speaker.
	Role Role

	// Text is the flattened message content.
	Text string

	// Ordinal is the zero-based position within the conversation.
	Ordinal int

	// Timestamp is when the message was recorded. Zero if unknown.
	Timestamp time.Time
}

// TurnRef identifies a single turn across the corpus.
type TurnRef struct {
	ConversationID string
	Ordinal        int
}

// Conversation is a parsed session log. Owned by the conversation store and
// immutable for the lifetime of a snapshot.
type Conversation struct {
	// ID is the stable session identifier.
	ID string

	// Project is the display name of the project directory the log lives in.
	Project string

	// Path is the source JSONL file.
	Path string

	// Turns holds the messages in original order.
	Turns []Turn

	// StartedAt is the timestamp of the first turn, or the file time if none.
	StartedAt time.Time

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time

	// SizeBytes is the size of the source file.
	SizeBytes int64
}

// ShortID returns the first eight characters of the ID.
func (c *Conversation) ShortID() string {
	if len(c.ID) <= 8 {
		return c.ID
	}
	return c.ID[:8]
}

// Turn returns the turn with the given ordinal.
func (c *Conversation) Turn(ordinal int) (Turn, bool) {
	if ordinal < 0 || ordinal >= len(c.Turns) {
		return Turn{}, false
	}
	return c.Turns[ordinal], true
}

// InRange reports whether the conversation overlaps [from, to].
// Zero bounds are open.
func (c *Conversation) InRange(from, to time.Time) bool {
	if !from.IsZero() && c.ModifiedAt.Before(from) {
		return false
	}
	if !to.IsZero() && c.StartedAt.After(to) {
		return false
	}
	return true
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

const previewLength = 100

// Preview returns the first meaningful user message, single-lined and
// truncated. Tool plumbing, interruption notices and continuation banners
// are skipped.
func (c *Conversation) Preview() string {
	for _, t := range c.Turns {
		if t.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(t.Text)
		if strings.HasPrefix(text, "tool_use_id") ||
			strings.Contains(text, "[Request interrupted") ||
			strings.Contains(strings.ToLower(text), "session is being continued") {
			continue
		}
		text = strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
		if strings.Contains(text, "is running") && strings.Contains(text, "…") {
			continue
		}
		if strings.HasPrefix(text, "[Image #") {
			if _, rest, ok := strings.Cut(text, "]"); ok {
				text = strings.TrimSpace(rest)
			}
		}
		if len([]rune(text)) <= 3 {
			continue
		}
		text = strings.ReplaceAll(text, "\n", " ")
		if r := []rune(text); len(r) > previewLength {
			text = string(r[:previewLength])
		}
		return text
	}
	return "No preview available"
}

// Fingerprint summarises a corpus for cheap change detection.
type Fingerprint struct {
	Count  int
	Newest time.Time
}

// FingerprintOf computes the fingerprint of a set of conversations.
func FingerprintOf(convs []*Conversation) Fingerprint {
	fp := Fingerprint{Count: len(convs)}
	for _, c := range convs {
		if c.ModifiedAt.After(fp.Newest) {
			fp.Newest = c.ModifiedAt
		}
	}
	return fp
}

// Equal reports whether two fingerprints describe the same corpus state.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Count == o.Count && f.Newest.Equal(o.Newest)
}

// String returns a compact representation for logs.
func (f Fingerprint) String() string {
	if f.Newest.IsZero() {
		return fmt.Sprintf("%d@-", f.Count)
	}
	return fmt.Sprintf("%d@%s", f.Count, f.Newest.UTC().Format(time.RFC3339Nano))
}

// ChangeType describes a change to a conversation log file.
type ChangeType string

// Log change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// LogChange is emitted when a watched log file changes.
type LogChange struct {
	Path string
	Type ChangeType
}
