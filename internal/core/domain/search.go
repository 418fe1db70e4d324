package domain

import (
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// SearchMode selects the single matching algorithm used by one query.
// Modes are never mixed within a call.
type SearchMode string

// Available search modes.
const (
	// SearchModeExact matches the literal query as a substring.
	SearchModeExact SearchMode = "exact"

	// SearchModeSmart scores IDF-weighted token overlap with near-match tolerance.
	SearchModeSmart SearchMode = "smart"

	// SearchModeRegex compiles the query as a regular expression.
	SearchModeRegex SearchMode = "regex"

	// SearchModeSemantic ranks turns by embedding cosine similarity.
	SearchModeSemantic SearchMode = "semantic"
)

// AllSearchModes lists the modes in cycling order.
func AllSearchModes() []SearchMode {
	return []SearchMode{SearchModeSmart, SearchModeExact, SearchModeRegex, SearchModeSemantic}
}

// ParseSearchMode converts user input into a SearchMode.
func ParseSearchMode(s string) (SearchMode, bool) {
	m := SearchMode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeExact, SearchModeSmart, SearchModeRegex, SearchModeSemantic:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m SearchMode) RequiresEmbedding() bool {
	return m == SearchModeSemantic
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModeExact:
		return "Exact (literal substring)"
	case SearchModeSmart:
		return "Smart (fuzzy token overlap)"
	case SearchModeRegex:
		return "Regex (regular expression)"
	case SearchModeSemantic:
		return "Semantic (embedding similarity)"
	default:
		return unknownDescription
	}
}

// Scope narrows the set of turns a query is evaluated against.
// Zero values mean "no restriction".
type Scope struct {
	// ConversationID restricts the search to one conversation.
	ConversationID string

	// From and To bound the conversation's activity window.
	From time.Time
	To   time.Time

	// Roles restricts matches to turns spoken by these roles.
	Roles []Role
}

// AllowsRole reports whether a turn with the given role is in scope.
func (s Scope) AllowsRole(r Role) bool {
	if len(s.Roles) == 0 {
		return true
	}
	for _, allowed := range s.Roles {
		if allowed == r {
			return true
		}
	}
	return false
}

// AllowsConversation reports whether the conversation is in scope.
func (s Scope) AllowsConversation(c *Conversation) bool {
	if s.ConversationID != "" && c.ID != s.ConversationID {
		return false
	}
	return c.InRange(s.From, s.To)
}

// SearchQuery describes one search request.
type SearchQuery struct {
	// Text is the raw query string.
	Text string

	// Mode selects the matching algorithm.
	Mode SearchMode

	// Scope filters the candidate conversations and turns.
	Scope Scope

	// Limit caps the number of results. Zero means unlimited.
	Limit int

	// CaseSensitive disables case folding for exact and regex modes.
	CaseSensitive bool
}

// IsEmpty reports whether the query has no searchable text.
func (q SearchQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Span is a half-open byte range [Start, End) into a snippet.
type Span struct {
	Start int
	End   int
}

// SearchResult represents a single search hit on one turn.
type SearchResult struct {
	// ConversationID identifies the matched conversation.
	ConversationID string

	// Ordinal is the matched turn's position.
	Ordinal int

	// Role is the matched turn's speaker.
	Role Role

	// Snippet is the excerpt shown to the user.
	Snippet string

	// Highlights marks the matched regions within Snippet.
	Highlights []Span

	// Score is the relevance score. Its scale depends on the mode.
	Score float64

	// Rank is the 1-based position in the final ordering.
	Rank int

	// Matches is the number of match regions found in the turn.
	Matches int

	// Project is the conversation's project name, for display.
	Project string

	// Timestamp is the matched turn's timestamp.
	Timestamp time.Time

	// ConversationModifiedAt is used for recency tie-breaks.
	ConversationModifiedAt time.Time
}

// Ref returns the turn identity of the result.
func (r SearchResult) Ref() TurnRef {
	return TurnRef{ConversationID: r.ConversationID, Ordinal: r.Ordinal}
}

// Highlighted renders the snippet with each highlight wrapped in open/close markers.
func (r SearchResult) Highlighted(open, closeMark string) string {
	if len(r.Highlights) == 0 {
		return r.Snippet
	}
	var b strings.Builder
	last := 0
	for _, h := range r.Highlights {
		if h.Start < last || h.End > len(r.Snippet) || h.Start >= h.End {
			continue
		}
		b.WriteString(r.Snippet[last:h.Start])
		b.WriteString(open)
		b.WriteString(r.Snippet[h.Start:h.End])
		b.WriteString(closeMark)
		last = h.End
	}
	b.WriteString(r.Snippet[last:])
	return b.String()
}
