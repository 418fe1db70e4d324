// Package match implements the four search strategies. Each strategy turns a
// query into an unordered list of candidate results over an index; ranking,
// deduplication and truncation belong to the search engine.
package match

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

// Strategy is one matching algorithm.
type Strategy interface {
	// Mode returns the search mode this strategy implements.
	Mode() domain.SearchMode

	// Match returns every candidate for q among the admitted turns.
	Match(ctx context.Context, q domain.SearchQuery, idx *index.Index, cands *index.Candidates) ([]domain.SearchResult, error)
}

// DefaultSnippetRadius is the number of runes kept on each side of a match.
const DefaultSnippetRadius = domain.DefaultSnippetRadius

func radiusOr(r int) int {
	if r <= 0 {
		return DefaultSnippetRadius
	}
	return r
}

// literalPattern compiles the trimmed query as a literal.
func literalPattern(text string, caseSensitive bool) *regexp.Regexp {
	p := regexp.QuoteMeta(strings.TrimSpace(text))
	if !caseSensitive {
		p = "(?i)" + p
	}
	return regexp.MustCompile(p)
}

func newResult(c *domain.Conversation, t domain.Turn, score float64) domain.SearchResult {
	return domain.SearchResult{
		ConversationID:         c.ID,
		Ordinal:                t.Ordinal,
		Role:                   t.Role,
		Score:                  score,
		Project:                c.Project,
		Timestamp:              t.Timestamp,
		ConversationModifiedAt: c.ModifiedAt,
		Matches:                1,
	}
}

// eachTurn calls fn for every admitted turn, most recent conversation first.
func eachTurn(ctx context.Context, idx *index.Index, cands *index.Candidates, fn func(c *domain.Conversation, t domain.Turn)) error {
	for _, c := range idx.Conversations() {
		if !cands.AllowsConversation(c.ID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, t := range c.Turns {
			if !cands.Allows(c.ID, t.Role) {
				continue
			}
			fn(c, t)
		}
	}
	return nil
}
