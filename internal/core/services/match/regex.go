package match

import (
	"context"
	"fmt"
	"regexp"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

// Regex compiles the query as an RE2 pattern. Each non-empty match region
// is its own candidate, so one turn can yield several.
type Regex struct {
	// Radius is the snippet half-width in runes.
	Radius int
}

// Mode implements Strategy.
func (r *Regex) Mode() domain.SearchMode { return domain.SearchModeRegex }

// Compile validates a pattern the way Match would compile it.
func Compile(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
	}
	return re, nil
}

// Match implements Strategy.
func (r *Regex) Match(ctx context.Context, q domain.SearchQuery, idx *index.Index, cands *index.Candidates) ([]domain.SearchResult, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	re, err := Compile(q.Text, q.CaseSensitive)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	err = eachTurn(ctx, idx, cands, func(c *domain.Conversation, t domain.Turn) {
		for _, loc := range re.FindAllStringIndex(t.Text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			res := newResult(c, t, 1.0)
			span := domain.Span{Start: loc[0], End: loc[1]}
			res.Snippet, res.Highlights = snippet(t.Text, loc[0], loc[1], []domain.Span{span}, r.Radius)
			results = append(results, res)
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
