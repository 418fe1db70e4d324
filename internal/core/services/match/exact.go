package match

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

// Exact finds turns containing the literal query. Every hit scores 1.0.
type Exact struct {
	// Radius is the snippet half-width in runes.
	Radius int
}

// Mode implements Strategy.
func (e *Exact) Mode() domain.SearchMode { return domain.SearchModeExact }

// Match implements Strategy.
func (e *Exact) Match(ctx context.Context, q domain.SearchQuery, idx *index.Index, cands *index.Candidates) ([]domain.SearchResult, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	re := literalPattern(q.Text, q.CaseSensitive)

	var results []domain.SearchResult
	err := eachTurn(ctx, idx, cands, func(c *domain.Conversation, t domain.Turn) {
		locs := re.FindAllStringIndex(t.Text, -1)
		if len(locs) == 0 {
			return
		}
		spans := make([]domain.Span, len(locs))
		for i, l := range locs {
			spans[i] = domain.Span{Start: l[0], End: l[1]}
		}
		r := newResult(c, t, 1.0)
		r.Snippet, r.Highlights = snippet(t.Text, locs[0][0], locs[0][1], spans, e.Radius)
		r.Matches = len(locs)
		results = append(results, r)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
