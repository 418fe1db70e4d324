package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

// Semantic ranks turns by cosine similarity between the query embedding and
// each turn's cached embedding. Only hits at or above Threshold are returned.
type Semantic struct {
	// Threshold is the minimum similarity in [-1, 1]. Nil uses
	// domain.DefaultSemanticThreshold.
	Threshold *float64

	// Radius is the snippet half-width in runes.
	Radius int
}

// Mode implements Strategy.
func (s *Semantic) Mode() domain.SearchMode { return domain.SearchModeSemantic }

func (s *Semantic) threshold() float64 {
	if s.Threshold == nil {
		return domain.DefaultSemanticThreshold
	}
	return *s.Threshold
}

// Match implements Strategy.
func (s *Semantic) Match(ctx context.Context, q domain.SearchQuery, idx *index.Index, cands *index.Candidates) ([]domain.SearchResult, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	vectors, err := idx.Semantic(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModeUnavailable, err)
	}
	if vectors.Count() == 0 {
		return nil, nil
	}

	qv, err := idx.Embedder().Embed(ctx, strings.TrimSpace(q.Text))
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", domain.ErrModeUnavailable, err)
	}

	hits, err := vectors.Search(ctx, qv, vectors.Count(), s.threshold())
	if err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	best := make(map[domain.TurnRef]int, len(hits))
	for _, h := range hits {
		if h.Similarity < s.threshold() {
			continue
		}
		ref, _, ok := index.ParseVectorKey(h.ID)
		if !ok {
			continue
		}
		c, t, ok := idx.TurnAt(ref)
		if !ok || !cands.Allows(c.ID, t.Role) {
			continue
		}

		// A long turn is embedded in chunks; it scores as its best chunk.
		if i, seen := best[ref]; seen {
			if h.Similarity <= results[i].Score {
				continue
			}
			results[i].Score = h.Similarity
			results[i].Snippet = chunkSnippet(t.Text, idx.ChunkStart(h.ID), s.Radius)
			continue
		}
		r := newResult(c, t, h.Similarity)
		r.Snippet = chunkSnippet(t.Text, idx.ChunkStart(h.ID), s.Radius)
		best[ref] = len(results)
		results = append(results, r)
	}
	return results, nil
}
