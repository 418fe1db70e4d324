package match

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

// Variant weights. A query token matches a corpus token exactly, within one
// edit, or as a substring of a longer corpus token.
const (
	weightExact   = 1.0
	weightNear    = 0.8
	weightContain = 0.6

	// minNearLen is the shortest query token eligible for edit-distance matches.
	minNearLen = 4

	// minContainLen is the shortest query token eligible for containment matches.
	minContainLen = 3

	// proximityShare is the part of the score that rewards exact tokens
	// appearing close together.
	proximityShare = 0.1
)

// Smart scores turns by IDF-weighted overlap between query tokens and turn
// tokens. It is literal: "authentication" does not find "auth". A turn that
// contains the whole query as a substring always scores 1.0.
type Smart struct {
	// Radius is the snippet half-width in runes.
	Radius int
}

// Mode implements Strategy.
func (s *Smart) Mode() domain.SearchMode { return domain.SearchModeSmart }

type variant struct {
	token  string
	weight float64
}

type turnScore struct {
	weights   []float64
	positions [][]int
	tokens    map[string]struct{}
}

// Match implements Strategy.
func (s *Smart) Match(ctx context.Context, q domain.SearchQuery, idx *index.Index, cands *index.Candidates) ([]domain.SearchResult, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	terms := index.Terms(q.Text)
	n := float64(idx.TurnCount())

	scores := make(map[domain.TurnRef]*turnScore)
	idf := make([]float64, len(terms))
	for qi, term := range terms {
		matched := make(map[domain.TurnRef]struct{})
		for _, v := range variantsOf(idx, term) {
			for _, p := range idx.Postings(v.token) {
				_, t, ok := idx.TurnAt(p.Ref)
				if !ok {
					continue
				}
				// Document frequency is corpus-wide so scope does not move scores.
				matched[p.Ref] = struct{}{}
				if !cands.Allows(p.Ref.ConversationID, t.Role) {
					continue
				}
				ts := scores[p.Ref]
				if ts == nil {
					ts = &turnScore{
						weights:   make([]float64, len(terms)),
						positions: make([][]int, len(terms)),
						tokens:    make(map[string]struct{}),
					}
					scores[p.Ref] = ts
				}
				ts.tokens[v.token] = struct{}{}
				if v.weight > ts.weights[qi] {
					ts.weights[qi] = v.weight
				}
				if v.weight == weightExact {
					ts.positions[qi] = p.Positions
				}
			}
		}
		idf[qi] = math.Log(1 + n/float64(1+len(matched)))
	}

	var total float64
	for _, w := range idf {
		total += w
	}

	phrase := literalPattern(q.Text, false)
	results := make([]domain.SearchResult, 0, len(scores))
	seen := make(map[domain.TurnRef]struct{}, len(scores))

	refs := make([]domain.TurnRef, 0, len(scores))
	for ref := range scores {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ConversationID != refs[j].ConversationID {
			return refs[i].ConversationID < refs[j].ConversationID
		}
		return refs[i].Ordinal < refs[j].Ordinal
	})

	for _, ref := range refs {
		ts := scores[ref]
		var base float64
		for qi, w := range ts.weights {
			base += idf[qi] * w
		}
		if total > 0 {
			base /= total
		}
		if base <= 0 {
			continue
		}
		c, t, _ := idx.TurnAt(ref)
		score := base * (1 - proximityShare*(1-proximity(ts.positions)))
		var loc []int
		if l := phrase.FindStringIndex(t.Text); l != nil {
			score = 1.0
			loc = l
		}
		r := newResult(c, t, math.Min(score, 1.0))
		r.Snippet, r.Highlights, r.Matches = s.tokenSnippet(t.Text, ts.tokens, loc)
		results = append(results, r)
		seen[ref] = struct{}{}
	}

	// Literal occurrences that tokenisation cannot see, such as a query
	// that is only punctuation or a fragment shorter than minContainLen.
	err := eachTurn(ctx, idx, cands, func(c *domain.Conversation, t domain.Turn) {
		ref := domain.TurnRef{ConversationID: c.ID, Ordinal: t.Ordinal}
		if _, ok := seen[ref]; ok {
			return
		}
		loc := phrase.FindStringIndex(t.Text)
		if loc == nil || loc[0] == loc[1] {
			return
		}
		r := newResult(c, t, 1.0)
		span := domain.Span{Start: loc[0], End: loc[1]}
		r.Snippet, r.Highlights = snippet(t.Text, loc[0], loc[1], []domain.Span{span}, s.Radius)
		results = append(results, r)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// tokenSnippet highlights every occurrence of a matched token. The snippet
// centres on the phrase occurrence when there is one, otherwise on the first
// highlighted token.
func (s *Smart) tokenSnippet(text string, tokens map[string]struct{}, phrase []int) (string, []domain.Span, int) {
	var spans []domain.Span
	for _, tok := range index.Tokenize(text) {
		if _, ok := tokens[tok.Text]; ok {
			spans = append(spans, domain.Span{Start: tok.Start, End: tok.End})
		}
	}
	count := len(spans)
	switch {
	case phrase != nil:
		spans = []domain.Span{{Start: phrase[0], End: phrase[1]}}
	case len(spans) == 0:
		return leadingSnippet(text, s.Radius), nil, 1
	}
	snip, hl := snippet(text, spans[0].Start, spans[0].End, spans, s.Radius)
	return snip, hl, max(count, 1)
}

// variantsOf expands a query token into the corpus tokens it matches.
func variantsOf(idx *index.Index, term string) []variant {
	best := make(map[string]float64)
	if idx.DocFreq(term) > 0 {
		best[term] = weightExact
	}
	n := utf8.RuneCountInString(term)
	if n >= minNearLen {
		for l := n - 1; l <= n+1; l++ {
			for _, tok := range idx.VocabularyOfLength(l) {
				if tok != term && index.WithinOneEdit(tok, term) {
					best[tok] = weightNear
				}
			}
		}
	}
	if n >= minContainLen {
		idx.VocabularyLongerThan(n, func(tok string) {
			if _, ok := best[tok]; ok {
				return
			}
			if strings.Contains(tok, term) {
				best[tok] = weightContain
			}
		})
	}

	out := make([]variant, 0, len(best))
	for tok, w := range best {
		out = append(out, variant{token: tok, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].token < out[j].token })
	return out
}

// proximity is k / w for the smallest window w (in token positions) that
// contains at least one exact occurrence of each of the k query tokens that
// matched exactly. It is 1 when fewer than two tokens matched exactly.
func proximity(positions [][]int) float64 {
	type event struct{ pos, list int }
	var events []event
	k := 0
	for _, ps := range positions {
		if len(ps) == 0 {
			continue
		}
		for _, p := range ps {
			events = append(events, event{pos: p, list: k})
		}
		k++
	}
	if k < 2 {
		return 1
	}
	sort.Slice(events, func(i, j int) bool { return events[i].pos < events[j].pos })

	counts := make([]int, k)
	covered := 0
	best := math.MaxInt
	left := 0
	for right := range events {
		if counts[events[right].list] == 0 {
			covered++
		}
		counts[events[right].list]++
		for covered == k {
			if w := events[right].pos - events[left].pos + 1; w < best {
				best = w
			}
			counts[events[left].list]--
			if counts[events[left].list] == 0 {
				covered--
			}
			left++
		}
	}
	return math.Min(1, float64(k)/float64(best))
}
