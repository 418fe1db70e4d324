package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
	"github.com/custodia-labs/recall-cli/internal/core/services/match"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService runs queries against an index of the conversation store.
// The index is rebuilt whenever the store's fingerprint moves; a failed
// rebuild keeps serving the previous index.
type SearchService struct {
	store      driven.ConversationStore
	embedder   driven.EmbeddingService
	newVectors driven.VectorIndexFactory
	cache      *index.EmbeddingCache
	threshold  float64
	radius     int

	mu      sync.Mutex
	current *index.Index
}

// NewSearchService creates a new search service.
// The embedder and newVectors parameters are optional (can be nil); without
// them semantic mode reports domain.ErrModeUnavailable.
func NewSearchService(
	store driven.ConversationStore,
	embedder driven.EmbeddingService,
	newVectors driven.VectorIndexFactory,
) *SearchService {
	return &SearchService{
		store:      store,
		embedder:   embedder,
		newVectors: newVectors,
		cache:      index.NewEmbeddingCache(),
		threshold:  domain.DefaultSemanticThreshold,
	}
}

// SetSemanticThreshold sets the minimum cosine similarity for semantic hits.
// Zero and negative values are honoured; values outside [-1, 1] are ignored.
func (s *SearchService) SetSemanticThreshold(threshold float64) {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		logger.Warn("Ignoring semantic threshold %v, keeping %v", threshold, s.threshold)
		return
	}
	s.threshold = threshold
}

// SetSnippetRadius sets the number of runes kept on each side of a match.
// Zero uses the default.
func (s *SearchService) SetSnippetRadius(radius int) {
	s.radius = radius
}

// Fingerprint returns the fingerprint of the underlying store. Live sessions
// use it to key their results cache.
func (s *SearchService) Fingerprint() domain.Fingerprint {
	return s.store.Fingerprint()
}

// Search runs one query in exactly one mode.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q mode=%s limit=%d", q.Text, q.Mode, q.Limit)

	if q.IsEmpty() {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if q.Mode == "" {
		q.Mode = domain.SearchModeSmart
	}
	if !q.Mode.IsValid() {
		return nil, fmt.Errorf("search: %w: unknown mode %q", domain.ErrInvalidInput, q.Mode)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("search: %w: negative limit %d", domain.ErrInvalidInput, q.Limit)
	}

	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	strategy := s.strategyFor(q.Mode)
	cands := idx.Resolve(q.Scope)
	if n := cands.ConversationCount(); n >= 0 {
		logger.Debug("Scope admits %d conversations", n)
	}

	raw, err := strategy.Match(ctx, q, idx, cands)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Raw candidates: %d", len(raw))

	results := rank(idx, raw, q.Limit)
	logger.Info("Final results: %d", len(results))
	return results, nil
}

// strategyFor maps a validated mode to its strategy.
func (s *SearchService) strategyFor(mode domain.SearchMode) match.Strategy {
	switch mode {
	case domain.SearchModeExact:
		return &match.Exact{Radius: s.radius}
	case domain.SearchModeRegex:
		return &match.Regex{Radius: s.radius}
	case domain.SearchModeSemantic:
		threshold := s.threshold
		return &match.Semantic{Threshold: &threshold, Radius: s.radius}
	default:
		return &match.Smart{Radius: s.radius}
	}
}

// ensureIndex returns an index consistent with the store, rebuilding it if
// the fingerprint changed.
func (s *SearchService) ensureIndex(ctx context.Context) (*index.Index, error) {
	fp := s.store.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Fingerprint().Equal(fp) {
		return s.current, nil
	}

	idx, err := s.build(ctx)
	if err != nil {
		// A cancelled caller is not a failed rebuild; the next search retries.
		if s.current == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.L().Warn("index rebuild failed, serving previous index",
			zap.Error(err),
			zap.Stringer("fingerprint", s.current.Fingerprint()),
			zap.Stringer("wanted", fp))
		return s.current, nil
	}
	// The previous index is not closed: a concurrent search may still hold it.
	s.current = idx
	return idx, nil
}

func (s *SearchService) build(ctx context.Context) (*index.Index, error) {
	logger.Section("Index Build")
	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	idx, err := index.Build(ctx, convs, index.Options{
		Embedder:       s.embedder,
		Cache:          s.cache,
		NewVectorIndex: s.newVectors,
	})
	if err != nil {
		return nil, err
	}
	logger.L().Debug("index built",
		zap.Int("conversations", len(convs)),
		zap.Int("turns", idx.TurnCount()),
		zap.Stringer("fingerprint", idx.Fingerprint()))
	return idx, nil
}

// ModeAvailable returns nil if the mode can run.
func (s *SearchService) ModeAvailable(mode domain.SearchMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	if !mode.RequiresEmbedding() {
		return nil
	}
	if s.embedder == nil {
		return fmt.Errorf("%w: %w", domain.ErrModeUnavailable, domain.ErrEmbeddingUnavailable)
	}
	if s.newVectors == nil {
		return fmt.Errorf("%w: %w", domain.ErrModeUnavailable, domain.ErrVectorIndexUnavailable)
	}
	return nil
}

// AvailableModes lists the modes that can currently run, in cycling order.
func (s *SearchService) AvailableModes() []domain.SearchMode {
	var modes []domain.SearchMode
	for _, m := range domain.AllSearchModes() {
		if s.ModeAvailable(m) == nil {
			modes = append(modes, m)
		}
	}
	return modes
}

// Close releases the current index's vector store.
func (s *SearchService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Close()
}

// rank deduplicates by turn, orders and truncates candidates, then assigns
// ranks. Duplicates keep the higher score (the first on ties) and accumulate
// their match counts.
func rank(idx *index.Index, raw []domain.SearchResult, limit int) []domain.SearchResult {
	pos := make(map[domain.TurnRef]int, len(raw))
	results := make([]domain.SearchResult, 0, len(raw))
	for _, r := range raw {
		i, seen := pos[r.Ref()]
		if !seen {
			pos[r.Ref()] = len(results)
			results = append(results, r)
			continue
		}
		matches := results[i].Matches + r.Matches
		if r.Score > results[i].Score {
			results[i] = r
		}
		results[i].Matches = matches
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := idx.Recency(a.ConversationID), idx.Recency(b.ConversationID)
		if ra != rb {
			return ra < rb
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.ConversationID < b.ConversationID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
