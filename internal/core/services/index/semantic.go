package index

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// SemanticAvailable reports whether semantic search can be attempted
// without building anything.
func (idx *Index) SemanticAvailable() error {
	if idx.opts.Embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if idx.opts.NewVectorIndex == nil {
		return domain.ErrVectorIndexUnavailable
	}
	return nil
}

// Embedder returns the embedding service, or nil.
func (idx *Index) Embedder() driven.EmbeddingService {
	return idx.opts.Embedder
}

// Semantic returns the vector index for this snapshot, building it on first
// use from the embedding cache. A failed build is not memoised, so a
// provider that comes back is picked up by the next call.
func (idx *Index) Semantic(ctx context.Context) (driven.VectorIndex, error) {
	if err := idx.SemanticAvailable(); err != nil {
		return nil, err
	}

	idx.semMu.Lock()
	defer idx.semMu.Unlock()
	if idx.vectors != nil {
		return idx.vectors, nil
	}

	vi, err := idx.buildVectors(ctx)
	if err != nil {
		return nil, err
	}
	idx.vectors = vi
	return vi, nil
}

func (idx *Index) buildVectors(ctx context.Context) (driven.VectorIndex, error) {
	logger.Section("Semantic Index Build")
	embedder := idx.opts.Embedder
	cache := idx.opts.Cache
	cache.UseModel(embedder.ModelName())

	var keys []string
	var texts []string
	starts := make(map[string]int)
	keep := make(map[string]struct{})
	for _, c := range idx.convs {
		for _, t := range c.Turns {
			text := strings.TrimSpace(t.Text)
			if text == "" {
				continue
			}
			lead := strings.Index(t.Text, text)
			ref := domain.TurnRef{ConversationID: c.ID, Ordinal: t.Ordinal}
			for i, ch := range idx.opts.Chunker.Split(text) {
				key := VectorKey(ref, i)
				keys = append(keys, key)
				texts = append(texts, ch.Text)
				starts[key] = lead + ch.Start
				keep[ContentHash(ch.Text)] = struct{}{}
			}
		}
	}

	vecs, err := cache.GetOrCompute(ctx, texts, idx.opts.BatchSize, embedder.EmbedBatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	cache.Retain(keep)
	hits, misses := cache.Stats()
	logger.Debug("Embedded %d chunks (cache hits=%d misses=%d)", len(texts), hits, misses)

	vi, err := idx.opts.NewVectorIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	dims := 0
	for i, v := range vecs {
		if len(v) == 0 {
			continue
		}
		if degenerate(v) {
			logger.Debug("Skipping %s: embedding has no direction", keys[i])
			continue
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			_ = vi.Close()
			return nil, fmt.Errorf("%w: embedding for %s has %d dimensions, want %d",
				domain.ErrEmbeddingUnavailable, keys[i], len(v), dims)
		}
		if err := vi.Add(ctx, keys[i], v); err != nil {
			_ = vi.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}
	idx.chunkStarts = starts
	return vi, nil
}

// degenerate reports a vector that cannot take part in cosine similarity:
// all zeros, or carrying NaN or Inf.
func degenerate(v []float32) bool {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0)
}

// ChunkStart returns the byte offset within its turn of the chunk a vector
// key names. Unknown keys report 0.
func (idx *Index) ChunkStart(key string) int {
	return idx.chunkStarts[key]
}

// Close releases the vector index, if built.
func (idx *Index) Close() error {
	idx.semMu.Lock()
	defer idx.semMu.Unlock()
	if idx.vectors == nil {
		return nil
	}
	err := idx.vectors.Close()
	idx.vectors = nil
	return err
}
