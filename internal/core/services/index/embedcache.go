package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// ContentHash keys the embedding cache. Identical text shares one embedding.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbedFunc computes embeddings for a batch of texts, in order.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbeddingCache memoises embeddings by content hash. An entry is computed
// once and only dropped when no current turn has that content (Retain) or
// the embedding model changes (Reset).
type EmbeddingCache struct {
	mu      sync.RWMutex
	model   string
	vectors map[string][]float32
	hits    int
	misses  int
}

// NewEmbeddingCache creates an empty cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{vectors: make(map[string][]float32)}
}

// Get returns the cached vector for a content hash.
func (c *EmbeddingCache) Get(hash string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[hash]
	return v, ok
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Stats returns cumulative hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// UseModel clears the cache if the model differs from the one that filled it.
func (c *EmbeddingCache) UseModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != model {
		c.vectors = make(map[string][]float32)
		c.model = model
	}
}

// Reset drops every entry.
func (c *EmbeddingCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = make(map[string][]float32)
}

// Retain drops entries whose hash is not in keep.
func (c *EmbeddingCache) Retain(keep map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for h := range c.vectors {
		if _, ok := keep[h]; !ok {
			delete(c.vectors, h)
		}
	}
}

// GetOrCompute returns vectors for texts, computing only the missing ones via
// embed in batches of batchSize. Results are aligned with texts.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, texts []string, batchSize int, embed EmbedFunc) ([][]float32, error) {
	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missing []int
	queued := make(map[string]bool)

	c.mu.Lock()
	for i, t := range texts {
		h := ContentHash(t)
		hashes[i] = h
		if v, ok := c.vectors[h]; ok {
			out[i] = v
			c.hits++
			continue
		}
		if !queued[h] {
			queued[h] = true
			missing = append(missing, i)
			c.misses++
		}
	}
	c.mu.Unlock()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(missing); start += batchSize {
		end := min(start+batchSize, len(missing))
		batch := make([]string, 0, end-start)
		for _, i := range missing[start:end] {
			batch = append(batch, texts[i])
		}
		vecs, err := embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(batch))
		}
		c.mu.Lock()
		for k, i := range missing[start:end] {
			c.vectors[hashes[i]] = vecs[k]
		}
		c.mu.Unlock()
	}

	if len(missing) > 0 {
		c.mu.RLock()
		for i, h := range hashes {
			if out[i] == nil {
				out[i] = c.vectors[h]
			}
		}
		c.mu.RUnlock()
	}
	return out, nil
}
