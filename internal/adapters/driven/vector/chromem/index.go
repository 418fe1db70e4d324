// Package chromem implements the vector index with chromem-go, an
// in-process vector store. Each index lives in its own in-memory database
// and is discarded with the snapshot it was built for.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

const collectionName = "turns"

// errNoEmbeddingFunc is returned if chromem is ever asked to embed text
// itself. Every vector is computed upstream and passed in.
var errNoEmbeddingFunc = errors.New("chromem: embeddings must be precomputed")

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("chromem: index closed")

// Index is a driven.VectorIndex backed by a chromem collection.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}
	return &Index{db: db, collection: col}, nil
}

// Factory adapts New to driven.VectorIndexFactory.
func Factory() driven.VectorIndexFactory {
	return func() (driven.VectorIndex, error) { return New() }
}

// Add stores a vector under id. Zero vectors have no direction and are
// rejected.
func (x *Index) Add(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) == 0 || isZero(embedding) {
		return fmt.Errorf("chromem: vector for %s has no direction", id)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.collection == nil {
		return ErrClosed
	}
	// chromem retains the slice it is given.
	v := make([]float32, len(embedding))
	copy(v, embedding)
	if err := x.collection.AddDocument(ctx, chromem.Document{ID: id, Embedding: v}); err != nil {
		return fmt.Errorf("chromem: add %s: %w", id, err)
	}
	return nil
}

// Search returns up to k hits with cosine similarity of at least
// minSimilarity, best first.
func (x *Index) Search(ctx context.Context, query []float32, k int, minSimilarity float64) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.collection == nil {
		return nil, ErrClosed
	}
	n := x.collection.Count()
	if k <= 0 || n == 0 || len(query) == 0 || isZero(query) {
		return []driven.VectorHit{}, nil
	}
	if k > n {
		k = n
	}
	q := make([]float32, len(query))
	copy(q, query)
	res, err := x.collection.QueryEmbedding(ctx, q, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}
	hits := make([]driven.VectorHit, 0, len(res))
	for _, r := range res {
		sim := float64(r.Similarity)
		if sim < minSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: r.ID, Similarity: sim})
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.collection == nil {
		return 0
	}
	return x.collection.Count()
}

// Close drops the collection. It is idempotent.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.collection == nil {
		return nil
	}
	x.collection = nil
	return x.db.DeleteCollection(collectionName)
}

func isZero(v []float32) bool {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return sum == 0 || math.IsNaN(sum)
}
