package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// It is rebuilt wholesale from the embedding cache; it is never
// mutated while a search reads it.
type VectorIndex interface {
	// Add inserts a vector for the given turn key.
	Add(ctx context.Context, id string, embedding []float32) error

	// Search returns up to k hits with cosine similarity >= minSimilarity,
	// best first.
	Search(ctx context.Context, query []float32, k int, minSimilarity float64) ([]VectorHit, error)

	// Count returns the number of stored vectors.
	Count() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the key the vector was added under.
	ID string

	// Similarity is the cosine similarity score (-1..1).
	Similarity float64
}

// VectorIndexFactory creates empty vector indexes for rebuilds.
type VectorIndexFactory func() (VectorIndex, error)
