package index

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// fakeEmbedder maps each known text to a fixed vector and counts calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	texts   int
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts += len(texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 3 }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return f.err }
func (f *fakeEmbedder) Close() error                 { return nil }

// flatVectors is a brute-force cosine index.
type flatVectors struct {
	ids  []string
	vecs [][]float32
}

func newFlatVectors() (driven.VectorIndex, error) { return &flatVectors{}, nil }

func (f *flatVectors) Add(_ context.Context, id string, v []float32) error {
	f.ids = append(f.ids, id)
	f.vecs = append(f.vecs, v)
	return nil
}

func (f *flatVectors) Search(_ context.Context, q []float32, k int, minSim float64) ([]driven.VectorHit, error) {
	var hits []driven.VectorHit
	for i, v := range f.vecs {
		s := cosine(q, v)
		if s >= minSim {
			hits = append(hits, driven.VectorHit{ID: f.ids[i], Similarity: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *flatVectors) Count() int   { return len(f.ids) }
func (f *flatVectors) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var errBoom = errors.New("boom")

func conv(id string, modified int, texts ...string) *domain.Conversation {
	c := &domain.Conversation{ID: id, ModifiedAt: day(modified), StartedAt: day(modified)}
	for i, t := range texts {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		c.Turns = append(c.Turns, domain.Turn{Role: role, Text: t, Ordinal: i})
	}
	return c
}
