package match

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/services/index"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 3 }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return f.err }
func (f *fakeEmbedder) Close() error                 { return nil }

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
		var dot, na, nb float64
		for j := range v {
			dot += float64(q[j]) * float64(v[j])
			na += float64(q[j]) * float64(q[j])
			nb += float64(v[j]) * float64(v[j])
		}
		s := dot / (math.Sqrt(na) * math.Sqrt(nb))
		if s >= minSim {
			hits = append(hits, driven.VectorHit{ID: f.ids[i], Similarity: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *flatVectors) Count() int   { return len(f.ids) }
func (f *flatVectors) Close() error { return nil }

func day(d int) time.Time {
	return time.Date(2025, 5, d, 10, 0, 0, 0, time.UTC)
}

func conv(id string, modified int, texts ...string) *domain.Conversation {
	c := &domain.Conversation{ID: id, Project: "proj", ModifiedAt: day(modified), StartedAt: day(modified)}
	for i, t := range texts {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		c.Turns = append(c.Turns, domain.Turn{Role: role, Text: t, Ordinal: i})
	}
	return c
}

func build(t *testing.T, opts index.Options, convs ...*domain.Conversation) *index.Index {
	t.Helper()
	idx, err := index.Build(context.Background(), convs, opts)
	require.NoError(t, err)
	return idx
}

func refsOf(results []domain.SearchResult) map[domain.TurnRef]float64 {
	out := make(map[domain.TurnRef]float64, len(results))
	for _, r := range results {
		out[r.Ref()] = r.Score
	}
	return out
}
