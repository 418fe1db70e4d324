// Package index derives search-ready structures from a conversation snapshot:
// a positional token index used by the exact and smart strategies, and an
// embedding-backed vector index used by the semantic strategy.
//
// An Index is immutable once built. Callers swap whole indexes; nothing
// mutates an index that a search may be reading.
package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Posting records where a token occurs within one turn.
type Posting struct {
	Ref       domain.TurnRef
	Positions []int
}

// Options configures Build.
type Options struct {
	// Embedder computes turn embeddings. Nil leaves semantic search unavailable.
	Embedder driven.EmbeddingService

	// Cache memoises embeddings across builds. Nil allocates a private cache.
	Cache *EmbeddingCache

	// NewVectorIndex creates the vector index semantic search reads from.
	NewVectorIndex driven.VectorIndexFactory

	// BatchSize bounds each EmbedBatch call. Zero uses DefaultBatchSize.
	BatchSize int

	// Chunker splits turns before embedding. Nil uses NewChunker().
	Chunker *Chunker
}

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 32

// Index is a read-only view of one conversation snapshot.
type Index struct {
	convs       []*domain.Conversation
	byID        map[string]*domain.Conversation
	recency     map[string]int
	postings    map[string][]Posting
	byLength    map[int][]string
	turnCount   int
	fingerprint domain.Fingerprint

	opts Options

	semMu       sync.Mutex
	vectors     driven.VectorIndex
	chunkStarts map[string]int
}

// Build tokenises every turn of convs. It is a pure function of its input:
// the same conversations always produce the same index. Embeddings are
// computed lazily on the first semantic query; see Semantic.
func Build(ctx context.Context, convs []*domain.Conversation, opts Options) (*Index, error) {
	ordered := make([]*domain.Conversation, 0, len(convs))
	for i, c := range convs {
		if c == nil {
			return nil, fmt.Errorf("index: conversation %d is nil", i)
		}
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.ID < b.ID
	})

	if opts.Cache == nil {
		opts.Cache = NewEmbeddingCache()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Chunker == nil {
		opts.Chunker = NewChunker()
	}

	idx := &Index{
		convs:       ordered,
		byID:        make(map[string]*domain.Conversation, len(ordered)),
		recency:     make(map[string]int, len(ordered)),
		postings:    make(map[string][]Posting),
		byLength:    make(map[int][]string),
		fingerprint: domain.FingerprintOf(ordered),
		opts:        opts,
	}

	for rank, c := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		if _, dup := idx.byID[c.ID]; dup {
			return nil, fmt.Errorf("index: %w: duplicate conversation id %q", domain.ErrInvalidInput, c.ID)
		}
		idx.byID[c.ID] = c
		idx.recency[c.ID] = rank
		for _, t := range c.Turns {
			idx.addTurn(domain.TurnRef{ConversationID: c.ID, Ordinal: t.Ordinal}, t.Text)
		}
	}

	for tok := range idx.postings {
		n := len([]rune(tok))
		idx.byLength[n] = append(idx.byLength[n], tok)
	}
	for n := range idx.byLength {
		sort.Strings(idx.byLength[n])
	}
	return idx, nil
}

func (idx *Index) addTurn(ref domain.TurnRef, text string) {
	idx.turnCount++
	positions := make(map[string][]int)
	var order []string
	for _, tok := range Tokenize(text) {
		if _, ok := positions[tok.Text]; !ok {
			order = append(order, tok.Text)
		}
		positions[tok.Text] = append(positions[tok.Text], tok.Pos)
	}
	for _, term := range order {
		idx.postings[term] = append(idx.postings[term], Posting{Ref: ref, Positions: positions[term]})
	}
}

// Fingerprint identifies the snapshot the index was built from.
func (idx *Index) Fingerprint() domain.Fingerprint {
	return idx.fingerprint
}

// Conversations returns the snapshot, most recent first.
func (idx *Index) Conversations() []*domain.Conversation {
	return idx.convs
}

// Conversation looks up a conversation by ID.
func (idx *Index) Conversation(id string) (*domain.Conversation, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// TurnAt resolves a turn reference.
func (idx *Index) TurnAt(ref domain.TurnRef) (*domain.Conversation, domain.Turn, bool) {
	c, ok := idx.byID[ref.ConversationID]
	if !ok {
		return nil, domain.Turn{}, false
	}
	t, ok := c.Turn(ref.Ordinal)
	return c, t, ok
}

// Recency returns the conversation's position in recency order (0 = newest).
func (idx *Index) Recency(id string) int {
	if r, ok := idx.recency[id]; ok {
		return r
	}
	return len(idx.convs)
}

// Postings returns the occurrences of an exact normalised token.
func (idx *Index) Postings(token string) []Posting {
	return idx.postings[token]
}

// TurnCount is the number of indexed turns.
func (idx *Index) TurnCount() int {
	return idx.turnCount
}

// DocFreq is the number of turns containing token.
func (idx *Index) DocFreq(token string) int {
	return len(idx.postings[token])
}

// VocabularyOfLength returns indexed tokens with exactly n runes, sorted.
func (idx *Index) VocabularyOfLength(n int) []string {
	return idx.byLength[n]
}

// VocabularyLongerThan calls fn for every indexed token with more than n runes.
func (idx *Index) VocabularyLongerThan(n int, fn func(token string)) {
	lengths := make([]int, 0, len(idx.byLength))
	for l := range idx.byLength {
		if l > n {
			lengths = append(lengths, l)
		}
	}
	sort.Ints(lengths)
	for _, l := range lengths {
		for _, tok := range idx.byLength[l] {
			fn(tok)
		}
	}
}

// Candidates is a resolved scope: the turns a strategy may consider.
type Candidates struct {
	convs map[string]struct{}
	scope domain.Scope
	all   bool
}

// Resolve narrows the snapshot to the conversations a scope admits.
func (idx *Index) Resolve(scope domain.Scope) *Candidates {
	cands := &Candidates{scope: scope}
	if scope.ConversationID == "" && scope.From.IsZero() && scope.To.IsZero() {
		cands.all = true
		return cands
	}
	cands.convs = make(map[string]struct{})
	for _, c := range idx.convs {
		if scope.AllowsConversation(c) {
			cands.convs[c.ID] = struct{}{}
		}
	}
	return cands
}

// AllowsConversation reports whether a conversation is in the candidate set.
func (c *Candidates) AllowsConversation(id string) bool {
	if c == nil || c.all {
		return true
	}
	_, ok := c.convs[id]
	return ok
}

// Allows reports whether a turn is in the candidate set.
func (c *Candidates) Allows(conversationID string, role domain.Role) bool {
	if c == nil {
		return true
	}
	return c.AllowsConversation(conversationID) && c.scope.AllowsRole(role)
}

// ConversationCount returns the number of admitted conversations, or -1 when
// every conversation is admitted.
func (c *Candidates) ConversationCount() int {
	if c == nil || c.all {
		return -1
	}
	return len(c.convs)
}

// VectorKey is the vector index key for one chunk of a turn.
func VectorKey(ref domain.TurnRef, chunk int) string {
	return ref.ConversationID + "#" + strconv.Itoa(ref.Ordinal) + "#" + strconv.Itoa(chunk)
}

// ParseVectorKey reverses VectorKey.
func ParseVectorKey(key string) (domain.TurnRef, int, bool) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return domain.TurnRef{}, 0, false
	}
	chunk, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return domain.TurnRef{}, 0, false
	}
	key = key[:i]
	i = strings.LastIndexByte(key, '#')
	if i < 0 {
		return domain.TurnRef{}, 0, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return domain.TurnRef{}, 0, false
	}
	return domain.TurnRef{ConversationID: key[:i], Ordinal: n}, chunk, true
}
