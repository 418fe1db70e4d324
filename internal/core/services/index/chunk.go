package index

// DefaultChunkSize is the number of runes per embedded chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the number of runes neighbouring chunks share.
const DefaultChunkOverlap = 200

// DefaultMaxChunks caps the chunks embedded for one turn. Text past the last
// chunk is not embedded.
const DefaultMaxChunks = 8

// Chunk is a window of a turn's text.
type Chunk struct {
	Text string

	// Start is the byte offset of Text within the turn.
	Start int
}

// Chunker splits turn text into fixed-size overlapping windows so long
// turns are embedded piecewise instead of being cut off.
type Chunker struct {
	size    int
	overlap int
	max     int
}

// ChunkOption configures a Chunker.
type ChunkOption func(*Chunker)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) ChunkOption {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithChunkOverlap sets the overlap between chunks in runes.
func WithChunkOverlap(overlap int) ChunkOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMaxChunks caps the number of chunks per turn.
func WithMaxChunks(n int) ChunkOption {
	return func(c *Chunker) {
		if n > 0 {
			c.max = n
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...ChunkOption) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
		max:     DefaultMaxChunks,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave the window room to advance.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split cuts text into chunks. Empty text produces no chunks; text shorter
// than one chunk produces exactly one.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	offsets := make([]int, 0, len(text))
	for i := range text {
		offsets = append(offsets, i)
	}
	n := len(offsets)
	step := c.size - c.overlap

	chunks := make([]Chunk, 0, min(c.max, n/step+1))
	for start := 0; start < n && len(chunks) < c.max; start += step {
		end := start + c.size
		e := len(text)
		if end < n {
			e = offsets[end]
		}
		chunks = append(chunks, Chunk{Text: text[offsets[start]:e], Start: offsets[start]})
		if end >= n {
			break
		}
	}
	return chunks
}
