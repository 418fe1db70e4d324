package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown export format or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// Search Errors.

	// ErrInvalidPattern indicates a regex query failed to compile.
	// The query is not executed and the index is left untouched.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrModeUnavailable indicates the requested search mode cannot run.
	// Semantic mode reports this when no embedding capability is present.
	ErrModeUnavailable = errors.New("search mode unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not built.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexStale indicates an index rebuild did not complete.
	// The engine absorbs it and keeps serving the previous index.
	ErrIndexStale = errors.New("index stale")

	// Embedding Errors.

	// ErrRateLimited indicates the embedding provider's rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoConversations indicates no conversation logs were discovered.
	ErrNoConversations = errors.New("no conversations found")
)
