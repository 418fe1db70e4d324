package domain

import "time"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderFastEmbed runs ONNX models in-process.
	AIProviderFastEmbed AIProvider = "fastembed"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderFastEmbed:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs on the user's machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderFastEmbed
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderFastEmbed:
		return "FastEmbed (in-process ONNX)"
	default:
		return unknownDescription
	}
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// Mode is the default search mode.
	Mode SearchMode

	// Limit is the default result cap for one-shot searches. Zero is unlimited.
	Limit int

	// Debounce is the quiet period before a live search dispatches.
	Debounce time.Duration

	// SemanticThreshold is the minimum cosine similarity for semantic hits.
	SemanticThreshold float64

	// CaseSensitive disables case folding for exact and regex modes.
	CaseSensitive bool

	// SnippetRadius is the number of runes shown on each side of a match.
	SnippetRadius int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RateLimit caps requests per second to remote providers. Zero disables it.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LogSettings locates the conversation logs.
type LogSettings struct {
	// ProjectsDir is the root scanned for *.jsonl session files.
	ProjectsDir string

	// Detailed includes tool calls, tool results and system entries as turns.
	Detailed bool
}

// ExportSettings holds export defaults.
type ExportSettings struct {
	// Dir is the output directory. Empty selects the first writable fallback.
	Dir string

	// Format is the default export format.
	Format ExportFormat
}

// AppSettings aggregates all application settings.
type AppSettings struct {
	Search    SearchSettings
	Embedding EmbeddingSettings
	Logs      LogSettings
	Export    ExportSettings
}

// Search defaults.
const (
	DefaultDebounce          = 150 * time.Millisecond
	DefaultSemanticThreshold = 0.5
	DefaultSearchLimit       = 20
	DefaultSnippetRadius     = 80
)

// DefaultAppSettings returns settings with sensible defaults.
// Embedding is left unconfigured; semantic mode stays unavailable until the
// user picks a provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: SearchSettings{
			Mode:              SearchModeSmart,
			Limit:             DefaultSearchLimit,
			Debounce:          DefaultDebounce,
			SemanticThreshold: DefaultSemanticThreshold,
			SnippetRadius:     DefaultSnippetRadius,
		},
		Embedding: EmbeddingSettings{},
		Export: ExportSettings{
			Format: ExportFormatMarkdown,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderFastEmbed,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "nomic-embed-text",
		AIProviderOpenAI:    "text-embedding-3-small",
		AIProviderFastEmbed: "BAAI/bge-small-en-v1.5",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// FastEmbed models
		"BAAI/bge-small-en-v1.5":                 384,
		"BAAI/bge-base-en-v1.5":                  768,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
	}
}
