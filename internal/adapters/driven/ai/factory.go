// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/fastembed"
	ollamaembed "github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of embedding initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	NewVectorIndex   driven.VectorIndexFactory
	Warnings         []string // Non-fatal issues that left semantic mode unavailable.
}

// SemanticAvailable reports whether semantic search can be offered.
func (r *InitResult) SemanticAvailable() bool {
	return r.EmbeddingService != nil && r.NewVectorIndex != nil
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
}

// Initialise builds the embedding stack from settings. Failures never abort
// startup: they are reported as warnings and semantic mode stays off.
func Initialise(settings *domain.EmbeddingSettings) *InitResult {
	result := &InitResult{}
	if settings == nil || !settings.IsConfigured() {
		return result
	}
	svc, err := CreateAndValidateEmbeddingService(settings)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}
	if svc == nil {
		return result
	}
	result.EmbeddingService = svc
	result.NewVectorIndex = chromem.Factory()
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'recall settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'recall settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use in the settings flow to validate credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Remote providers are wrapped with a rate limiter when settings.RateLimit is set.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return limited(createOllamaEmbedding(settings), settings), nil

	case domain.AIProviderOpenAI:
		svc, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		return limited(svc, settings), nil

	case domain.AIProviderFastEmbed:
		return createFastEmbed(settings)

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

func limited(svc driven.EmbeddingService, settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ratelimit.Wrap(svc, ratelimit.Config{RequestsPerSecond: settings.RateLimit})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createFastEmbed loads an in-process ONNX model. Builds without cgo report
// fastembed.ErrUnavailable.
func createFastEmbed(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := fastembed.NewEmbeddingService(fastembed.Config{Model: settings.Model})
	if err != nil {
		if errors.Is(err, fastembed.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	return svc, nil
}
