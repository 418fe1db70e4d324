//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"sync"

	fe "github.com/anush008/fastembed-go"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

var models = map[string]fe.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fe.BGESmallENV15,
	"BAAI/bge-small-en":                      fe.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fe.BGEBaseENV15,
	"BAAI/bge-base-en":                       fe.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fe.AllMiniLML6V2,
}

// EmbeddingService embeds text with a local ONNX model.
type EmbeddingService struct {
	mu        sync.RWMutex
	model     *fe.FlagEmbedding
	name      string
	dims      int
	batchSize int
}

// NewEmbeddingService loads the model, downloading it into CacheDir on
// first use.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	cfg = cfg.withDefaults()
	model, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("fastembed: %w: model %q", domain.ErrUnsupportedType, cfg.Model)
	}
	showProgress := false
	flag, err := fe.NewFlagEmbedding(&fe.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("fastembed: init %s: %w", cfg.Model, err)
	}
	return &EmbeddingService{
		model:     flag,
		name:      cfg.Model,
		dims:      dimensions[cfg.Model],
		batchSize: cfg.BatchSize,
	}, nil
}

// Embed embeds a search query.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, fmt.Errorf("fastembed: %w", domain.ErrEmbeddingUnavailable)
	}
	v, err := s.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed: embed query: %w", err)
	}
	return v, nil
}

// EmbedBatch embeds conversation turns as passages.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, fmt.Errorf("fastembed: %w", domain.ErrEmbeddingUnavailable)
	}
	out, err := s.model.PassageEmbed(texts, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fastembed: embed passages: %w", err)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dims }

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string { return s.name }

// Ping succeeds while the model is loaded.
func (s *EmbeddingService) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return fmt.Errorf("fastembed: %w", domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// Close releases the ONNX session.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return nil
	}
	err := s.model.Destroy()
	s.model = nil
	return err
}
