// Package ratelimit wraps an embedding service with a token bucket so
// index builds do not flood remote providers.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum burst size. Defaults to 1.
	Burst int

	// Retries is how often a rate-limited call is retried. Defaults to 2.
	Retries int

	// Backoff is the pause after the provider reports a rate limit.
	// Defaults to 2s.
	Backoff time.Duration
}

// Service limits calls to an underlying embedding service. A call rejected
// with domain.ErrRateLimited pauses every caller for Backoff before retrying.
type Service struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
	retries int
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns next unchanged when RequestsPerSecond is not positive.
func Wrap(next driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if next == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}
	return New(next, cfg)
}

// New creates a rate-limited service.
func New(next driven.EmbeddingService, cfg Config) *Service {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &Service{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

// wait blocks for any backoff period and then for a token.
func (s *Service) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return s.limiter.Wait(ctx)
}

func (s *Service) recordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = time.Now().Add(s.backoff)
}

func do[T any](ctx context.Context, s *Service, call func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return zero, err
		}
		out, err := call()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) || attempt >= s.retries {
			return out, err
		}
		logger.Debug("embedding provider rate limited, retrying in %s (attempt %d/%d)", s.backoff, attempt+1, s.retries)
		s.recordRateLimit()
	}
}

// Embed implements driven.EmbeddingService.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return do(ctx, s, func() ([]float32, error) { return s.next.Embed(ctx, text) })
}

// EmbedBatch implements driven.EmbeddingService.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return do(ctx, s, func() ([][]float32, error) { return s.next.EmbedBatch(ctx, texts) })
}

// Dimensions implements driven.EmbeddingService.
func (s *Service) Dimensions() int { return s.next.Dimensions() }

// ModelName implements driven.EmbeddingService.
func (s *Service) ModelName() string { return s.next.ModelName() }

// Ping is not rate limited.
func (s *Service) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close implements driven.EmbeddingService.
func (s *Service) Close() error { return s.next.Close() }
