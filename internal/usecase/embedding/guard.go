package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

// GuardConfig tunes the protections placed in front of the provider.
type GuardConfig struct {
	Provider   string
	Model      string
	Dimensions int

	Timeout    time.Duration // per call, includes limiter wait
	RatePerSec float64       // 0 disables the limiter
	Burst      int

	FailureThreshold uint32 // consecutive failures before the breaker opens
	OpenTimeout      time.Duration
}

// GuardedEmbedder wraps Embedder with a blank-input short circuit, a rate
// limiter, a circuit breaker, a per-call timeout and a dimension check.
// Token metrics are recorded in transport/openai.
type GuardedEmbedder struct {
	inner   domain.Embedder
	cfg     GuardConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[domain.EmbeddingResult]
	logger  *zap.Logger
}

// NewGuardedEmbedder wraps an embedder with the configured guards.
func NewGuardedEmbedder(inner domain.Embedder, cfg GuardConfig, logger *zap.Logger) *GuardedEmbedder {
	g := &GuardedEmbedder{
		inner:  inner,
		cfg:    cfg,
		logger: logger,
	}

	if cfg.RatePerSec > 0 {
		burst := max(cfg.Burst, 1)
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	g.breaker = gobreaker.NewCircuitBreaker[domain.EmbeddingResult](gobreaker.Settings{
		Name:        "embedding-" + cfg.Provider,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.Set(breakerStateValue(to))
			logger.Warn("Embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return g
}

// Embed implements domain.Embedder.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		metrics.EmbeddingGuardTotal.WithLabelValues("blank").Inc()
		return domain.EmbeddingResult{Embedding: domain.ZeroVector(g.cfg.Dimensions)}, nil
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			metrics.EmbeddingGuardTotal.WithLabelValues("rate_limited").Inc()
			return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	start := time.Now()

	result, err := g.breaker.Execute(func() (domain.EmbeddingResult, error) {
		res, err := g.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		if g.cfg.Dimensions > 0 && len(res.Embedding) != g.cfg.Dimensions {
			return domain.EmbeddingResult{}, fmt.Errorf("%w: provider returned %d, expected %d",
				domain.ErrVectorDimMismatch, len(res.Embedding), g.cfg.Dimensions)
		}
		return res, nil
	})

	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.EmbeddingGuardTotal.WithLabelValues("breaker_open").Inc()
			return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		g.logger.Error("Embedding request failed",
			zap.String("provider", g.cfg.Provider),
			zap.String("model", g.cfg.Model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	g.logger.Debug("Embedding request completed",
		zap.String("provider", g.cfg.Provider),
		zap.String("model", g.cfg.Model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// State reports the breaker state.
func (g *GuardedEmbedder) State() gobreaker.State {
	return g.breaker.State()
}

// HealthCheck fails fast while the breaker is open, otherwise asks the
// wrapped provider when it can report its own health.
func (g *GuardedEmbedder) HealthCheck(ctx context.Context) error {
	if g.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit breaker open", domain.ErrEmbeddingUnavailable)
	}
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
