package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means queries still answer but embedding or the index is unavailable.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentStore     = "store"
	ComponentEmbedding = "embedding"
	ComponentIndex     = "index"
)

var errIndexMissing = errors.New("product index does not exist")

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	index     IndexChecker
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Service. embedding and index can be nil.
func New(store StorePinger, embedding EmbeddingChecker, index IndexChecker, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		embedding: embedding,
		index:     index,
		timeout:   DefaultCheckTimeout,
		logger:    logger,
	}
}

// Check runs component checks concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]func(context.Context) error{ComponentStore: s.store.Ping}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.embedding.HealthCheck
	}
	if s.index != nil {
		checks[ComponentIndex] = s.checkIndex
	}

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := check(cctx); err != nil {
				s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
				res = CheckError
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: aggregate(results), Checks: results}
}

func (s *Service) checkIndex(ctx context.Context) error {
	ok, err := s.index.Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errIndexMissing
	}
	return nil
}

func aggregate(results map[string]CheckResult) Status {
	if results[ComponentStore] == CheckError {
		return Unhealthy
	}
	for _, v := range results {
		if v == CheckError {
			return Degraded
		}
	}
	return Healthy
}
