package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

// Config tunes the pipeline.
type Config struct {
	Dimensions    int
	RatingMax     float64
	Concurrency   int
	MaxAttempts   int
	RetryInterval time.Duration
}

// Pipeline consumes product records from the stream, embeds them and
// writes the enriched documents.
type Pipeline struct {
	stream   Stream
	index    IndexEnsurer
	products ProductWriter
	embed    Embedder
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

// New creates an ingestion pipeline.
func New(
	s Stream, index IndexEnsurer, products ProductWriter, embed Embedder,
	cfg Config, logger *zap.Logger,
) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Pipeline{
		stream:   s,
		index:    index,
		products: products,
		embed:    embed,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		attempts: make(map[string]int),
	}
}

// Setup creates the consumer group and the index. Both are idempotent.
func (p *Pipeline) Setup(ctx context.Context) error {
	if err := p.stream.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("setup stream: %w", err)
	}
	created, err := p.index.EnsureIndex(ctx)
	if err != nil {
		return fmt.Errorf("setup index: %w", err)
	}
	p.logger.Info("Ingestion setup complete", zap.Bool("index_created", created))
	return nil
}

// Run reads batches until ctx is cancelled (nil) or the stream read fails (error).
// Pending entries of this consumer are retried every RetryInterval.
func (p *Pipeline) Run(ctx context.Context) error {
	lastRetry := p.now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.cfg.RetryInterval > 0 && p.now().Sub(lastRetry) >= p.cfg.RetryInterval {
			if err := p.RetryPending(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			lastRetry = p.now()
		}

		entries, err := p.stream.ReadNew(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if len(entries) == 0 {
			continue
		}

		p.ProcessBatch(ctx, entries)
	}
}

// RetryPending re-processes entries delivered to this consumer but never acknowledged.
func (p *Pipeline) RetryPending(ctx context.Context) error {
	entries, err := p.stream.ReadPending(ctx)
	if err != nil {
		return fmt.Errorf("read pending: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	p.logger.Info("Retrying pending entries", zap.Int("count", len(entries)))
	p.ProcessBatch(ctx, entries)
	return nil
}

// ProcessBatch handles entries concurrently. An entry's failure never
// affects the others.
func (p *Pipeline) ProcessBatch(ctx context.Context, entries []db.StreamEntry) {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			p.handle(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) handle(ctx context.Context, entry db.StreamEntry) {
	id, err := p.process(ctx, entry)
	if err == nil {
		p.clearAttempts(entry.ID)
		if ackErr := p.stream.Ack(ctx, entry.ID); ackErr != nil {
			// The document is written; redelivery will overwrite it.
			p.logger.Error("Ack failed", zap.String("entry", entry.ID), zap.Error(ackErr))
			return
		}
		metrics.IngestEntriesTotal.WithLabelValues("indexed").Inc()
		p.logger.Info("Indexed product", zap.String("entry", entry.ID), zap.String("product_id", id))
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Shutdown mid-flight; the entry stays pending.
		return
	}

	attempts := p.recordAttempt(entry.ID)
	if IsPermanent(err) || attempts >= p.cfg.MaxAttempts {
		p.deadLetter(ctx, entry, err, attempts)
		return
	}

	metrics.IngestEntriesTotal.WithLabelValues("retry").Inc()
	p.logger.Warn("Entry failed, will retry",
		zap.String("entry", entry.ID),
		zap.Int("attempt", attempts),
		zap.Int("max_attempts", p.cfg.MaxAttempts),
		zap.Error(err),
	)
}

func (p *Pipeline) deadLetter(ctx context.Context, entry db.StreamEntry, cause error, attempts int) {
	if err := p.stream.DeadLetter(ctx, entry, cause, attempts); err != nil {
		p.logger.Error("Dead-letter failed, entry stays pending",
			zap.String("entry", entry.ID), zap.Error(err))
		return
	}
	if err := p.stream.Ack(ctx, entry.ID); err != nil {
		p.logger.Error("Ack after dead-letter failed", zap.String("entry", entry.ID), zap.Error(err))
		return
	}
	p.clearAttempts(entry.ID)
	metrics.IngestEntriesTotal.WithLabelValues("dead_lettered").Inc()
	p.logger.Warn("Entry dead-lettered",
		zap.String("entry", entry.ID),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
}

// process turns one entry into a stored document and returns the product id.
func (p *Pipeline) process(ctx context.Context, entry db.StreamEntry) (string, error) {
	payload := entry.Fields[domprod.StreamField]
	if strings.TrimSpace(payload) == "" {
		return "", permanent(fmt.Errorf("entry has no %q field", domprod.StreamField))
	}
	raw := []byte(payload)

	var prod domprod.Product
	if err := json.Unmarshal(raw, &prod); err != nil {
		return "", permanent(fmt.Errorf("decode product: %w", err))
	}
	prod.Normalize()
	// Stale vectors in the payload are replaced.
	prod.Embedding = nil

	if err := prod.Validate(domprod.Rules{RatingMax: p.cfg.RatingMax, Dimensions: p.cfg.Dimensions}); err != nil {
		return prod.ID, permanent(err)
	}

	text, err := EmbeddingText(raw)
	if err != nil {
		return prod.ID, permanent(fmt.Errorf("build embedding input: %w", err))
	}

	vec, err := p.vectorize(ctx, text)
	if err != nil {
		return prod.ID, err
	}
	prod.Embedding = vec

	if _, err := p.products.Put(ctx, &prod); err != nil {
		return prod.ID, fmt.Errorf("store product %s: %w", prod.ID, err)
	}
	return prod.ID, nil
}

func (p *Pipeline) vectorize(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ZeroVector(p.cfg.Dimensions), nil
	}
	res, err := p.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embedding) != p.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d",
			domain.ErrVectorDimMismatch, len(res.Embedding), p.cfg.Dimensions)
	}
	return res.Embedding, nil
}

func (p *Pipeline) recordAttempt(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[id]++
	return p.attempts[id]
}

func (p *Pipeline) clearAttempts(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, id)
}
