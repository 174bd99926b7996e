// Package recommend turns a user's recent interactions into a preference
// vector and retrieves the nearest unseen products.
package recommend

import (
	"context"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

// Resolution paths reported in metrics and logs.
const (
	PathPersonalized = "personalized"
	PathTrending     = "trending"
	PathEmpty        = "empty"
)

// Engine computes recommendations. Safe for concurrent use.
type Engine struct {
	history    HistoryReader
	embeddings EmbeddingReader
	search     Searcher
	cfg        domain.RecommendConfig
	dimensions int
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a recommendation engine. dimensions is the stored embedding
// length; vectors of any other length are ignored.
func New(
	history HistoryReader, embeddings EmbeddingReader, search Searcher,
	cfg domain.RecommendConfig, dimensions int, logger *zap.Logger,
) *Engine {
	return &Engine{
		history:    history,
		embeddings: embeddings,
		search:     search,
		cfg:        cfg,
		dimensions: dimensions,
		logger:     logger,
		now:        time.Now,
	}
}

// Recommend returns at most Limit products for userID, excluding every
// product the user interacted with. Without usable history it returns the
// trending list; when no interacted product has an embedding it returns
// an empty list.
func (e *Engine) Recommend(ctx context.Context, userID string) []domprod.Product {
	events, err := e.history.History(ctx, userID, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Error("Failed to read event history", zap.String("user_id", userID), zap.Error(err))
	}

	scores := e.Scores(events)
	if len(scores) == 0 {
		return e.trending(ctx, userID)
	}

	ids := sortedKeys(scores)
	embs, err := e.embeddings.Embeddings(ctx, ids)
	if err != nil {
		e.logger.Error("Failed to load product embeddings", zap.String("user_id", userID), zap.Error(err))
		return e.empty(userID)
	}

	pref := e.Preference(scores, embs)
	if pref == nil {
		return e.empty(userID)
	}

	candidates := e.search.VectorSearch(ctx, pref, e.cfg.Candidates())
	out := make([]domprod.Product, 0, e.cfg.Limit)
	for _, p := range candidates {
		if _, seen := scores[p.ID]; seen {
			continue
		}
		out = append(out, p)
		if len(out) == e.cfg.Limit {
			break
		}
	}

	metrics.RecommendationsTotal.WithLabelValues(PathPersonalized).Inc()
	e.logger.Debug("Recommendations computed",
		zap.String("user_id", userID),
		zap.Int("events", len(events)),
		zap.Int("scored", len(scores)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(out)),
	)
	return out
}

func (e *Engine) trending(ctx context.Context, userID string) []domprod.Product {
	metrics.RecommendationsTotal.WithLabelValues(PathTrending).Inc()
	e.logger.Debug("No usable history, serving trending", zap.String("user_id", userID))
	return e.search.Trending(ctx, e.cfg.Limit)
}

func (e *Engine) empty(userID string) []domprod.Product {
	metrics.RecommendationsTotal.WithLabelValues(PathEmpty).Inc()
	e.logger.Debug("No embeddings for interacted products", zap.String("user_id", userID))
	return []domprod.Product{}
}

// Scores sums base weight times recency per product id. Events without a
// product id are ignored.
func (e *Engine) Scores(events []domevent.Event) map[string]float64 {
	now := e.now()
	scores := make(map[string]float64, len(events))
	for i := range events {
		ev := &events[i]
		if ev.ProductID == "" {
			continue
		}
		age := now.Sub(ev.Time())
		scores[ev.ProductID] += e.BaseWeight(ev.Type) * RecencyWeight(age, e.cfg.DecayRate)
	}
	return scores
}

// BaseWeight returns the configured weight for an interaction type.
func (e *Engine) BaseWeight(t domevent.Type) float64 {
	switch t {
	case domevent.AddToCart:
		return e.cfg.AddToCartWeight
	case domevent.Click:
		return e.cfg.ClickWeight
	default:
		return e.cfg.DefaultWeight
	}
}

// RecencyWeight is exp(-decayRate * hours). Negative ages count as zero.
func RecencyWeight(age time.Duration, decayRate float64) float64 {
	hours := max(age.Hours(), 0)
	return math.Exp(-decayRate * hours)
}

// Preference averages score-weighted embeddings over the products that
// have one. With NormalizePreference the sum is divided by the total score
// instead of the product count. Returns nil when nothing contributes.
func (e *Engine) Preference(scores map[string]float64, embs map[string][]float32) []float32 {
	sum := make([]float64, e.dimensions)
	var n int
	var totalScore float64

	for _, id := range sortedKeys(scores) {
		emb, ok := embs[id]
		if !ok || len(emb) != e.dimensions {
			continue
		}
		score := scores[id]
		for i, v := range emb {
			sum[i] += score * float64(v)
		}
		totalScore += score
		n++
	}
	if n == 0 {
		return nil
	}

	div := float64(n)
	if e.cfg.NormalizePreference && totalScore > 0 {
		div = totalScore
	}
	pref := make([]float32, e.dimensions)
	for i, v := range sum {
		pref[i] = float32(v / div)
	}
	return pref
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
