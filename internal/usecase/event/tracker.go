// Package event records user interactions for recommendations and
// trending counters.
package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

// Tracker records user events.
type Tracker struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(repo Repository, logger *zap.Logger) *Tracker {
	return &Tracker{repo: repo, logger: logger, now: time.Now}
}

// Track validates e, stamps it with the current time and records it.
// Anonymous events (no user id) only feed the trending counters.
func (t *Tracker) Track(ctx context.Context, e *domevent.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Stamp(t.now())

	if e.UserID != "" {
		if err := t.repo.Append(ctx, e); err != nil {
			return fmt.Errorf("track event: %w", err)
		}
	}
	if err := t.repo.IncrTrending(ctx, e.ProductID, e.Category); err != nil {
		return fmt.Errorf("track event: %w", err)
	}

	metrics.EventsTrackedTotal.WithLabelValues(typeLabel(e.Type)).Inc()
	t.logger.Debug("Event tracked",
		zap.String("user_id", e.UserID),
		zap.String("product_id", e.ProductID),
		zap.String("event_type", string(e.Type)),
	)
	return nil
}

// TrendingCategories returns the n most interacted-with categories.
func (t *Tracker) TrendingCategories(ctx context.Context, n int) ([]db.ScoredMember, error) {
	members, err := t.repo.TopCategories(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("trending categories: %w", err)
	}
	if members == nil {
		members = []db.ScoredMember{}
	}
	return members, nil
}

// typeLabel bounds metric cardinality to the known event types.
func typeLabel(t domevent.Type) string {
	switch t {
	case domevent.Click, domevent.AddToCart:
		return string(t)
	default:
		return "other"
	}
}
