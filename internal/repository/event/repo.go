package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
)

// Key layout for event logs and trending counters.
const (
	userEventsPrefix      = "user_events:"
	TrendingProductsKey   = "trending_products"
	TrendingCategoriesKey = "trending_categories"
)

// store is the consumer interface for event logs and counters (ISP).
type store interface {
	PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error
	Range(ctx context.Context, key string, start, stop int) ([]string, error)
	ZIncrBy(ctx context.Context, key, member string, incr float64) error
	ZRevRange(ctx context.Context, key string, start, stop int) ([]db.ScoredMember, error)
}

// Config bounds the per-user log.
type Config struct {
	MaxLen int
	TTL    time.Duration
}

// Repo stores user events and trending counters.
type Repo struct {
	store store
	cfg   Config
}

// New creates an event repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// Append prepends e to the user's log, keeping the newest MaxLen events.
func (r *Repo) Append(ctx context.Context, e *domevent.Event) error {
	if e.UserID == "" {
		return errors.New("append event: user id is required")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := userEventsPrefix + e.UserID
	if err := r.store.PushCapped(ctx, key, string(data), r.cfg.MaxLen, r.cfg.TTL); err != nil {
		return fmt.Errorf("push %s: %w", key, err)
	}
	return nil
}

// History returns up to limit most recent events, newest first.
// Entries that fail to decode are skipped.
func (r *Repo) History(ctx context.Context, userID string, limit int) ([]domevent.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := userEventsPrefix + userID
	raws, err := r.store.Range(ctx, key, 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", key, err)
	}

	events := make([]domevent.Event, 0, len(raws))
	for _, raw := range raws {
		var e domevent.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// IncrTrending adds one to the product and category counters.
func (r *Repo) IncrTrending(ctx context.Context, productID, category string) error {
	if err := r.store.ZIncrBy(ctx, TrendingProductsKey, productID, 1); err != nil {
		return fmt.Errorf("incr %s: %w", TrendingProductsKey, err)
	}
	if category == "" {
		return nil
	}
	if err := r.store.ZIncrBy(ctx, TrendingCategoriesKey, category, 1); err != nil {
		return fmt.Errorf("incr %s: %w", TrendingCategoriesKey, err)
	}
	return nil
}

// TopProducts returns the n highest-scored product ids.
func (r *Repo) TopProducts(ctx context.Context, n int) ([]db.ScoredMember, error) {
	return r.top(ctx, TrendingProductsKey, n)
}

// TopCategories returns the n highest-scored categories.
func (r *Repo) TopCategories(ctx context.Context, n int) ([]db.ScoredMember, error) {
	return r.top(ctx, TrendingCategoriesKey, n)
}

func (r *Repo) top(ctx context.Context, key string, n int) ([]db.ScoredMember, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := r.store.ZRevRange(ctx, key, 0, n-1)
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", key, err)
	}
	return members, nil
}
