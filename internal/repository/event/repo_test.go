package event

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pushCappedFn func(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error
	rangeFn      func(ctx context.Context, key string, start, stop int) ([]string, error)
	zincrByFn    func(ctx context.Context, key, member string, incr float64) error
	zrevRangeFn  func(ctx context.Context, key string, start, stop int) ([]db.ScoredMember, error)
}

func (m *mockStore) PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error {
	if m.pushCappedFn != nil {
		return m.pushCappedFn(ctx, key, value, maxLen, ttl)
	}
	return nil
}

func (m *mockStore) Range(ctx context.Context, key string, start, stop int) ([]string, error) {
	if m.rangeFn != nil {
		return m.rangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func (m *mockStore) ZIncrBy(ctx context.Context, key, member string, incr float64) error {
	if m.zincrByFn != nil {
		return m.zincrByFn(ctx, key, member, incr)
	}
	return nil
}

func (m *mockStore) ZRevRange(ctx context.Context, key string, start, stop int) ([]db.ScoredMember, error) {
	if m.zrevRangeFn != nil {
		return m.zrevRangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, Config{MaxLen: 101, TTL: 72 * time.Hour}), ms
}

func TestAppend(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKey, gotValue string
	var gotMax int
	var gotTTL time.Duration
	ms.pushCappedFn = func(_ context.Context, key, value string, maxLen int, ttl time.Duration) error {
		gotKey, gotValue, gotMax, gotTTL = key, value, maxLen, ttl
		return nil
	}

	e := &domevent.Event{ProductID: "p1", Type: domevent.Click, Timestamp: 1700000000.5, UserID: "u1", Category: "Phones"}
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "user_events:u1" || gotMax != 101 || gotTTL != 72*time.Hour {
		t.Errorf("key=%q max=%d ttl=%v", gotKey, gotMax, gotTTL)
	}
	if !strings.Contains(gotValue, `"event_type":"click"`) || !strings.Contains(gotValue, `"product_id":"p1"`) {
		t.Errorf("value = %s", gotValue)
	}
}

func TestAppend_RequiresUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	if err := repo.Append(context.Background(), &domevent.Event{ProductID: "p1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHistory_SkipsMalformed(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.rangeFn = func(_ context.Context, key string, start, stop int) ([]string, error) {
		if key != "user_events:u1" || start != 0 || stop != 100 {
			t.Errorf("key=%q start=%d stop=%d", key, start, stop)
		}
		return []string{
			`{"product_id":"p2","event_type":"add_to_cart","timestamp":1700000100,"category":"Phones"}`,
			`garbage`,
			`{"product_id":"p1","event_type":"click","timestamp":1700000000,"category":"Phones"}`,
		}, nil
	}

	events, err := repo.History(context.Background(), "u1", 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].ProductID != "p2" || events[0].Type != domevent.AddToCart {
		t.Errorf("events = %+v", events)
	}
}

func TestIncrTrending(t *testing.T) {
	repo, ms := newTestRepo(t)

	incrs := map[string]string{}
	ms.zincrByFn = func(_ context.Context, key, member string, incr float64) error {
		if incr != 1 {
			t.Errorf("incr = %v", incr)
		}
		incrs[key] = member
		return nil
	}

	if err := repo.IncrTrending(context.Background(), "p1", "Phones"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incrs["trending_products"] != "p1" || incrs["trending_categories"] != "Phones" {
		t.Errorf("incrs = %v", incrs)
	}
}

func TestIncrTrending_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.zincrByFn = func(context.Context, string, string, float64) error {
		return errors.New("boom")
	}
	if err := repo.IncrTrending(context.Background(), "p1", "Phones"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTopProducts(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.zrevRangeFn = func(_ context.Context, key string, start, stop int) ([]db.ScoredMember, error) {
		if key != "trending_products" || start != 0 || stop != 4 {
			t.Errorf("key=%q start=%d stop=%d", key, start, stop)
		}
		return []db.ScoredMember{{Member: "p1", Score: 3}}, nil
	}

	got, err := repo.TopProducts(context.Background(), 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v", got, err)
	}

	if got, _ := repo.TopCategories(context.Background(), 0); got != nil {
		t.Errorf("n=0 should return nil, got %v", got)
	}
}
