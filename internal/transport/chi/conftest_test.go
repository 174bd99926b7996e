package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	healthuc "github.com/kailas-cloud/pickperfect/internal/usecase/health"
	searchuc "github.com/kailas-cloud/pickperfect/internal/usecase/search"
)

// --- Mocks ---

type mockProducts struct {
	searchFn   func(ctx context.Context, c searchuc.Criteria) []domprod.Product
	semanticFn func(ctx context.Context, text string, k int) []domprod.Product
	nearbyFn   func(ctx context.Context, lon, lat, radiusKm float64) []domprod.Product
	filterFn   func(ctx context.Context, f searchuc.FilterRequest) []domprod.Product
	trendingFn func(ctx context.Context, n int) []domprod.Product
}

func (m *mockProducts) Search(ctx context.Context, c searchuc.Criteria) []domprod.Product {
	if m.searchFn != nil {
		return m.searchFn(ctx, c)
	}
	return nil
}

func (m *mockProducts) SemanticSearch(ctx context.Context, text string, k int) []domprod.Product {
	if m.semanticFn != nil {
		return m.semanticFn(ctx, text, k)
	}
	return nil
}

func (m *mockProducts) Nearby(ctx context.Context, lon, lat, radiusKm float64) []domprod.Product {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, lon, lat, radiusKm)
	}
	return nil
}

func (m *mockProducts) Filter(ctx context.Context, f searchuc.FilterRequest) []domprod.Product {
	if m.filterFn != nil {
		return m.filterFn(ctx, f)
	}
	return nil
}

func (m *mockProducts) Trending(ctx context.Context, n int) []domprod.Product {
	if m.trendingFn != nil {
		return m.trendingFn(ctx, n)
	}
	return nil
}

type mockRecommender struct {
	recommendFn func(ctx context.Context, userID string) []domprod.Product
}

func (m *mockRecommender) Recommend(ctx context.Context, userID string) []domprod.Product {
	if m.recommendFn != nil {
		return m.recommendFn(ctx, userID)
	}
	return nil
}

type mockEvents struct {
	trackFn      func(ctx context.Context, e *domevent.Event) error
	categoriesFn func(ctx context.Context, n int) ([]db.ScoredMember, error)
}

func (m *mockEvents) Track(ctx context.Context, e *domevent.Event) error {
	if m.trackFn != nil {
		return m.trackFn(ctx, e)
	}
	return nil
}

func (m *mockEvents) TrendingCategories(ctx context.Context, n int) ([]db.ScoredMember, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(ctx, n)
	}
	return nil, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type testServer struct {
	handler  http.Handler
	products *mockProducts
	recs     *mockRecommender
	events   *mockEvents
	health   *mockHealth
}

func testConfig() Config {
	return Config{
		RatingMax:       5,
		MaxPageSize:     100,
		DefaultTopN:     10,
		NearbyRadiusKm:  50,
		DefaultLocation: geo.Point{Lon: 77.209, Lat: 28.6139},
	}
}

func newTestServer(cfg Config) *testServer {
	ts := &testServer{
		products: &mockProducts{},
		recs:     &mockRecommender{},
		events:   &mockEvents{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentStore: healthuc.CheckOK},
		}},
	}
	ts.handler = NewServer(ts.products, ts.recs, ts.events, ts.health, cfg, zap.NewNop()).Routes()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func productsOf(ids ...string) []domprod.Product {
	out := make([]domprod.Product, len(ids))
	for i, id := range ids {
		out[i] = domprod.Product{ID: id, Name: "product " + id, Features: []string{}}
	}
	return out
}

func responseIDs(resp ProductListResponse) []string {
	out := make([]string, len(resp.Products))
	for i, p := range resp.Products {
		out[i] = p.ID
	}
	return out
}
