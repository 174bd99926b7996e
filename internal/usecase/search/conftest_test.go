package search

import (
	"context"
	"os"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/query"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/result"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterCatalogMetrics()
	os.Exit(m.Run())
}

// memoryRepo evaluates filter predicates over an in-memory catalog.
// KNN queries return knnHits as-is.
type memoryRepo struct {
	products []domprod.Product
	knnHits  []result.Hit
	err      error
	queries  []query.Query
}

func (r *memoryRepo) Search(_ context.Context, q query.Query) ([]result.Hit, int, error) {
	r.queries = append(r.queries, q)
	if r.err != nil {
		return nil, 0, r.err
	}
	if q.KNN() != nil {
		return slices.Clone(r.knnHits), len(r.knnHits), nil
	}

	var hits []result.Hit
	for _, p := range r.products {
		if matchesAll(p, q.Predicates()) {
			hits = append(hits, result.Hit{Product: p.WithoutEmbedding()})
		}
	}
	total := len(hits)
	start := min(q.Offset(), len(hits))
	end := len(hits)
	if q.Limit() > 0 {
		end = min(start+q.Limit(), len(hits))
	}
	return hits[start:end], total, nil
}

func (r *memoryRepo) lastQuery(t *testing.T) query.Query {
	t.Helper()
	if len(r.queries) == 0 {
		t.Fatal("no query was issued")
	}
	return r.queries[len(r.queries)-1]
}

func matchesAll(p domprod.Product, preds []query.Predicate) bool {
	for _, pred := range preds {
		if !matches(p, pred) {
			return false
		}
	}
	return true
}

func matches(p domprod.Product, pred query.Predicate) bool {
	switch c := pred.(type) {
	case query.TextMatch:
		term := strings.ToLower(c.Term)
		return strings.Contains(strings.ToLower(p.Name+" "+p.Description+" "+strings.Join(p.Features, " ")), term) ||
			strings.EqualFold(p.Brand, c.Term)
	case query.Range:
		v := numeric(p, c.Field)
		return (c.Min == nil || v >= *c.Min) && (c.Max == nil || v <= *c.Max)
	case query.TagIn:
		return slices.Contains(c.Values, tag(p, c.Field))
	case query.GeoRadius:
		return p.Geolocation != nil &&
			geo.HaversineKm(geo.Point{Lon: c.Lon, Lat: c.Lat}, *p.Geolocation) <= c.RadiusKm
	}
	return false
}

func numeric(p domprod.Product, field string) float64 {
	switch field {
	case domprod.FieldPrice:
		return p.Price
	case domprod.FieldRating:
		return p.Rating
	case domprod.FieldReviews:
		return p.Reviews
	}
	return 0
}

func tag(p domprod.Product, field string) string {
	switch field {
	case domprod.FieldCategory:
		return p.Category
	case domprod.FieldBrand:
		return p.Brand
	case domprod.FieldInStock:
		if p.InStock {
			return "true"
		}
		return "false"
	}
	return ""
}

type mockProducts struct {
	docs map[string]domprod.Product
	err  error
}

func (m *mockProducts) GetMany(_ context.Context, ids []string) ([]domprod.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domprod.Product
	for _, id := range ids {
		if p, ok := m.docs[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockTrending struct {
	top []db.ScoredMember
	err error
}

func (m *mockTrending) TopProducts(_ context.Context, n int) ([]db.ScoredMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.top[:min(n, len(m.top))], nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 3}, nil
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	products *mockProducts
	trending *mockTrending
	embed    *mockEmbedder
}

func newFixture(catalog ...domprod.Product) *fixture {
	f := &fixture{
		repo:     &memoryRepo{products: catalog},
		products: &mockProducts{docs: map[string]domprod.Product{}},
		trending: &mockTrending{},
		embed:    &mockEmbedder{},
	}
	for _, p := range catalog {
		f.products.docs[p.ID] = p
	}
	f.svc = New(f.repo, f.products, f.trending, f.embed, DefaultConfig(), zap.NewNop())
	return f
}

func ids(products []domprod.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }
