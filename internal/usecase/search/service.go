package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/query"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/result"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
)

// Config tunes paging and the nearby fallback.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	RatingMax       float64
	NearbyRadiusKm  float64
	FallbackCenter  geo.Point
	SemanticK       int
}

// DefaultConfig returns the stock search tuning.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		RatingMax:       5,
		NearbyRadiusKm:  50,
		FallbackCenter:  geo.Point{Lon: 77.209, Lat: 28.6139},
		SemanticK:       10,
	}
}

// Service composes catalog queries. Store failures are logged and surface
// as empty lists.
type Service struct {
	repo     Repository
	products ProductReader
	trending TrendingReader
	embed    Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service.
func New(
	repo Repository, products ProductReader, trending TrendingReader, embed Embedder,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		products: products,
		trending: trending,
		embed:    embed,
		cfg:      cfg,
		logger:   logger,
	}
}

// Config returns the service tuning.
func (s *Service) Config() Config {
	return s.cfg
}

// Search runs one composite query built from every supplied predicate.
// No predicate matches all products.
func (s *Service) Search(ctx context.Context, c Criteria) []domprod.Product {
	hits, err := s.search(ctx, c)
	if err != nil {
		s.fail("filter", err)
		return []domprod.Product{}
	}
	s.ok("filter", len(hits))
	return result.Products(hits)
}

func (s *Service) search(ctx context.Context, c Criteria) ([]result.Hit, error) {
	q, err := s.buildQuery(c)
	if err != nil {
		return nil, err
	}
	hits, _, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// buildQuery joins the supplied predicates with AND.
func (s *Service) buildQuery(c Criteria) (query.Query, error) {
	b := query.New().
		Text(c.Text, domprod.TextFields, []string{domprod.FieldBrand}).
		Range(domprod.FieldPrice, c.PriceMin, c.PriceMax).
		TagIn(domprod.FieldCategory, c.Categories...).
		TagIn(domprod.FieldBrand, c.Brands...)

	if c.MinRating != nil {
		ratingMax := s.cfg.RatingMax
		b = b.Range(domprod.FieldRating, c.MinRating, &ratingMax)
	}
	if c.InStock != nil {
		b = b.TagIn(domprod.FieldInStock, strconv.FormatBool(*c.InStock))
	}
	if c.Near != nil {
		b = b.Geo(domprod.FieldLocation, c.Near.Lon, c.Near.Lat, c.Near.RadiusKm)
	}

	q, err := b.Page(c.Offset, s.pageSize(c.Limit)).Build()
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return q, nil
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPageSize
	}
	return min(limit, s.cfg.MaxPageSize)
}

// VectorSearch returns the k nearest products by ascending distance.
func (s *Service) VectorSearch(ctx context.Context, vec []float32, k int) []domprod.Product {
	hits, err := s.vectorSearch(ctx, vec, k)
	if err != nil {
		s.fail("vector", err)
		return []domprod.Product{}
	}
	s.ok("vector", len(hits))
	return result.Products(hits)
}

func (s *Service) vectorSearch(ctx context.Context, vec []float32, k int) ([]result.Hit, error) {
	q, err := query.New().KNN(domprod.FieldEmbedding, vec, k, "").Page(0, k).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	hits, _, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	slices.SortStableFunc(hits, func(a, b result.Hit) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SemanticSearch embeds free text and runs VectorSearch. Blank text yields
// an empty list without an embedding call.
func (s *Service) SemanticSearch(ctx context.Context, text string, k int) []domprod.Product {
	if strings.TrimSpace(text) == "" {
		return []domprod.Product{}
	}
	if k <= 0 {
		k = s.cfg.SemanticK
	}
	k = min(k, s.cfg.MaxPageSize)

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		s.fail("semantic", fmt.Errorf("vectorize query: %w", err))
		return []domprod.Product{}
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	hits, err := s.vectorSearch(ctx, emb.Embedding, k)
	if err != nil {
		s.fail("semantic", err)
		return []domprod.Product{}
	}
	s.ok("semantic", len(hits))
	return result.Products(hits)
}

// Nearby returns products whose warehouse lies within radiusKm of
// (lon, lat), closest first. When nothing is found it retries around the
// fallback center.
func (s *Service) Nearby(ctx context.Context, lon, lat, radiusKm float64) []domprod.Product {
	if radiusKm <= 0 {
		radiusKm = s.cfg.NearbyRadiusKm
	}

	center := geo.Point{Lon: lon, Lat: lat}
	products, err := s.nearby(ctx, center, radiusKm)
	if err != nil {
		s.fail("nearby", err)
		return []domprod.Product{}
	}
	if len(products) == 0 && center != s.cfg.FallbackCenter {
		s.logger.Debug("No products nearby, using fallback center",
			zap.Stringer("center", center), zap.Stringer("fallback", s.cfg.FallbackCenter))
		products, err = s.nearby(ctx, s.cfg.FallbackCenter, radiusKm)
		if err != nil {
			s.fail("nearby", err)
			return []domprod.Product{}
		}
	}
	s.ok("nearby", len(products))
	return products
}

func (s *Service) nearby(ctx context.Context, center geo.Point, radiusKm float64) ([]domprod.Product, error) {
	hits, err := s.search(ctx, Criteria{Near: &GeoFilter{Lon: center.Lon, Lat: center.Lat, RadiusKm: radiusKm}})
	if err != nil {
		return nil, err
	}
	products := result.Products(hits)
	sortByDistance(products, center)
	return products, nil
}

// sortByDistance orders products by great-circle distance from center.
// Products without a location go last.
func sortByDistance(products []domprod.Product, center geo.Point) {
	slices.SortStableFunc(products, func(a, b domprod.Product) int {
		switch {
		case a.Geolocation == nil && b.Geolocation == nil:
			return 0
		case a.Geolocation == nil:
			return 1
		case b.Geolocation == nil:
			return -1
		}
		return cmp.Compare(geo.HaversineKm(center, *a.Geolocation), geo.HaversineKm(center, *b.Geolocation))
	})
}

// Filter maps the filter panel onto Search.
func (s *Service) Filter(ctx context.Context, f FilterRequest) []domprod.Product {
	return s.Search(ctx, f.Criteria())
}

// Trending returns the n most interacted-with products. Ids without a
// document are skipped.
func (s *Service) Trending(ctx context.Context, n int) []domprod.Product {
	if n <= 0 {
		return []domprod.Product{}
	}
	top, err := s.trending.TopProducts(ctx, n)
	if err != nil {
		s.fail("trending", err)
		return []domprod.Product{}
	}
	if len(top) == 0 {
		s.ok("trending", 0)
		return []domprod.Product{}
	}

	ids := make([]string, len(top))
	for i, m := range top {
		ids[i] = m.Member
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		s.fail("trending", err)
		return []domprod.Product{}
	}

	out := make([]domprod.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p.WithoutEmbedding())
	}
	s.ok("trending", len(out))
	return out
}

func (s *Service) ok(kind string, n int) {
	outcome := "ok"
	if n == 0 {
		outcome = "empty"
	}
	metrics.SearchQueriesTotal.WithLabelValues(kind, outcome).Inc()
}

func (s *Service) fail(kind string, err error) {
	metrics.SearchQueriesTotal.WithLabelValues(kind, "error").Inc()
	s.logger.Error("Catalog query failed", zap.String("kind", kind), zap.Error(err))
}
