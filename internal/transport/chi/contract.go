package chi

import (
	"context"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	healthuc "github.com/kailas-cloud/pickperfect/internal/usecase/health"
	searchuc "github.com/kailas-cloud/pickperfect/internal/usecase/search"
)

// ProductSearcher serves the catalog query endpoints.
type ProductSearcher interface {
	Search(ctx context.Context, c searchuc.Criteria) []domprod.Product
	SemanticSearch(ctx context.Context, text string, k int) []domprod.Product
	Nearby(ctx context.Context, lon, lat, radiusKm float64) []domprod.Product
	Filter(ctx context.Context, f searchuc.FilterRequest) []domprod.Product
	Trending(ctx context.Context, n int) []domprod.Product
}

// Recommender serves personalized recommendations.
type Recommender interface {
	Recommend(ctx context.Context, userID string) []domprod.Product
}

// EventTracker records interactions and reads category popularity.
type EventTracker interface {
	Track(ctx context.Context, e *domevent.Event) error
	TrendingCategories(ctx context.Context, n int) ([]db.ScoredMember, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
