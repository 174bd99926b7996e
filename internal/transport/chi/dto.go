package chi

import (
	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	searchuc "github.com/kailas-cloud/pickperfect/internal/usecase/search"
)

// SearchRequest is the body of POST /products/search. Every field is optional.
type SearchRequest struct {
	Query      string     `json:"query"`
	PriceMin   *float64   `json:"price_min"`
	PriceMax   *float64   `json:"price_max"`
	Categories []string   `json:"categories"`
	Brands     []string   `json:"brands"`
	MinRating  *float64   `json:"min_rating"`
	InStock    *bool      `json:"in_stock"`
	Near       *NearQuery `json:"near"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
}

// NearQuery is a geo radius in a search request.
type NearQuery struct {
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	RadiusKm float64 `json:"radius_km"`
}

func (r *SearchRequest) criteria() searchuc.Criteria {
	c := searchuc.Criteria{
		Text:       r.Query,
		PriceMin:   r.PriceMin,
		PriceMax:   r.PriceMax,
		Categories: r.Categories,
		Brands:     r.Brands,
		MinRating:  r.MinRating,
		InStock:    r.InStock,
		Offset:     r.Offset,
		Limit:      r.Limit,
	}
	if r.Near != nil {
		c.Near = &searchuc.GeoFilter{Lon: r.Near.Lon, Lat: r.Near.Lat, RadiusKm: r.Near.RadiusKm}
	}
	return c
}

// SemanticRequest is the body of POST /products/semantic.
type SemanticRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// FilterRequest is the body of POST /products/filter.
type FilterRequest struct {
	Brands     []string  `json:"brands"`
	Categories []string  `json:"categories"`
	PriceRange []float64 `json:"priceRange"`
	Rating     float64   `json:"rating"`
}

func (r *FilterRequest) toDomain() searchuc.FilterRequest {
	return searchuc.FilterRequest{
		Brands:     r.Brands,
		Categories: r.Categories,
		PriceRange: r.PriceRange,
		Rating:     r.Rating,
	}
}

// EventRequest is the body of POST /events. The server stamps the time.
type EventRequest struct {
	ProductID string `json:"product_id"`
	EventType string `json:"event_type"`
	UserID    string `json:"user_id"`
	Category  string `json:"category"`
}

func (r *EventRequest) toDomain() *domevent.Event {
	return &domevent.Event{
		ProductID: r.ProductID,
		Type:      domevent.Type(r.EventType),
		UserID:    r.UserID,
		Category:  r.Category,
	}
}

// ProductListResponse wraps every product list.
type ProductListResponse struct {
	Products []domprod.Product `json:"products"`
}

// CategoryListResponse lists category names by descending popularity.
type CategoryListResponse struct {
	Categories []string `json:"categories"`
}

// MessageResponse acknowledges a write.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func categoryNames(members []db.ScoredMember) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Member
	}
	return out
}

func productList(products []domprod.Product) ProductListResponse {
	if products == nil {
		products = []domprod.Product{}
	}
	return ProductListResponse{Products: products}
}
