// Package product defines the catalog document stored in the composite index.
package product

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
)

// Product is a catalog document. Field names match the JSON paths the
// index is built over.
type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Brand       string     `json:"brand"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	Rating      float64    `json:"rating"`
	Reviews     float64    `json:"reviews"`
	InStock     bool       `json:"inStock"`
	Features    []string   `json:"features"`
	Geolocation *geo.Point `json:"warehouse_geolocation,omitempty"`
	Image       string     `json:"image"`
	Embedding   []float32  `json:"embedding,omitempty"`
}

// Rules bounds what Validate accepts.
type Rules struct {
	RatingMax  float64
	Dimensions int
}

// Validate checks a record at the ingestion boundary. Every violation is
// reported, each wrapped in domain.ErrInvalidProduct.
func (p *Product) Validate(r Rules) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidProduct}, args...)...))
	}

	if strings.TrimSpace(p.ID) == "" {
		bad("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		bad("name is required")
	}
	if p.Price < 0 || math.IsNaN(p.Price) {
		bad("price must be non-negative, got %g", p.Price)
	}
	if p.Reviews < 0 || math.IsNaN(p.Reviews) {
		bad("reviews must be non-negative, got %g", p.Reviews)
	}
	if p.Rating < 0 || p.Rating > r.RatingMax || math.IsNaN(p.Rating) {
		bad("rating must be within [0, %g], got %g", r.RatingMax, p.Rating)
	}
	if p.Geolocation != nil {
		if err := p.Geolocation.Validate(); err != nil {
			bad("%v", err)
		}
	}
	if p.Embedding != nil && len(p.Embedding) != r.Dimensions {
		errs = append(errs, fmt.Errorf("%w: %w: embedding has %d values, want %d",
			domain.ErrInvalidProduct, domain.ErrVectorDimMismatch, len(p.Embedding), r.Dimensions))
	}

	return errors.Join(errs...)
}

// Normalize trims identity fields and replaces nil collections so the
// stored document always carries a features array.
func (p *Product) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	if p.Features == nil {
		p.Features = []string{}
	}
}

// WithoutEmbedding returns a copy with the embedding removed.
func (p Product) WithoutEmbedding() Product {
	p.Embedding = nil
	return p
}
