package search

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
)

// Criteria are the optional predicates of a catalog search. Zero values
// mean "no constraint".
type Criteria struct {
	Text       string
	PriceMin   *float64
	PriceMax   *float64
	Categories []string
	Brands     []string
	MinRating  *float64
	InStock    *bool
	Near       *GeoFilter
	Offset     int
	Limit      int
}

// GeoFilter restricts results to a radius around a point.
type GeoFilter struct {
	Lon      float64
	Lat      float64
	RadiusKm float64
}

// FilterRequest is the storefront filter panel.
type FilterRequest struct {
	Brands     []string
	Categories []string
	PriceRange []float64 // [min, max]; other lengths are ignored
	Rating     float64   // minimum; 0 means any
}

// Validate reports criteria that cannot form a query.
func (c *Criteria) Validate(ratingMax float64) error {
	var errs []error
	if c.PriceMin != nil && c.PriceMax != nil && *c.PriceMin > *c.PriceMax {
		errs = append(errs, fmt.Errorf("price min %g exceeds max %g", *c.PriceMin, *c.PriceMax))
	}
	if c.MinRating != nil && (*c.MinRating < 0 || *c.MinRating > ratingMax) {
		errs = append(errs, fmt.Errorf("min rating must be within [0, %g]", ratingMax))
	}
	if c.Near != nil {
		if err := geo.ValidateCoordinates(c.Near.Lat, c.Near.Lon); err != nil {
			errs = append(errs, err)
		}
		if c.Near.RadiusKm <= 0 {
			errs = append(errs, errors.New("radius must be positive"))
		}
	}
	if c.Offset < 0 || c.Limit < 0 {
		errs = append(errs, errors.New("offset and limit must be non-negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidQuery, errors.Join(errs...))
	}
	return nil
}

// Criteria maps the filter panel onto search criteria.
func (f FilterRequest) Criteria() Criteria {
	c := Criteria{
		Brands:     f.Brands,
		Categories: f.Categories,
	}
	if len(f.PriceRange) == 2 {
		lo, hi := f.PriceRange[0], f.PriceRange[1]
		c.PriceMin, c.PriceMax = &lo, &hi
	}
	if f.Rating > 0 {
		r := f.Rating
		c.MinRating = &r
	}
	return c
}
