// Package query models composite catalog queries as a conjunction of typed
// predicates plus an optional KNN stage.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
)

// MaxPredicates bounds the number of filter clauses in one query.
const MaxPredicates = 32

// Predicate is a single filter clause. Implementations: TextMatch, Range,
// TagIn, GeoRadius.
type Predicate interface {
	isPredicate()
}

// TextMatch matches a free-text term against TEXT fields, or an exact
// value against TAG fields. The alternatives are OR-ed together.
type TextMatch struct {
	Term       string
	TextFields []string
	TagFields  []string
}

// Range is an inclusive numeric interval. A nil bound is open.
type Range struct {
	Field string
	Min   *float64
	Max   *float64
}

// TagIn matches any of Values on a TAG field.
type TagIn struct {
	Field  string
	Values []string
}

// GeoRadius matches points within RadiusKm of (Lon, Lat).
type GeoRadius struct {
	Field    string
	Lon      float64
	Lat      float64
	RadiusKm float64
}

// VectorKNN ranks the filtered set by vector distance and keeps the K nearest.
type VectorKNN struct {
	Field      string
	Vector     []float32
	K          int
	ScoreAlias string
}

func (TextMatch) isPredicate() {}
func (Range) isPredicate()     {}
func (TagIn) isPredicate()     {}
func (GeoRadius) isPredicate() {}

// Query is an AND of predicates with optional KNN ranking and pagination.
type Query struct {
	predicates []Predicate
	knn        *VectorKNN
	offset     int
	limit      int
}

// Predicates returns the filter clauses in insertion order.
func (q Query) Predicates() []Predicate { return q.predicates }

// KNN returns the vector stage, or nil for a pure filter query.
func (q Query) KNN() *VectorKNN { return q.knn }

// Offset returns the page offset.
func (q Query) Offset() int { return q.offset }

// Limit returns the page size. Zero means the store default.
func (q Query) Limit() int { return q.limit }

// IsEmpty reports whether the query has no filter clauses.
func (q Query) IsEmpty() bool { return len(q.predicates) == 0 }

// Builder composes a Query. Invalid clauses surface from Build.
type Builder struct {
	q    Query
	errs []error
}

// New starts an empty query.
func New() *Builder {
	return &Builder{}
}

// Text adds a TextMatch clause. A blank term is ignored.
func (b *Builder) Text(term string, textFields, tagFields []string) *Builder {
	term = strings.TrimSpace(term)
	if term == "" {
		return b
	}
	if len(textFields) == 0 && len(tagFields) == 0 {
		b.errs = append(b.errs, errors.New("text match needs at least one field"))
		return b
	}
	b.q.predicates = append(b.q.predicates, TextMatch{Term: term, TextFields: textFields, TagFields: tagFields})
	return b
}

// Range adds an inclusive numeric interval. Both bounds nil is ignored.
func (b *Builder) Range(field string, minVal, maxVal *float64) *Builder {
	if minVal == nil && maxVal == nil {
		return b
	}
	if field == "" {
		b.errs = append(b.errs, errors.New("range field is required"))
		return b
	}
	if minVal != nil && maxVal != nil && *minVal > *maxVal {
		b.errs = append(b.errs, fmt.Errorf("range on %q: min %g exceeds max %g", field, *minVal, *maxVal))
		return b
	}
	b.q.predicates = append(b.q.predicates, Range{Field: field, Min: minVal, Max: maxVal})
	return b
}

// TagIn adds a tag membership clause. Blank values are dropped; no values is ignored.
func (b *Builder) TagIn(field string, values ...string) *Builder {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return b
	}
	if field == "" {
		b.errs = append(b.errs, errors.New("tag field is required"))
		return b
	}
	b.q.predicates = append(b.q.predicates, TagIn{Field: field, Values: kept})
	return b
}

// Geo adds a radius clause around (lon, lat).
func (b *Builder) Geo(field string, lon, lat, radiusKm float64) *Builder {
	if field == "" {
		b.errs = append(b.errs, errors.New("geo field is required"))
		return b
	}
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if radiusKm <= 0 {
		b.errs = append(b.errs, fmt.Errorf("geo radius must be positive, got %g", radiusKm))
		return b
	}
	b.q.predicates = append(b.q.predicates, GeoRadius{Field: field, Lon: lon, Lat: lat, RadiusKm: radiusKm})
	return b
}

// KNN sets the vector stage. Calling it twice is an error.
func (b *Builder) KNN(field string, vec []float32, k int, scoreAlias string) *Builder {
	switch {
	case b.q.knn != nil:
		b.errs = append(b.errs, errors.New("query already has a KNN stage"))
	case field == "":
		b.errs = append(b.errs, errors.New("knn field is required"))
	case len(vec) == 0:
		b.errs = append(b.errs, errors.New("knn vector is required"))
	case k <= 0:
		b.errs = append(b.errs, fmt.Errorf("knn k must be positive, got %d", k))
	default:
		if scoreAlias == "" {
			scoreAlias = "vector_score"
		}
		b.q.knn = &VectorKNN{Field: field, Vector: vec, K: k, ScoreAlias: scoreAlias}
	}
	return b
}

// Page sets offset and limit.
func (b *Builder) Page(offset, limit int) *Builder {
	if offset < 0 || limit < 0 {
		b.errs = append(b.errs, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit))
		return b
	}
	b.q.offset = offset
	b.q.limit = limit
	return b
}

// Build returns the query or every accumulated clause error.
func (b *Builder) Build() (Query, error) {
	if len(b.q.predicates) > MaxPredicates {
		b.errs = append(b.errs, fmt.Errorf("too many predicates (max %d)", MaxPredicates))
	}
	if len(b.errs) > 0 {
		return Query{}, errors.Join(b.errs...)
	}
	return b.q, nil
}
