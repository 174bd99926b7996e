package catalog

import (
	"fmt"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// BuildIndex returns the composite product index: text, tag, numeric, geo
// and vector fields over JSON documents under the catalog prefix.
func BuildIndex(cat domain.CatalogConfig, vec domain.VectorConfig) (*db.IndexDefinition, error) {
	distance, err := db.ParseDistanceMetric(vec.DistanceMetric)
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}
	algo, err := db.ParseVectorAlgorithm(vec.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}

	b := db.NewIndex(cat.IndexName).
		OnJSON().
		Prefix(cat.KeyPrefix).
		Text("$.name").As(product.FieldName).
		Text("$.description").As(product.FieldDescription).
		Tag("$.brand").As(product.FieldBrand).
		Numeric("$.price").As(product.FieldPrice).
		Numeric("$.rating").As(product.FieldRating).
		Numeric("$.reviews").As(product.FieldReviews).
		Tag("$.category").As(product.FieldCategory).
		Tag("$.inStock").As(product.FieldInStock).
		Text("$.features[*]").As(product.FieldFeatures).
		Geo("$.warehouse_geolocation").As(product.FieldLocation).
		Text("$.image").As(product.FieldImage).NoIndex()

	switch algo {
	case db.VectorHNSW:
		b = b.VectorHNSW("$.embedding", vec.Dimensions, distance, 0, 0)
	default:
		b = b.VectorFlat("$.embedding", vec.Dimensions, distance, 0)
	}

	def, err := b.As(product.FieldEmbedding).Build()
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}
	return def, nil
}
