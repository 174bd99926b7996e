// Package result holds search hits shared by the search repository and use cases.
package result

import "github.com/kailas-cloud/pickperfect/internal/domain/product"

// Hit is one matched product. Distance is the KNN distance for vector
// queries (lower is closer) and zero otherwise.
type Hit struct {
	Product  product.Product
	Distance float64
}

// Products unwraps hits in order.
func Products(hits []Hit) []product.Product {
	out := make([]product.Product, len(hits))
	for i := range hits {
		out[i] = hits[i].Product
	}
	return out
}
