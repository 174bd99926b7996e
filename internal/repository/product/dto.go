package product

import (
	"fmt"

	"github.com/goccy/go-json"

	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// decodeDocument parses a JSON.GET "$" reply, a one-element array.
func decodeDocument(raw []byte) (domprod.Product, bool, error) {
	var docs []domprod.Product
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domprod.Product{}, false, fmt.Errorf("decode product: %w", err)
	}
	if len(docs) == 0 {
		return domprod.Product{}, false, nil
	}
	return docs[0], true, nil
}

// decodeEmbedding parses a JSON.GET "$.embedding" reply: [[...]] when the
// path exists, [] when it does not.
func decodeEmbedding(raw []byte) ([]float32, error) {
	var vecs [][]float32
	if err := json.Unmarshal(raw, &vecs); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
