package recommend

import (
	"context"

	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// HistoryReader reads a user's most recent events, newest first.
type HistoryReader interface {
	History(ctx context.Context, userID string, limit int) ([]domevent.Event, error)
}

// EmbeddingReader loads stored product embeddings by id. Missing products
// are absent from the result.
type EmbeddingReader interface {
	Embeddings(ctx context.Context, ids []string) (map[string][]float32, error)
}

// Searcher is the slice of the query composer the engine needs.
type Searcher interface {
	VectorSearch(ctx context.Context, vec []float32, k int) []domprod.Product
	Trending(ctx context.Context, n int) []domprod.Product
}
