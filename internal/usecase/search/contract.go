package search

import (
	"context"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/query"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/result"
)

// Repository runs composed queries against the product index.
type Repository interface {
	Search(ctx context.Context, q query.Query) ([]result.Hit, int, error)
}

// ProductReader loads documents by id.
type ProductReader interface {
	GetMany(ctx context.Context, ids []string) ([]domprod.Product, error)
}

// TrendingReader reads the product popularity counter.
type TrendingReader interface {
	TopProducts(ctx context.Context, n int) ([]db.ScoredMember, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
