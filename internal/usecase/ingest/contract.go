package ingest

import (
	"context"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// Stream is one consumer's view of the product stream.
type Stream interface {
	EnsureGroup(ctx context.Context) error
	ReadNew(ctx context.Context) ([]db.StreamEntry, error)
	ReadPending(ctx context.Context) ([]db.StreamEntry, error)
	Ack(ctx context.Context, ids ...string) error
	DeadLetter(ctx context.Context, entry db.StreamEntry, cause error, attempts int) error
}

// IndexEnsurer creates the product index if it is missing.
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context) (created bool, err error)
}

// ProductWriter stores enriched products.
type ProductWriter interface {
	Put(ctx context.Context, p *domprod.Product) (created bool, err error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
