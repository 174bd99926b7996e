package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/query"
	"github.com/kailas-cloud/pickperfect/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo runs composed queries against the product index.
type Repo struct {
	store  store
	cat    domain.CatalogConfig
	logger *zap.Logger
}

// New creates a search repository.
func New(s store, cat domain.CatalogConfig, logger *zap.Logger) *Repo {
	return &Repo{store: s, cat: cat, logger: logger}
}

// Search executes q and decodes each hit. The embedding is always stripped.
func (r *Repo) Search(ctx context.Context, q query.Query) ([]result.Hit, int, error) {
	sr, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    r.cat.IndexName,
		Query:        q,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", r.cat.IndexName, err)
	}
	if sr == nil {
		return nil, 0, nil
	}

	return r.parseHits(sr), sr.Total, nil
}

// parseHits converts entries into hits. Entries whose document is missing
// or cannot be decoded are skipped; a document without an id takes it
// from the key.
func (r *Repo) parseHits(sr *db.SearchResult) []result.Hit {
	if len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		p, err := decodeEntry(entry)
		if err != nil {
			r.logger.Warn("Skipping undecodable search hit",
				zap.String("key", entry.Key),
				zap.Error(err),
			)
			continue
		}
		if p.ID == "" {
			p.ID = strings.TrimPrefix(entry.Key, r.cat.KeyPrefix)
		}
		hits = append(hits, result.Hit{Product: p.WithoutEmbedding(), Distance: entry.Score})
	}
	return hits
}

func decodeEntry(entry db.SearchEntry) (domprod.Product, error) {
	raw := entry.Fields["$"]
	if raw == "" {
		return domprod.Product{}, errors.New("document missing from hit")
	}
	var p domprod.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domprod.Product{}, fmt.Errorf("decode document: %w", err)
	}
	return p, nil
}
