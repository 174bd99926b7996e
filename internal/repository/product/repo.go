package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// store is the consumer interface for product documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo reads and writes product documents at <prefix><id>.
type Repo struct {
	store store
	cat   domain.CatalogConfig
}

// New creates a product repository.
func New(s store, cat domain.CatalogConfig) *Repo {
	return &Repo{store: s, cat: cat}
}

// Put writes the whole document with a single JSON.SET at $, so fields and
// embedding land together. Returns true if the key did not exist before.
func (r *Repo) Put(ctx context.Context, p *domprod.Product) (bool, error) {
	key := r.cat.Key(p.ID)
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal product %s: %w", p.ID, err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}

	return !exists, nil
}

// Get returns a product by id.
func (r *Repo) Get(ctx context.Context, id string) (domprod.Product, error) {
	key := r.cat.Key(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domprod.Product{}, domain.ErrProductNotFound
		}
		return domprod.Product{}, fmt.Errorf("json.get %s: %w", key, err)
	}

	p, ok, err := decodeDocument(raw)
	if err != nil {
		return domprod.Product{}, err
	}
	if !ok {
		return domprod.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// GetMany returns the products that exist, in the order of ids.
// Missing or undecodable documents are skipped.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]domprod.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raws, err := r.store.JSONGetMulti(ctx, r.keys(ids), "$")
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	out := make([]domprod.Product, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		p, ok, err := decodeDocument(raw)
		if err != nil || !ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Embeddings fetches the $.embedding sub-path of each id. Products with no
// document or no embedding are absent from the map.
func (r *Repo) Embeddings(ctx context.Context, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}

	raws, err := r.store.JSONGetMulti(ctx, r.keys(ids), "$."+domprod.FieldEmbedding)
	if err != nil {
		return nil, fmt.Errorf("json.get multi embedding: %w", err)
	}

	out := make(map[string][]float32, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		vec, err := decodeEmbedding(raw)
		if err != nil || len(vec) == 0 {
			continue
		}
		out[ids[i]] = vec
	}
	return out, nil
}

// Delete removes a product document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.cat.Key(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) keys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.cat.Key(id)
	}
	return keys
}
