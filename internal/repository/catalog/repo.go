package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
)

// store is the consumer interface for index management (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo owns the lifecycle of the product index.
type Repo struct {
	store store
	def   *db.IndexDefinition
}

// New creates a catalog repository for the given layout.
func New(s store, cat domain.CatalogConfig, vec domain.VectorConfig) (*Repo, error) {
	def, err := BuildIndex(cat, vec)
	if err != nil {
		return nil, err
	}
	return &Repo{store: s, def: def}, nil
}

// Definition returns the index definition.
func (r *Repo) Definition() *db.IndexDefinition {
	return r.def
}

// EnsureIndex creates the index. An existing index counts as success;
// created reports whether this call made it.
func (r *Repo) EnsureIndex(ctx context.Context) (created bool, err error) {
	if err := r.store.CreateIndex(ctx, r.def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.def.Name, err)
	}
	return true, nil
}

// Exists reports whether the index is present.
func (r *Repo) Exists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.def.Name)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.def.Name, err)
	}
	return ok, nil
}

// Drop removes the index. Documents are kept.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.def.Name); err != nil {
		return fmt.Errorf("drop index %s: %w", r.def.Name, err)
	}
	return nil
}
