package product

import (
	"context"
	"testing"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
	domprod "github.com/kailas-cloud/pickperfect/internal/domain/product"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonGetMultiFn func(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, nil
}

func (m *mockStore) JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error) {
	if m.jsonGetMultiFn != nil {
		return m.jsonGetMultiFn(ctx, keys, paths...)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, domain.DefaultCatalogConfig()), ms
}

func testProduct(t *testing.T) *domprod.Product {
	t.Helper()
	return &domprod.Product{
		ID:          "p1",
		Name:        "Pixel 9",
		Description: "Android phone",
		Brand:       "Google",
		Category:    "Phones",
		Price:       799,
		Rating:      4.6,
		Reviews:     1200,
		InStock:     true,
		Features:    []string{"OLED", "5G"},
		Geolocation: &geo.Point{Lon: 77.209, Lat: 28.6139},
		Image:       "https://img/p1.png",
		Embedding:   []float32{0.1, 0.2},
	}
}
