package event

import (
	"context"

	"github.com/kailas-cloud/pickperfect/internal/db"
	domevent "github.com/kailas-cloud/pickperfect/internal/domain/event"
)

// Repository persists events and trending counters.
type Repository interface {
	Append(ctx context.Context, e *domevent.Event) error
	IncrTrending(ctx context.Context, productID, category string) error
	TopCategories(ctx context.Context, n int) ([]db.ScoredMember, error)
}
