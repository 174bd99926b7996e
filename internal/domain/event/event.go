// Package event defines user interaction events feeding recommendations
// and trending counters.
package event

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/pickperfect/internal/domain"
)

// Type is the kind of interaction. Unknown values are carried through.
type Type string

// Known interaction types.
const (
	Click     Type = "click"
	AddToCart Type = "add_to_cart"
)

// Event is one user interaction as stored in the per-user log.
type Event struct {
	ProductID string  `json:"product_id"`
	Type      Type    `json:"event_type"`
	Timestamp float64 `json:"timestamp"` // seconds since epoch
	UserID    string  `json:"user_id,omitempty"`
	Category  string  `json:"category"`
}

// Validate checks the fields a tracker needs.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.ProductID) == "" {
		return fmt.Errorf("%w: product_id is required", domain.ErrInvalidEvent)
	}
	if strings.TrimSpace(string(e.Type)) == "" {
		return fmt.Errorf("%w: event_type is required", domain.ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: category is required", domain.ErrInvalidEvent)
	}
	return nil
}

// Time converts Timestamp to a time.Time.
func (e *Event) Time() time.Time {
	sec, frac := math.Modf(e.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Stamp sets Timestamp from t.
func (e *Event) Stamp(t time.Time) {
	e.Timestamp = float64(t.UnixNano()) / 1e9
}
