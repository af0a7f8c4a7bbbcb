package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

// BidStore defines the driven port for bid persistence. Insertion is
// idempotent by ID from the caller's perspective: callers check ExistsByID first.
type BidStore interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, bid model.Bid) error
	// CountSince returns the number of bids inserted at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
	// ListRecent returns up to limit bids, newest posted first.
	ListRecent(ctx context.Context, limit int) ([]model.Bid, error)
}
