package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var _ driven.BidStore = (*BidStore)(nil)

// BidStore keeps bids in a map keyed by bid ID.
type BidStore struct {
	mu   sync.RWMutex
	bids map[string]model.Bid
	now  func() time.Time
}

// NewBidStore returns an empty BidStore.
func NewBidStore() *BidStore {
	return &BidStore{
		bids: make(map[string]model.Bid),
		now:  time.Now,
	}
}

func (s *BidStore) ExistsByID(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.bids[id]
	return ok, nil
}

// Insert stores the bid and stamps CreatedAt. An existing ID is left untouched.
func (s *BidStore) Insert(_ context.Context, bid model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bids[bid.ID]; ok {
		return nil
	}
	bid.CreatedAt = s.now()
	bid.Documents = append([]string{}, bid.Documents...)
	s.bids[bid.ID] = bid
	return nil
}

func (s *BidStore) CountSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.bids {
		if !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ListRecent returns up to limit bids ordered by posted date, newest first.
func (s *BidStore) ListRecent(_ context.Context, limit int) ([]model.Bid, error) {
	if limit <= 0 {
		return []model.Bid{}, nil
	}

	s.mu.RLock()
	out := make([]model.Bid, 0, len(s.bids))
	for _, b := range s.bids {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedDate.Equal(out[j].PostedDate) {
			return out[i].PostedDate.After(out[j].PostedDate)
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
