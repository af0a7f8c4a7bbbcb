package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BidStore = (*BidRepo)(nil)

// BidRepo is the SQLite implementation of the BidStore port interface.
type BidRepo struct {
	db  *DB
	now func() time.Time
}

// NewBidRepo creates a new BidRepo backed by the given database.
func NewBidRepo(db *DB) *BidRepo {
	return &BidRepo{db: db, now: time.Now}
}

// ExistsByID reports whether a bid with the given ID has been stored.
func (r *BidRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM bids WHERE id = ?`
	var one int
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: check bid %q: %w", driven.ErrStoreUnavailable, id, err)
	}
	return true, nil
}

// Insert stores a bid, stamping CreatedAt with the current time. A bid whose
// ID is already present is left untouched.
func (r *BidRepo) Insert(ctx context.Context, bid model.Bid) error {
	docs := bid.Documents
	if docs == nil {
		docs = []string{}
	}
	encodedDocs, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents for bid %q: %w", bid.ID, err)
	}

	const query = `INSERT OR IGNORE INTO bids
		(id, posted_at, due_at, title, quantity, description, documents, bid_link, portal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		bid.ID, toMillis(bid.PostedDate), toMillis(bid.DueDate), bid.Title, bid.Quantity,
		bid.Description, string(encodedDocs), bid.BidLink, bid.Portal, toMillis(r.now()),
	)
	if err != nil {
		return fmt.Errorf("%w: insert bid %q: %w", driven.ErrStoreUnavailable, bid.ID, err)
	}
	return nil
}

// CountSince returns how many bids were inserted at or after since.
func (r *BidRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM bids WHERE created_at >= ?`
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query, toMillis(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count bids: %w", driven.ErrStoreUnavailable, err)
	}
	return n, nil
}

// ListRecent returns up to limit bids ordered by posted date, newest first.
func (r *BidRepo) ListRecent(ctx context.Context, limit int) ([]model.Bid, error) {
	if limit <= 0 {
		return []model.Bid{}, nil
	}

	const query = `SELECT id, posted_at, due_at, title, quantity, description, documents, bid_link, portal, created_at
		FROM bids ORDER BY posted_at DESC, id LIMIT ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list bids: %w", driven.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	bids := make([]model.Bid, 0, limit)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate bids: %w", driven.ErrStoreUnavailable, err)
	}

	return bids, nil
}

func scanBid(s scanner) (model.Bid, error) {
	var (
		bid                        model.Bid
		postedAt, dueAt, createdAt int64
		encodedDocs                string
	)
	if err := s.Scan(&bid.ID, &postedAt, &dueAt, &bid.Title, &bid.Quantity, &bid.Description,
		&encodedDocs, &bid.BidLink, &bid.Portal, &createdAt); err != nil {
		return model.Bid{}, fmt.Errorf("scan bid: %w", err)
	}

	if err := json.Unmarshal([]byte(encodedDocs), &bid.Documents); err != nil {
		return model.Bid{}, fmt.Errorf("decode documents for bid %q: %w", bid.ID, err)
	}
	if bid.Documents == nil {
		bid.Documents = []string{}
	}

	bid.PostedDate = fromMillis(postedAt)
	bid.DueDate = fromMillis(dueAt)
	bid.CreatedAt = fromMillis(createdAt)

	return bid, nil
}
