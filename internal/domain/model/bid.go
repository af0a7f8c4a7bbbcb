package model

import "time"

// DefaultDueWindow is added to a bid's posted date when no due date could be found.
const DefaultDueWindow = 30 * 24 * time.Hour

// Bid is a single procurement solicitation observed on a portal. ID is stable
// and unique across the store; a bid is never mutated after extraction.
type Bid struct {
	ID          string
	PostedDate  time.Time
	DueDate     time.Time
	Title       string
	Quantity    string
	Description string
	Documents   []string
	BidLink     string
	Portal      string

	// CreatedAt is assigned by the store on insertion.
	CreatedAt time.Time
}

// PostedOnOrAfter reports whether the bid was posted at or after t.
func (b Bid) PostedOnOrAfter(t time.Time) bool {
	return !b.PostedDate.Before(t)
}

// StartOfDay returns local midnight for the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
