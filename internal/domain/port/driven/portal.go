package driven

import (
	"context"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

// PortalAdapter navigates one portal on the given page and returns the raw bids
// found there. A malformed row is skipped, never reported as an error.
type PortalAdapter interface {
	Scrape(ctx context.Context, page Page, cred model.Credential) ([]model.Bid, error)
}

// AdapterRegistry selects the adapter variant for a portal type.
type AdapterRegistry interface {
	For(portalType model.PortalType) (PortalAdapter, error)
}
