package portal

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var _ driven.PortalAdapter = (*PublicAdapter)(nil)

// PublicAdapter scrapes a portal whose listing is reachable without a login.
type PublicAdapter struct {
	core
}

// NewPublicAdapter creates a PublicAdapter for the given portal descriptor.
func NewPublicAdapter(desc Descriptor, timeouts Timeouts) *PublicAdapter {
	return &PublicAdapter{core: newCore(desc, timeouts)}
}

// Scrape loads the listing, waits for it to render and extracts its rows.
func (a *PublicAdapter) Scrape(ctx context.Context, page driven.Page, cred model.Credential) ([]model.Bid, error) {
	portal := a.portalName(cred)
	target := a.targetURL(cred)

	slog.Info("scraping public portal", "portal", portal, "url", target)

	if err := a.navigate(ctx, page, portal, target); err != nil {
		return nil, err
	}
	if err := a.waitForListing(ctx, page, portal); err != nil {
		return nil, err
	}
	return a.extract(ctx, page, portal, target)
}
