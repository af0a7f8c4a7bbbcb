package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// Timeouts bounds each blocking browser step.
type Timeouts struct {
	Navigation time.Duration
	Element    time.Duration
	Lookup     time.Duration
}

// DefaultTimeouts returns the standard step deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation: DefaultNavigationTimeout,
		Element:    DefaultElementTimeout,
		Lookup:     DefaultLookupTimeout,
	}
}

// core holds what both adapter variants share: the descriptor, step deadlines and a clock.
type core struct {
	desc     Descriptor
	timeouts Timeouts
	now      func() time.Time
}

func newCore(desc Descriptor, timeouts Timeouts) core {
	return core{desc: desc, timeouts: timeouts, now: time.Now}
}

func (c core) targetURL(cred model.Credential) string {
	if u := strings.TrimSpace(cred.URL); u != "" {
		return u
	}
	return c.desc.DefaultURL
}

func (c core) portalName(cred model.Credential) string {
	if cred.PortalName != "" {
		return cred.PortalName
	}
	return c.desc.Name
}

func (c core) navigate(ctx context.Context, page driven.Page, portal, target string) error {
	stepCtx, cancel := context.WithTimeout(ctx, c.timeouts.Navigation)
	defer cancel()

	if err := page.Navigate(stepCtx, target); err != nil {
		return &NavigationError{Portal: portal, Step: "navigate", Err: err}
	}
	return nil
}

// waitForListing waits until any listing container is visible.
func (c core) waitForListing(ctx context.Context, page driven.Page, portal string) error {
	if len(c.desc.ListingSelectors) == 0 {
		return nil
	}

	stepCtx, cancel := context.WithTimeout(ctx, c.timeouts.Element)
	defer cancel()

	selector := strings.Join(c.desc.ListingSelectors, ", ")
	if err := page.WaitVisible(stepCtx, selector); err != nil {
		return &NavigationError{Portal: portal, Step: "wait for listing", Err: err}
	}
	return nil
}

// extract snapshots the page and runs the descriptor rules over it.
func (c core) extract(ctx context.Context, page driven.Page, portal, target string) ([]model.Bid, error) {
	stepCtx, cancel := context.WithTimeout(ctx, c.timeouts.Element)
	defer cancel()

	markup, err := page.HTML(stepCtx)
	if err != nil {
		return nil, &NavigationError{Portal: portal, Step: "read page", Err: err}
	}

	base, err := url.Parse(target)
	if err != nil {
		base = nil
	}

	bids, skipped := Extract(markup, c.desc, portal, origin(base), c.now())
	slog.Info("portal extracted",
		"portal", portal,
		"bids", len(bids),
		"skipped_rows", skipped,
	)
	return bids, nil
}

// origin reduces u to scheme and host, the base relative links resolve against.
func origin(u *url.URL) *url.URL {
	if u == nil || u.Host == "" {
		return u
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}

// Registry maps each portal type to its adapter.
type Registry struct {
	Public        *PublicAdapter
	Authenticated *AuthenticatedAdapter
}

var _ driven.AdapterRegistry = (*Registry)(nil)

// NewRegistry builds a registry with the Metro and SEPTA descriptors.
func NewRegistry(timeouts Timeouts) *Registry {
	return &Registry{
		Public:        NewPublicAdapter(Metro, timeouts),
		Authenticated: NewAuthenticatedAdapter(SEPTA, timeouts),
	}
}

// ErrUnknownPortalType is returned for a portal type with no adapter.
var ErrUnknownPortalType = errors.New("unknown portal type")

// For returns the adapter for portalType.
func (r *Registry) For(portalType model.PortalType) (driven.PortalAdapter, error) {
	switch portalType {
	case model.PortalTypePublic:
		return r.Public, nil
	case model.PortalTypeAuthenticated:
		return r.Authenticated, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPortalType, portalType)
	}
}
