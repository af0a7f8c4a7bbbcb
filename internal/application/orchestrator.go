// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// ErrAlreadyRunning is returned when a scrape is requested while another is in progress.
var ErrAlreadyRunning = errors.New("scraper is already running")

// errNoAdapter marks a credential whose portal type has no adapter; no page was opened for it.
var errNoAdapter = errors.New("no adapter")

// BrowserFactory creates the browser session owned by a single run.
type BrowserFactory func() driven.Browser

// Orchestrator runs one end-to-end scrape: it dispatches every active credential
// to its portal adapter, filters and deduplicates the results, and persists new bids.
// At most one run is in flight per Orchestrator.
type Orchestrator struct {
	credentials driven.CredentialStore
	bids        driven.BidStore
	adapters    driven.AdapterRegistry
	newBrowser  BrowserFactory
	now         func() time.Time

	mu      sync.Mutex
	running bool
}

// NewOrchestrator creates an Orchestrator with all required dependencies.
func NewOrchestrator(
	credentials driven.CredentialStore,
	bids driven.BidStore,
	adapters driven.AdapterRegistry,
	newBrowser BrowserFactory,
) *Orchestrator {
	return &Orchestrator{
		credentials: credentials,
		bids:        bids,
		adapters:    adapters,
		newBrowser:  newBrowser,
		now:         time.Now,
	}
}

// IsRunning reports whether a run is in progress.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) tryAcquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	return true
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
}

// RunScraper performs one scrape. The only error returned is ErrAlreadyRunning;
// every other outcome, including total failure, is described by the RunResult.
func (o *Orchestrator) RunScraper(ctx context.Context) (result model.RunResult, err error) {
	if !o.tryAcquire() {
		return model.RunResult{}, ErrAlreadyRunning
	}
	defer o.release()

	start := o.now()
	result = model.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Errors:    []string{},
		Bids:      []model.Bid{},
	}
	defer func() {
		result.Duration = time.Since(start).Round(time.Millisecond)
		slog.Info("scrape run complete",
			"run_id", result.RunID,
			"success", result.Success,
			"new_bids", result.NewBids,
			"total_bids", result.TotalBids,
			"errors", len(result.Errors),
			"duration", result.Duration,
		)
	}()

	slog.Info("scrape run started", "run_id", result.RunID)

	creds, err := o.credentials.FindActive(ctx)
	if err != nil {
		slog.Error("fetch active credentials failed", "run_id", result.RunID, "error", err)
		result.Message = "Credential store unavailable; no portals scraped"
		result.Errors = append(result.Errors, fmt.Sprintf("credentials: %v", err))
		return result, nil
	}
	if len(creds) == 0 {
		result.Message = "No active credentials configured"
		return result, nil
	}

	session := o.newBrowser()
	defer func() {
		if relErr := session.Release(); relErr != nil {
			slog.Error("browser release failed", "run_id", result.RunID, "error", relErr)
		}
	}()

	var (
		scraped   []model.Bid
		failed    int
		browserUp bool
	)
	for _, cred := range creds {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cred.PortalName, ctx.Err()))
			failed++
			continue
		}

		bids, portalErr, pageErr := o.scrapePortal(ctx, session, cred)
		if pageErr != nil && !browserUp {
			slog.Error("browser unavailable", "run_id", result.RunID, "error", pageErr)
			result.Message = "Browser could not be started"
			result.Errors = append(result.Errors, fmt.Sprintf("browser: %v", pageErr))
			return result, nil
		}
		if pageErr != nil {
			// The browser launched earlier, so a failed page only costs this portal.
			portalErr = pageErr
		} else if portalErr == nil || !errors.Is(portalErr, errNoAdapter) {
			browserUp = true
		}
		if portalErr != nil {
			slog.Error("portal scrape failed", "run_id", result.RunID, "portal", cred.PortalName, "error", portalErr)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cred.PortalName, portalErr))
			failed++
			continue
		}

		slog.Info("portal scraped", "run_id", result.RunID, "portal", cred.PortalName, "bids", len(bids))
		scraped = append(scraped, bids...)
	}

	filtered := FilterBidsFromToday(scraped, start)
	result.TotalBids = len(filtered)
	result.Bids = filtered

	inserted, err := o.persist(ctx, filtered)
	result.NewBids = inserted
	if err != nil {
		slog.Error("persist bids failed", "run_id", result.RunID, "error", err)
		result.Message = "Bid store unavailable; results were not fully saved"
		result.Errors = append(result.Errors, fmt.Sprintf("store: %v", err))
		return result, nil
	}

	if failed == len(creds) {
		result.Message = fmt.Sprintf("All %d portals failed", failed)
		return result, nil
	}

	result.Success = true
	result.Message = fmt.Sprintf("Scraped %d of %d portals: %d new bids", len(creds)-failed, len(creds), inserted)
	return result, nil
}

// scrapePortal runs one credential through its adapter on a fresh page.
// portalErr is scoped to this portal; pageErr means no page could be opened.
func (o *Orchestrator) scrapePortal(ctx context.Context, session driven.Browser, cred model.Credential) (bids []model.Bid, portalErr, pageErr error) {
	adapter, err := o.adapters.For(cred.PortalType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNoAdapter, err), nil
	}

	page, err := session.AcquirePage(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("page close failed", "portal", cred.PortalName, "error", closeErr)
		}
	}()

	defer func() {
		if v := recover(); v != nil {
			bids = nil
			portalErr = fmt.Errorf("adapter panic: %v", v)
		}
	}()

	bids, err = adapter.Scrape(ctx, page, cred)
	return bids, err, nil
}

// persist inserts every bid whose ID is not already stored and returns the
// number inserted. The first store error aborts persistence.
func (o *Orchestrator) persist(ctx context.Context, bids []model.Bid) (int, error) {
	var inserted int
	for _, bid := range bids {
		exists, err := o.bids.ExistsByID(ctx, bid.ID)
		if err != nil {
			return inserted, fmt.Errorf("check bid %s: %w", bid.ID, err)
		}
		if exists {
			continue
		}
		if err := o.bids.Insert(ctx, bid); err != nil {
			return inserted, fmt.Errorf("insert bid %s: %w", bid.ID, err)
		}
		inserted++
		slog.Debug("saved new bid", "id", bid.ID, "portal", bid.Portal, "title", bid.Title)
	}
	return inserted, nil
}

// TodaysBidCount returns how many bids were stored since local midnight.
// A store failure yields 0.
func (o *Orchestrator) TodaysBidCount(ctx context.Context) int {
	count, err := o.bids.CountSince(ctx, model.StartOfDay(o.now()))
	if err != nil {
		slog.Warn("count today's bids failed", "error", err)
		return 0
	}
	return count
}

// FilterBidsFromToday keeps bids posted at or after local midnight of the day containing now.
func FilterBidsFromToday(bids []model.Bid, now time.Time) []model.Bid {
	midnight := model.StartOfDay(now)
	filtered := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.PostedOnOrAfter(midnight) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
