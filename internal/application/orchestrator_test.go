package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bidwatch/internal/application"
	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var (
	metroCred = model.Credential{ID: 1, PortalType: model.PortalTypePublic, PortalName: "Metro", IsActive: true}
	septaCred = model.Credential{ID: 2, PortalType: model.PortalTypeAuthenticated, PortalName: "SEPTA", Username: "joe", Password: "pw", IsActive: true}
)

type orchestratorFixture struct {
	creds    *mockCredentialStore
	bids     *mockBidStore
	registry *mockRegistry
	browser  *mockBrowser
	factory  *browserFactory
	orch     *application.Orchestrator
}

func newOrchestratorFixture(creds ...model.Credential) *orchestratorFixture {
	f := &orchestratorFixture{
		creds:    &mockCredentialStore{creds: creds},
		bids:     newMockBidStore(),
		registry: &mockRegistry{adapters: map[model.PortalType]driven.PortalAdapter{}},
		browser:  &mockBrowser{},
	}
	f.factory = &browserFactory{browser: f.browser}
	f.orch = application.NewOrchestrator(f.creds, f.bids, f.registry, f.factory.New)
	return f
}

func (f *orchestratorFixture) setAdapter(t model.PortalType, fn scrapeFunc) {
	f.registry.adapters[t] = fn
}

func bidsFor(portal string, posted time.Time, ids ...string) []model.Bid {
	out := make([]model.Bid, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Bid{
			ID:         id,
			Portal:     portal,
			Title:      "Solicitation " + id,
			PostedDate: posted,
			DueDate:    posted.Add(model.DefaultDueWindow),
			Quantity:   "1",
			Documents:  []string{},
		})
	}
	return out
}

func staticAdapter(bids []model.Bid) scrapeFunc {
	return func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		return bids, nil
	}
}

func TestRunScraper_NoActiveCredentials(t *testing.T) {
	inactive := metroCred
	inactive.IsActive = false
	f := newOrchestratorFixture(inactive)

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, result.NewBids)
	assert.Zero(t, result.TotalBids)
	assert.NotEmpty(t, result.Message)
	assert.Zero(t, f.factory.Sessions(), "no browser is created without credentials")
}

func TestRunScraper_CredentialStoreUnavailable(t *testing.T) {
	f := newOrchestratorFixture()
	f.creds.err = driven.ErrStoreUnavailable

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, f.factory.Sessions())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "store unavailable")
}

func TestRunScraper_IdempotentAcrossRuns(t *testing.T) {
	f := newOrchestratorFixture(metroCred)
	f.setAdapter(model.PortalTypePublic, staticAdapter(bidsFor("Metro", time.Now(), "metro_a", "metro_b")))

	first, err := f.orch.RunScraper(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 2, first.NewBids)
	assert.Equal(t, 2, first.TotalBids)

	second, err := f.orch.RunScraper(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Zero(t, second.NewBids)
	assert.Equal(t, 2, second.TotalBids)
	assert.Len(t, f.bids.inserts, 2)
}

func TestRunScraper_FiltersBidsPostedBeforeToday(t *testing.T) {
	now := time.Now()
	yesterday := model.StartOfDay(now).Add(-time.Hour)

	f := newOrchestratorFixture(metroCred)
	bids := append(bidsFor("Metro", now, "today"), bidsFor("Metro", yesterday, "old")...)
	f.setAdapter(model.PortalTypePublic, staticAdapter(bids))

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalBids)
	assert.Equal(t, 1, result.NewBids)
	midnight := model.StartOfDay(result.StartedAt)
	for _, b := range result.Bids {
		assert.False(t, b.PostedDate.Before(midnight), "bid %s posted before today", b.ID)
	}
}

func TestRunScraper_PartialFailureIsolation(t *testing.T) {
	f := newOrchestratorFixture(septaCred, metroCred)
	f.setAdapter(model.PortalTypeAuthenticated, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		return nil, errors.New("authentication failed: portal rejected the login")
	})
	f.setAdapter(model.PortalTypePublic, staticAdapter(bidsFor("Metro", time.Now(), "metro_a")))

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"SEPTA: authentication failed: portal rejected the login"}, result.Errors)
	require.Len(t, result.Bids, 1)
	assert.Equal(t, "Metro", result.Bids[0].Portal)
	assert.Equal(t, 1, result.NewBids)
	assert.Equal(t, 1, f.browser.released)
}

func TestRunScraper_AllPortalsFail(t *testing.T) {
	f := newOrchestratorFixture(metroCred, septaCred)
	fail := func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		return nil, errors.New("navigation failed")
	}
	f.setAdapter(model.PortalTypePublic, fail)
	f.setAdapter(model.PortalTypeAuthenticated, fail)

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 2)
	assert.Zero(t, result.TotalBids)
}

func TestRunScraper_BrowserLaunchFailureIsFatal(t *testing.T) {
	f := newOrchestratorFixture(metroCred, septaCred)
	f.browser.acquireErr = errors.New("launch browser: chromium not found")
	called := false
	f.setAdapter(model.PortalTypePublic, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		called = true
		return nil, nil
	})

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, called)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "chromium not found")
	assert.Equal(t, 1, f.browser.released, "browser is released even when launch fails")
}

func TestRunScraper_PageFailureAfterLaunchIsPortalScoped(t *testing.T) {
	f := newOrchestratorFixture(metroCred, septaCred)
	f.browser.failAfter = 1
	f.browser.pageErr = errors.New("open page: target crashed")
	f.setAdapter(model.PortalTypePublic, staticAdapter(bidsFor("Metro", time.Now(), "metro_a")))
	f.setAdapter(model.PortalTypeAuthenticated, staticAdapter(bidsFor("SEPTA", time.Now(), "septa_a")))

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewBids)
	assert.Equal(t, 1, result.TotalBids)
	assert.Equal(t, []string{"SEPTA: open page: target crashed"}, result.Errors)
	_, stored := f.bids.stored["metro_a"]
	assert.True(t, stored)
	assert.Equal(t, 1, f.browser.released)
}

func TestRunScraper_PersistenceFailureIsFatal(t *testing.T) {
	f := newOrchestratorFixture(metroCred)
	f.setAdapter(model.PortalTypePublic, staticAdapter(bidsFor("Metro", time.Now(), "metro_a")))
	f.bids.existsErr = driven.ErrStoreUnavailable

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.TotalBids)
	assert.Zero(t, result.NewBids)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "store:")
}

func TestRunScraper_AdapterPanicIsContained(t *testing.T) {
	f := newOrchestratorFixture(septaCred, metroCred)
	f.setAdapter(model.PortalTypeAuthenticated, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		panic("nil selection")
	})
	f.setAdapter(model.PortalTypePublic, staticAdapter(bidsFor("Metro", time.Now(), "metro_a")))

	result, err := f.orch.RunScraper(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "SEPTA: adapter panic")
	assert.False(t, f.orch.IsRunning())
	assert.Equal(t, 1, f.browser.released)
}

func TestRunScraper_SingleFlight(t *testing.T) {
	f := newOrchestratorFixture(metroCred)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.setAdapter(model.PortalTypePublic, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		close(entered)
		<-unblock
		return nil, nil
	})

	done := make(chan model.RunResult)
	go func() {
		result, _ := f.orch.RunScraper(context.Background())
		done <- result
	}()

	<-entered
	assert.True(t, f.orch.IsRunning())

	_, err := f.orch.RunScraper(context.Background())
	assert.ErrorIs(t, err, application.ErrAlreadyRunning)
	assert.Equal(t, 1, f.factory.Sessions(), "rejected run must not create a browser session")

	close(unblock)
	<-done
	assert.False(t, f.orch.IsRunning())
}

func TestTodaysBidCount(t *testing.T) {
	f := newOrchestratorFixture()
	f.bids.stored["a"] = model.Bid{ID: "a"}
	f.bids.stored["b"] = model.Bid{ID: "b"}

	assert.Equal(t, 2, f.orch.TodaysBidCount(context.Background()))
	assert.Equal(t, model.StartOfDay(time.Now()), f.bids.since)

	f.bids.countErr = driven.ErrStoreUnavailable
	assert.Zero(t, f.orch.TodaysBidCount(context.Background()))
}

func TestFilterBidsFromToday(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	bids := []model.Bid{
		{ID: "midnight", PostedDate: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)},
		{ID: "late-yesterday", PostedDate: time.Date(2026, 10, 13, 23, 59, 59, 0, time.UTC)},
		{ID: "future", PostedDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)},
	}

	got := application.FilterBidsFromToday(bids, now)

	require.Len(t, got, 2)
	assert.Equal(t, "midnight", got[0].ID)
	assert.Equal(t, "future", got[1].ID)
}
