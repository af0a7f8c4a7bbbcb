package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	creds []model.Credential
	err   error
}

func (m *mockCredentialStore) FindActive(_ context.Context) ([]model.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	var active []model.Credential
	for _, c := range m.creds {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active, nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	return m.creds, m.err
}

func (m *mockCredentialStore) FindByID(_ context.Context, id int64) (model.Credential, error) {
	for _, c := range m.creds {
		if c.ID == id {
			return c, m.err
		}
	}
	return model.Credential{}, driven.ErrCredentialNotFound
}

func (m *mockCredentialStore) Save(_ context.Context, c model.Credential) (model.Credential, error) {
	return c, m.err
}

func (m *mockCredentialStore) Delete(_ context.Context, _ int64) error { return m.err }

type mockBidStore struct {
	mu        sync.Mutex
	stored    map[string]model.Bid
	inserts   []string
	existsErr error
	insertErr error
	countErr  error
	since     time.Time
}

func newMockBidStore() *mockBidStore {
	return &mockBidStore{stored: map[string]model.Bid{}}
}

func (m *mockBidStore) ExistsByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.stored[id]
	return ok, nil
}

func (m *mockBidStore) Insert(_ context.Context, bid model.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.stored[bid.ID] = bid
	m.inserts = append(m.inserts, bid.ID)
	return nil
}

func (m *mockBidStore) CountSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = since
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.stored), nil
}

func (m *mockBidStore) ListRecent(_ context.Context, _ int) ([]model.Bid, error) {
	return nil, nil
}

type scrapeFunc func(ctx context.Context, page driven.Page, cred model.Credential) ([]model.Bid, error)

func (f scrapeFunc) Scrape(ctx context.Context, page driven.Page, cred model.Credential) ([]model.Bid, error) {
	return f(ctx, page, cred)
}

type mockRegistry struct {
	adapters map[model.PortalType]driven.PortalAdapter
}

func (m *mockRegistry) For(t model.PortalType) (driven.PortalAdapter, error) {
	a, ok := m.adapters[t]
	if !ok {
		return nil, errors.New("no adapter for " + string(t))
	}
	return a, nil
}

type mockPage struct{}

func (mockPage) Navigate(context.Context, string) error { return nil }
func (mockPage) WaitVisible(context.Context, string) error { return nil }
func (mockPage) Has(context.Context, string) (bool, error) { return false, nil }
func (mockPage) Fill(context.Context, string, string) error { return nil }
func (mockPage) ClickAndWait(context.Context, string) error { return nil }
func (mockPage) HTML(context.Context) (string, error) { return "", nil }
func (mockPage) Close() error { return nil }

// mockBrowser fails every AcquirePage with acquireErr, or, when failAfter is
// set, fails with pageErr once failAfter pages have been handed out.
type mockBrowser struct {
	mu         sync.Mutex
	acquireErr error
	pageErr    error
	failAfter  int
	acquired   int
	released   int
}

func (m *mockBrowser) AcquirePage(_ context.Context) (driven.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	if m.failAfter > 0 && m.acquired >= m.failAfter {
		return nil, m.pageErr
	}
	m.acquired++
	return mockPage{}, nil
}

func (m *mockBrowser) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

// browserFactory hands out the same mock browser and counts sessions created.
type browserFactory struct {
	mu       sync.Mutex
	browser  *mockBrowser
	sessions int
}

func (f *browserFactory) New() driven.Browser {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return f.browser
}

func (f *browserFactory) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}
