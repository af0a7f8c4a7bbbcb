// Package memory implements the driven store ports in process memory. It backs
// the service when the SQLite database cannot be opened; contents are lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps credentials in a map keyed by ID.
type CredentialStore struct {
	mu     sync.RWMutex
	creds  map[int64]model.Credential
	nextID int64
	now    func() time.Time
}

// NewCredentialStore returns an empty CredentialStore.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[int64]model.Credential),
		now:   time.Now,
	}
}

// FindActive returns every active credential ordered by portal name.
func (s *CredentialStore) FindActive(_ context.Context) ([]model.Credential, error) {
	return s.snapshot(func(c model.Credential) bool { return c.IsActive }), nil
}

// List returns all credentials ordered by portal name.
func (s *CredentialStore) List(_ context.Context) ([]model.Credential, error) {
	return s.snapshot(func(model.Credential) bool { return true }), nil
}

// FindByID returns the credential with the given ID.
func (s *CredentialStore) FindByID(_ context.Context, id int64) (model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[id]
	if !ok {
		return model.Credential{}, fmt.Errorf("find credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	return cred, nil
}

// Save inserts the credential when ID is zero and replaces it otherwise.
func (s *CredentialStore) Save(_ context.Context, cred model.Credential) (model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	cred.UpdatedAt = now

	if cred.ID == 0 {
		s.nextID++
		cred.ID = s.nextID
		cred.CreatedAt = now
	} else {
		existing, ok := s.creds[cred.ID]
		if !ok {
			return model.Credential{}, fmt.Errorf("update credential %d: %w", cred.ID, driven.ErrCredentialNotFound)
		}
		cred.CreatedAt = existing.CreatedAt
	}

	s.creds[cred.ID] = cred
	return cred, nil
}

// Delete removes the credential with the given ID.
func (s *CredentialStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[id]; !ok {
		return fmt.Errorf("delete credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	delete(s.creds, id)
	return nil
}

func (s *CredentialStore) snapshot(keep func(model.Credential) bool) []model.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PortalName != out[j].PortalName {
			return out[i].PortalName < out[j].PortalName
		}
		return out[i].ID < out[j].ID
	})
	return out
}
