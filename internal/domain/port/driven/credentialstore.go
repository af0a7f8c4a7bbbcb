package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

var (
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCredentialNotFound is returned when a credential ID does not exist.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrEncryptionKeyNotSet is returned when a password must be stored or read
	// but BIDWATCH_SECRET_KEY has not been configured.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BIDWATCH_SECRET_KEY")
)

// CredentialStore defines the driven port for portal credential persistence.
// Passwords cross this boundary as plaintext; adapters handle encryption.
type CredentialStore interface {
	// FindActive returns every credential with IsActive set, ordered by portal name.
	FindActive(ctx context.Context) ([]model.Credential, error)

	// List returns all credentials ordered by portal name.
	List(ctx context.Context) ([]model.Credential, error)

	// FindByID returns one credential. Returns ErrCredentialNotFound if absent.
	FindByID(ctx context.Context, id int64) (model.Credential, error)

	// Save inserts the credential when ID is zero, otherwise updates it.
	// The returned credential carries the assigned ID and timestamps.
	Save(ctx context.Context, cred model.Credential) (model.Credential, error)

	// Delete removes a credential. Returns ErrCredentialNotFound if absent.
	Delete(ctx context.Context, id int64) error
}
