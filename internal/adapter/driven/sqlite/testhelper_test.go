package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// testStores bundles repos over one migrated in-memory database.
type testStores struct {
	db    *DB
	bids  *BidRepo
	creds *CredentialRepo
}

// newTestStores opens a shared-cache in-memory database named after the test,
// so the writer and reader pools see the same data and tests stay isolated.
func newTestStores(t *testing.T) *testStores {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), pragmas)
	db, err := open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Migrate(slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return &testStores{
		db:    db,
		bids:  NewBidRepo(db),
		creds: NewCredentialRepo(db, testKey),
	}
}

// seed stores an active public Metro credential and an active authenticated
// SEPTA credential and returns them as saved.
func (s *testStores) seed(t *testing.T) (metro, septa model.Credential) {
	t.Helper()
	ctx := context.Background()

	metro, err := s.creds.Save(ctx, metroCredential())
	require.NoError(t, err)
	septa, err = s.creds.Save(ctx, septaCredential())
	require.NoError(t, err)
	return metro, septa
}

func septaCredential() model.Credential {
	return model.Credential{
		PortalType: model.PortalTypeAuthenticated,
		PortalName: "SEPTA",
		URL:        model.SEPTAPortalURL,
		Username:   "vendor",
		Password:   "s3cret",
		IsActive:   true,
	}
}

func metroCredential() model.Credential {
	return model.Credential{
		PortalType: model.PortalTypePublic,
		PortalName: "Metro",
		URL:        model.MetroPortalURL,
		IsActive:   true,
	}
}
