package tokens

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/log"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/secretstore"
)

// fakeConnRepo is a minimal in-memory connection.Repository for this
// package's tests, guarded by a mutex since GetValidAccessToken is
// exercised concurrently.
type fakeConnRepo struct {
	mu   sync.Mutex
	conn *connection.PlatformConnection
}

func (r *fakeConnRepo) Create(ctx context.Context, c *connection.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = c
	return nil
}
func (r *fakeConnRepo) Update(ctx context.Context, c *connection.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = c
	return nil
}
func (r *fakeConnRepo) FindByID(ctx context.Context, id uuid.UUID) (*connection.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.ID() != id {
		return nil, connection.ErrNotConnected
	}
	return r.conn, nil
}
func (r *fakeConnRepo) FindActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform) (*connection.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, connection.ErrNotConnected
	}
	return r.conn, nil
}
func (r *fakeConnRepo) FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*connection.PlatformConnection, error) {
	return nil, nil
}
func (r *fakeConnRepo) ExistsActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform, platformAccountID string) (bool, error) {
	return false, nil
}

// racingRefreshAdapter counts how many times RefreshToken is actually
// invoked and blocks each call on a gate so a test can force two
// goroutines to race inside GetValidAccessToken before either
// completes its refresh.
type racingRefreshAdapter struct {
	platform   platformcore.Platform
	caps       platformcore.Capabilities
	calls      int32
	gate       chan struct{}
	newToken   string
}

func (a *racingRefreshAdapter) Platform() platformcore.Platform         { return a.platform }
func (a *racingRefreshAdapter) Capabilities() platformcore.Capabilities { return a.caps }
func (a *racingRefreshAdapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	return "", nil
}
func (a *racingRefreshAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	return nil, nil
}
func (a *racingRefreshAdapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	atomic.AddInt32(&a.calls, 1)
	<-a.gate // released once both goroutines have had a chance to queue on the connection lock
	return &platformcore.OAuthTokenResponse{
		AccessToken: a.newToken,
		ExpiresIn:   time.Hour,
	}, nil
}
func (a *racingRefreshAdapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	return nil, nil
}
func (a *racingRefreshAdapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	return nil, nil
}

// TestManager_ConcurrentRefreshSerializesToSingleNetworkCall drives
// spec §8 scenario 5 ("token refresh race"): two callers needing a
// valid token for the same connection simultaneously must serialize
// behind the per-connection lock so only one adapter.RefreshToken
// call happens, and both callers observe the refreshed token.
func TestManager_ConcurrentRefreshSerializesToSingleNetworkCall(t *testing.T) {
	clk := clock.NewVirtualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	secrets, err := secretstore.New("test-passphrase", "test-salt")
	if err != nil {
		t.Fatalf("new secretstore: %v", err)
	}

	sealedExpired, err := secrets.SealString("stale-access-token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	connID := uuid.Must(uuid.NewV7())
	conn, err := connection.NewConnection(connID, uuid.Must(uuid.NewV7()), platformcore.PlatformInstagram,
		"acct-1", "Acct One", []string{"publish"}, sealedExpired, nil, clk.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}

	repo := &fakeConnRepo{conn: conn}
	adapter := &racingRefreshAdapter{
		platform: platformcore.PlatformInstagram,
		caps:     platformcore.Capabilities{MaxCaptionLength: 2200, SupportsVideo: true},
		gate:     make(chan struct{}),
		newToken: "fresh-access-token",
	}
	registry, err := platformcore.NewRegistry(adapter)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	mgr := New(repo, secrets, registry, clk, log.Nop{}, AppCredentials{})

	const callers = 2
	results := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = mgr.GetValidAccessToken(context.Background(), connID)
		}(i)
	}

	// Give both goroutines a moment to reach the lock (the second will
	// block behind the first's held mutex rather than the gate, since
	// only one of them ever calls RefreshToken), then release the gate.
	time.Sleep(50 * time.Millisecond)
	close(adapter.gate)
	wg.Wait()

	if calls := atomic.LoadInt32(&adapter.calls); calls != 1 {
		t.Fatalf("expected exactly 1 network refresh call, got %d", calls)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != "fresh-access-token" {
			t.Fatalf("caller %d: expected refreshed token, got %q", i, results[i])
		}
	}
}
