// Package tokens implements the Token Lifecycle Manager (C4):
// resolving a valid access token for a PlatformConnection, refreshing
// it through the adapter when it is within the safety window or has
// been reported expired, and serializing concurrent refreshes for the
// same connection behind a per-connection lock — grounded on the
// teacher's double-checked-locking pattern in
// internal/social/ratelimiter.go's RateLimiter.GetLimiter, applied
// here to mutexes instead of rate limiters.
package tokens

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/secretstore"
)

// SafetyWindow is the minimum remaining lifetime a returned access
// token must have; a token expiring sooner is refreshed first.
const SafetyWindow = 60 * time.Second

// Logger is the minimal structured-logging surface the manager needs,
// satisfied by internal/log.Logger.
type Logger interface {
	Warn(msg string, fields ...interface{})
}

// AppCredentials holds the process-level OAuth 1.0a credentials
// dual-credential adapters (Twitter media upload) need, sourced from
// configuration rather than from any PlatformConnection row.
type AppCredentials struct {
	Twitter *platformcore.Token // populated from TWITTER_API_KEY et al.
}

// Manager resolves and refreshes access tokens for platform
// connections.
type Manager struct {
	conns    connection.Repository
	secrets  *secretstore.Store
	registry *platformcore.Registry
	clock    clock.Clock
	logger   Logger
	appCreds AppCredentials

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	warnedMissingAppCred sync.Map // platformcore.Platform -> struct{}, logged once
}

// New constructs a Manager.
func New(conns connection.Repository, secrets *secretstore.Store, registry *platformcore.Registry, clk clock.Clock, logger Logger, appCreds AppCredentials) *Manager {
	return &Manager{
		conns:    conns,
		secrets:  secrets,
		registry: registry,
		clock:    clk,
		logger:   logger,
		appCreds: appCreds,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (m *Manager) lockFor(connectionID uuid.UUID) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[connectionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[connectionID] = l
	}
	return l
}

// GetValidAccessToken returns an access token for connectionID that
// will not expire for at least SafetyWindow, refreshing it through
// the platform adapter first if necessary. Concurrent callers for the
// same connection serialize on a per-connection lock; the second
// caller observes the already-refreshed token without triggering a
// second network call.
func (m *Manager) GetValidAccessToken(ctx context.Context, connectionID uuid.UUID) (string, error) {
	lock := m.lockFor(connectionID)
	lock.Lock()
	defer lock.Unlock()

	conn, err := m.conns.FindByID(ctx, connectionID)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "load connection", err)
	}
	if !conn.IsActive() {
		return "", platformcore.New(platformcore.KindAuthRevoked, "platform not connected")
	}

	now := m.clock.Now()
	if !conn.NeedsRefresh(now, SafetyWindow) {
		return m.secrets.OpenString(conn.SealedAccessToken())
	}

	return m.refresh(ctx, conn, now)
}

// ForceRefresh refreshes connectionID unconditionally, whatever its
// stored expiry. internal/dispatcher does not call it: an AUTH_EXPIRED
// from an adapter's Publish is recorded there as an ordinary retryable
// failure, with no forced refresh before the next attempt.
func (m *Manager) ForceRefresh(ctx context.Context, connectionID uuid.UUID) (string, error) {
	lock := m.lockFor(connectionID)
	lock.Lock()
	defer lock.Unlock()

	conn, err := m.conns.FindByID(ctx, connectionID)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "load connection", err)
	}
	if !conn.IsActive() {
		return "", platformcore.New(platformcore.KindAuthRevoked, "platform not connected")
	}
	return m.refresh(ctx, conn, m.clock.Now())
}

// refresh must be called with the connection's lock held.
func (m *Manager) refresh(ctx context.Context, conn *connection.PlatformConnection, now time.Time) (string, error) {
	adapter, ok := m.registry.Get(conn.Platform())
	if !ok {
		return "", platformcore.New(platformcore.KindConfigMissing, fmt.Sprintf("no adapter registered for %s", conn.Platform()))
	}

	refreshToken, err := m.secrets.OpenString(conn.SealedRefreshToken())
	if err != nil && conn.SealedRefreshToken() != nil {
		return "", platformcore.Wrap(platformcore.KindCryptoTamper, "open refresh token", err)
	}

	bundle, err := adapter.RefreshToken(ctx, platformcore.Token{RefreshToken: refreshToken})
	if err != nil {
		return "", m.mapRefreshFailure(conn, err)
	}

	sealedAccess, err := m.secrets.SealString(bundle.AccessToken)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "seal refreshed access token", err)
	}
	var sealedRefresh []byte
	if bundle.RefreshToken != "" {
		sealedRefresh, err = m.secrets.SealString(bundle.RefreshToken)
		if err != nil {
			return "", platformcore.Wrap(platformcore.KindInternal, "seal refreshed refresh token", err)
		}
	}

	expiry := bundle.ExpiresAt
	if expiry.IsZero() && bundle.ExpiresIn > 0 {
		expiry = now.Add(bundle.ExpiresIn)
	}

	if err := conn.ApplyRefresh(sealedAccess, sealedRefresh, expiry); err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "apply refresh", err)
	}
	if err := m.conns.Update(ctx, conn); err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "persist refreshed connection", err)
	}

	return bundle.AccessToken, nil
}

// mapRefreshFailure classifies an adapter refresh failure per spec
// §4.4: INVALID_GRANT (surfaced by adapters as AUTH_REVOKED) marks the
// connection inactive and terminates the job; transient failures
// retry with standard backoff.
func (m *Manager) mapRefreshFailure(conn *connection.PlatformConnection, err error) error {
	pcErr, ok := err.(*platformcore.Error)
	if !ok {
		return platformcore.Wrap(platformcore.KindPlatformTransient, "refresh failed", err)
	}
	switch pcErr.Kind {
	case platformcore.KindAuthRevoked, platformcore.KindConfigMissing:
		_ = conn.MarkInactive()
		return pcErr
	case platformcore.KindPlatformTransient, platformcore.KindRateLimited, platformcore.KindTimeout:
		return pcErr
	default:
		return platformcore.Wrap(platformcore.KindPlatformTransient, "refresh transient failure", pcErr)
	}
}

// AppCredential returns the process-level OAuth 1.0a credential for a
// dual-credential platform (currently only Twitter media upload),
// failing fast with CONFIG_MISSING if it was never configured. The
// miss is logged once, not on every call.
func (m *Manager) AppCredential(platform platformcore.Platform) (platformcore.Token, error) {
	switch platform {
	case platformcore.PlatformTwitter:
		if m.appCreds.Twitter == nil {
			if _, logged := m.warnedMissingAppCred.LoadOrStore(platform, struct{}{}); !logged {
				m.logger.Warn("missing app-level credential for dual-credential platform", "platform", platform)
			}
			return platformcore.Token{}, platformcore.New(platformcore.KindConfigMissing, "twitter app credential not configured")
		}
		return *m.appCreds.Twitter, nil
	default:
		return platformcore.Token{}, platformcore.New(platformcore.KindConfigMissing, fmt.Sprintf("%s has no app-level credential", platform))
	}
}
