// Package connection models PlatformConnection, adapted from the
// teacher's domain/social Account aggregate (same private-field,
// NewX/Reconstruct, business-method shape) but narrowed to exactly
// the fields spec'd: one platform identifier out of the five this
// system targets, sealed token blobs instead of a plain Credentials
// struct, and the uniqueness/active-flag invariant spelled out below
// instead of the teacher's richer account-type/rate-limit modeling
// (rate limiting now lives centrally in platformcore.Limiter).
package connection

import (
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// Status is the lifecycle of a PlatformConnection.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// PlatformConnection is a user's authorized link to one platform
// account. Tokens are stored only as sealed blobs produced by
// internal/secretstore; they are never decrypted except transiently
// inside the token lifecycle manager.
type PlatformConnection struct {
	id                  uuid.UUID
	ownerUserID         uuid.UUID
	platform            platformcore.Platform
	platformAccountID   string
	displayName         string
	scope               []string
	sealedAccessToken   []byte
	sealedRefreshToken  []byte // nil when the platform issues none
	accessTokenExpiry   time.Time
	status              Status
	createdAt           time.Time
	updatedAt           time.Time
}

// NewConnection creates a PlatformConnection from a completed OAuth
// exchange. Callers are responsible for enforcing the uniqueness
// invariant (at most one active connection per user+platform+
// platform account id) against the repository before calling this.
func NewConnection(
	id, ownerUserID uuid.UUID,
	platform platformcore.Platform,
	platformAccountID, displayName string,
	scope []string,
	sealedAccessToken, sealedRefreshToken []byte,
	accessTokenExpiry time.Time,
) (*PlatformConnection, error) {
	if ownerUserID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	if platformAccountID == "" {
		return nil, ErrMissingPlatformAccountID
	}

	now := time.Now().UTC()
	return &PlatformConnection{
		id:                 id,
		ownerUserID:        ownerUserID,
		platform:           platform,
		platformAccountID:  platformAccountID,
		displayName:        displayName,
		scope:              scope,
		sealedAccessToken:  sealedAccessToken,
		sealedRefreshToken: sealedRefreshToken,
		accessTokenExpiry:  accessTokenExpiry,
		status:             StatusActive,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Reconstruct recreates a PlatformConnection from persistence.
func Reconstruct(
	id, ownerUserID uuid.UUID,
	platform platformcore.Platform,
	platformAccountID, displayName string,
	scope []string,
	sealedAccessToken, sealedRefreshToken []byte,
	accessTokenExpiry time.Time,
	status Status,
	createdAt, updatedAt time.Time,
) *PlatformConnection {
	return &PlatformConnection{
		id:                 id,
		ownerUserID:        ownerUserID,
		platform:           platform,
		platformAccountID:  platformAccountID,
		displayName:        displayName,
		scope:              scope,
		sealedAccessToken:  sealedAccessToken,
		sealedRefreshToken: sealedRefreshToken,
		accessTokenExpiry:  accessTokenExpiry,
		status:             status,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// Getters
func (c *PlatformConnection) ID() uuid.UUID                     { return c.id }
func (c *PlatformConnection) OwnerUserID() uuid.UUID             { return c.ownerUserID }
func (c *PlatformConnection) Platform() platformcore.Platform    { return c.platform }
func (c *PlatformConnection) PlatformAccountID() string          { return c.platformAccountID }
func (c *PlatformConnection) DisplayName() string                { return c.displayName }
func (c *PlatformConnection) Scope() []string                    { return c.scope }
func (c *PlatformConnection) SealedAccessToken() []byte          { return c.sealedAccessToken }
func (c *PlatformConnection) SealedRefreshToken() []byte         { return c.sealedRefreshToken }
func (c *PlatformConnection) AccessTokenExpiry() time.Time       { return c.accessTokenExpiry }
func (c *PlatformConnection) Status() Status                     { return c.status }
func (c *PlatformConnection) CreatedAt() time.Time                { return c.createdAt }
func (c *PlatformConnection) UpdatedAt() time.Time                { return c.updatedAt }

// ApplyRefresh stores a refreshed token bundle, keeping the
// connection active. Called by the token lifecycle manager after a
// successful adapter refresh.
func (c *PlatformConnection) ApplyRefresh(sealedAccessToken, sealedRefreshToken []byte, expiry time.Time) error {
	if c.status != StatusActive {
		return ErrConnectionInactive
	}
	c.sealedAccessToken = sealedAccessToken
	if sealedRefreshToken != nil {
		c.sealedRefreshToken = sealedRefreshToken
	}
	c.accessTokenExpiry = expiry
	c.updatedAt = time.Now().UTC()
	return nil
}

// MarkInactive deactivates the connection, used on permanent
// AUTH_REVOKED responses from a platform adapter or explicit user
// disconnect.
func (c *PlatformConnection) MarkInactive() error {
	if c.status == StatusInactive {
		return ErrConnectionAlreadyInactive
	}
	c.status = StatusInactive
	c.updatedAt = time.Now().UTC()
	return nil
}

// IsActive reports whether the connection can be used for publishing.
func (c *PlatformConnection) IsActive() bool {
	return c.status == StatusActive
}

// NeedsRefresh reports whether the stored access token will expire
// within window of now — the Token Lifecycle Manager's SAFETY_WINDOW
// check.
func (c *PlatformConnection) NeedsRefresh(now time.Time, window time.Duration) bool {
	return !c.accessTokenExpiry.After(now.Add(window))
}
