package connection

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// Repository persists PlatformConnections and implements the lookups
// the token lifecycle manager and dispatcher rely on.
type Repository interface {
	Create(ctx context.Context, c *PlatformConnection) error
	Update(ctx context.Context, c *PlatformConnection) error
	FindByID(ctx context.Context, id uuid.UUID) (*PlatformConnection, error)

	// FindActive returns the active connection for owner+platform, or
	// ErrNotConnected if none exists. Enforces the "at most one active
	// connection per (user, platform, platform account id)" invariant
	// implicitly: callers resolve by owner+platform only, since a
	// dispatch attempt always targets the single active connection.
	FindActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform) (*PlatformConnection, error)

	FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*PlatformConnection, error)

	// ExistsActive reports whether an active connection already
	// exists for owner+platform+platformAccountID, enforcing the
	// uniqueness invariant at connect time.
	ExistsActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform, platformAccountID string) (bool, error)
}
