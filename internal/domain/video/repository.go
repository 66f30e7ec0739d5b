package video

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists Video entities.
type Repository interface {
	Create(ctx context.Context, v *Video) error
	Update(ctx context.Context, v *Video) error
	FindByID(ctx context.Context, id uuid.UUID) (*Video, error)
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*Video, error)

	// LockForUpdate takes a row-level lock on the video, used by the
	// dispatcher to serialize concurrent repost-cooldown re-checks for
	// the same video across transactions (see post.Repository's
	// MostRecentPosted and the dispatcher's markPosted).
	LockForUpdate(ctx context.Context, id uuid.UUID) error
}
