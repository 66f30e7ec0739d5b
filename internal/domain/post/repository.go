package post

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MultiPostRepository persists MultiPost aggregates.
type MultiPostRepository interface {
	Create(ctx context.Context, mp *MultiPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*MultiPost, error)
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*MultiPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository persists per-platform Post instances and implements the
// claiming queries the scheduler and dispatcher rely on.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	Update(ctx context.Context, p *Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*Post, error)
	FindByMultiPostID(ctx context.Context, multiPostID uuid.UUID) ([]*Post, error)
	FindByStatus(ctx context.Context, status Status, offset, limit int) ([]*Post, error)

	// ClaimDue locks and returns up to limit PENDING posts that are due
	// for dispatch, using SELECT ... FOR UPDATE SKIP LOCKED semantics so
	// multiple dispatcher instances can claim concurrently without
	// double-processing the same row.
	ClaimDue(ctx context.Context, before time.Time, limit int) ([]*Post, error)

	// MostRecentPosted returns the most recent POSTED post for the
	// given (owner, video, platform) triple — a join against the
	// owning MultiPost's video_id, since Post itself only carries
	// multi_post_id — used by the repost governor's cooldown check.
	// Returns ErrNotFound if none exists.
	MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*Post, error)
}
