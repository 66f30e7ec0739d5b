package post

import (
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// MultiPost is the user-facing request to publish one source video to
// a set of target platforms. It owns its child Posts; deleting a
// MultiPost cascades to its Posts.
type MultiPost struct {
	id          uuid.UUID
	ownerUserID uuid.UUID
	videoID     uuid.UUID
	platforms   []platformcore.Platform
	createdAt   time.Time
	updatedAt   time.Time
}

// NewMultiPost creates a MultiPost targeting a non-empty set of
// platforms. Callers construct the child Posts separately via NewPost
// once the MultiPost id is known.
func NewMultiPost(id, ownerUserID, videoID uuid.UUID, platforms []platformcore.Platform) (*MultiPost, error) {
	if ownerUserID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if videoID == uuid.Nil {
		return nil, ErrMissingVideo
	}
	if len(platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for _, p := range platforms {
		if !p.Valid() {
			return nil, ErrInvalidPlatform
		}
	}

	now := time.Now().UTC()
	return &MultiPost{
		id:          id,
		ownerUserID: ownerUserID,
		videoID:     videoID,
		platforms:   platforms,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructMultiPost recreates a MultiPost from persistence.
func ReconstructMultiPost(
	id, ownerUserID, videoID uuid.UUID,
	platforms []platformcore.Platform,
	createdAt, updatedAt time.Time,
) *MultiPost {
	return &MultiPost{
		id:          id,
		ownerUserID: ownerUserID,
		videoID:     videoID,
		platforms:   platforms,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Getters
func (m *MultiPost) ID() uuid.UUID                        { return m.id }
func (m *MultiPost) OwnerUserID() uuid.UUID                { return m.ownerUserID }
func (m *MultiPost) VideoID() uuid.UUID                    { return m.videoID }
func (m *MultiPost) Platforms() []platformcore.Platform    { return m.platforms }
func (m *MultiPost) CreatedAt() time.Time                  { return m.createdAt }
func (m *MultiPost) UpdatedAt() time.Time                  { return m.updatedAt }

// AggregateStatus derives a summary status from the given child Posts
// (which the caller must have loaded for this MultiPost's id): POSTED
// only once every child is POSTED, PROCESSING while any child is
// PENDING or PROCESSING, otherwise FAILED if any child is FAILED, and
// CANCELED when the remaining children are a mix of POSTED and
// CANCELED. An empty child list yields PENDING.
func AggregateStatus(children []*Post) Status {
	if len(children) == 0 {
		return StatusPending
	}
	allPosted := true
	anyFailed := false
	anyInFlight := false
	for _, c := range children {
		switch c.Status() {
		case StatusPosted:
		case StatusFailed:
			allPosted = false
			anyFailed = true
		case StatusProcessing, StatusPending:
			allPosted = false
			anyInFlight = true
		case StatusCanceled:
			allPosted = false
		}
	}
	if allPosted {
		return StatusPosted
	}
	if anyInFlight {
		return StatusProcessing
	}
	if anyFailed {
		return StatusFailed
	}
	return StatusCanceled
}
