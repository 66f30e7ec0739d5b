package app

import (
	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/platformcore"
)

// PostDTO is the read-side shape of a single per-platform Post,
// shared by list_posts and get_post so both operations render the
// same view.
type PostDTO struct {
	PostID           uuid.UUID
	MultiPostID      uuid.UUID
	Platform         platformcore.Platform
	Caption          string
	Status           post.Status
	Attempt          int
	LastErrorKind    string
	LastErrorMessage string
	PlatformPostID   string
	PlatformPostURL  string
}

func toPostDTO(p *post.Post) PostDTO {
	return PostDTO{
		PostID:           p.ID(),
		MultiPostID:      p.MultiPostID(),
		Platform:         p.Platform(),
		Caption:          p.Caption(),
		Status:           p.Status(),
		Attempt:          p.Attempt(),
		LastErrorKind:    p.LastErrorKind(),
		LastErrorMessage: p.LastErrorMessage(),
		PlatformPostID:   p.PlatformPostID(),
		PlatformPostURL:  p.PlatformPostURL(),
	}
}

// MultiPostDTO groups a MultiPost with its materialized per-platform
// Posts and their aggregate status.
type MultiPostDTO struct {
	MultiPostID uuid.UUID
	VideoID     uuid.UUID
	Status      post.Status
	Posts       []PostDTO
}
