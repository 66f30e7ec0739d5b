package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// Service provides domain-level business logic spanning MultiPost and
// its child Posts, mirroring the teacher's repository-backed Service
// shape while operating over the split aggregate this system uses.
type Service struct {
	multiPosts MultiPostRepository
	posts      Repository
}

// NewService creates a new post domain service.
func NewService(multiPosts MultiPostRepository, posts Repository) *Service {
	return &Service{multiPosts: multiPosts, posts: posts}
}

// CreateMultiPost creates a MultiPost and materializes one PENDING
// Post per target platform.
func (s *Service) CreateMultiPost(ctx context.Context, ownerUserID, videoID uuid.UUID, platforms []platformcore.Platform, caption string, tags []string) (*MultiPost, []*Post, error) {
	mp, err := NewMultiPost(uuid.Must(uuid.NewV7()), ownerUserID, videoID, platforms)
	if err != nil {
		return nil, nil, err
	}
	if err := s.multiPosts.Create(ctx, mp); err != nil {
		return nil, nil, fmt.Errorf("create multi-post: %w", err)
	}

	children := make([]*Post, 0, len(platforms))
	for _, platform := range platforms {
		p, err := NewPost(uuid.Must(uuid.NewV7()), mp.ID(), platform, caption, tags)
		if err != nil {
			return mp, children, err
		}
		if err := s.posts.Create(ctx, p); err != nil {
			return mp, children, fmt.Errorf("create post for %s: %w", platform, err)
		}
		children = append(children, p)
	}

	return mp, children, nil
}

// CancelMultiPost cancels every non-terminal child Post of a MultiPost.
func (s *Service) CancelMultiPost(ctx context.Context, multiPostID uuid.UUID) error {
	children, err := s.posts.FindByMultiPostID(ctx, multiPostID)
	if err != nil {
		return fmt.Errorf("find children: %w", err)
	}
	for _, c := range children {
		if c.IsTerminal() {
			continue
		}
		if err := c.Cancel(); err != nil {
			continue
		}
		if err := s.posts.Update(ctx, c); err != nil {
			return fmt.Errorf("cancel post %s: %w", c.ID(), err)
		}
	}
	return nil
}

// Status derives the MultiPost's aggregate status from its current
// children.
func (s *Service) Status(ctx context.Context, multiPostID uuid.UUID) (Status, error) {
	children, err := s.posts.FindByMultiPostID(ctx, multiPostID)
	if err != nil {
		return "", fmt.Errorf("find children: %w", err)
	}
	return AggregateStatus(children), nil
}

// ClaimDueForDispatch returns up to limit PENDING posts last updated
// at or before now, locked via the repository's ClaimDue.
// internal/dispatcher does not call it; its workers take their work
// from the job broker.
func (s *Service) ClaimDueForDispatch(ctx context.Context, now time.Time, limit int) ([]*Post, error) {
	return s.posts.ClaimDue(ctx, now, limit)
}
