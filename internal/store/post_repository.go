package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/store/models"
)

type postRepository struct{ s *Store }

func (r postRepository) Create(ctx context.Context, p *post.Post) error {
	row, err := toPostModel(p)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r postRepository) Update(ctx context.Context, p *post.Post) error {
	row, err := toPostModel(p)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Save(row).Error
}

func (r postRepository) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	var row models.Post
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, post.ErrNotFound)
	}
	return fromPostModel(row)
}

func (r postRepository) FindByMultiPostID(ctx context.Context, multiPostID uuid.UUID) ([]*post.Post, error) {
	var rows []models.Post
	err := r.s.DB(ctx).Where("multi_post_id = ?", multiPostID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find posts by multi-post: %w", err)
	}
	return fromPostModels(rows)
}

func (r postRepository) FindByStatus(ctx context.Context, status post.Status, offset, limit int) ([]*post.Post, error) {
	var rows []models.Post
	err := r.s.DB(ctx).Where("status = ?", string(status)).
		Order("updated_at asc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find posts by status: %w", err)
	}
	return fromPostModels(rows)
}

// ClaimDue locks up to limit PENDING posts with SELECT ... FOR UPDATE
// SKIP LOCKED, the way the teacher drops to raw SQL in
// team_repository.go for anything the query builder can't express
// cleanly, generalized here to skip-locked row claiming so multiple
// callers can claim concurrently without contention.
func (r postRepository) ClaimDue(ctx context.Context, before time.Time, limit int) ([]*post.Post, error) {
	var rows []models.Post
	err := r.s.DB(ctx).Raw(
		`SELECT * FROM posts WHERE status = ? AND updated_at <= ? ORDER BY updated_at ASC LIMIT ? FOR UPDATE SKIP LOCKED`,
		string(post.StatusPending), before, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: claim due posts: %w", err)
	}
	return fromPostModels(rows)
}

// MostRecentPosted returns the most recent POSTED post for
// (ownerUserID, videoID, platform), joining through multi_posts since
// posts only carries multi_post_id, not owner/video directly.
func (r postRepository) MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*post.Post, error) {
	var row models.Post
	err := r.s.DB(ctx).
		Joins("JOIN multi_posts ON multi_posts.id = posts.multi_post_id").
		Where("multi_posts.owner_user_id = ? AND multi_posts.video_id = ? AND posts.platform = ? AND posts.status = ?",
			ownerUserID, videoID, platform, string(post.StatusPosted)).
		Order("posts.updated_at desc").
		First(&row).Error
	if err != nil {
		return nil, wrapNotFound(err, post.ErrNotFound)
	}
	return fromPostModel(row)
}

func toPostModel(p *post.Post) (*models.Post, error) {
	return &models.Post{
		ID:               p.ID(),
		MultiPostID:      p.MultiPostID(),
		Platform:         string(p.Platform()),
		Caption:          p.Caption(),
		Tags:             pq.StringArray(p.Tags()),
		Status:           string(p.Status()),
		Attempt:          p.Attempt(),
		LastErrorKind:    p.LastErrorKind(),
		LastErrorMessage: p.LastErrorMessage(),
		PlatformPostID:   p.PlatformPostID(),
		PlatformPostURL:  p.PlatformPostURL(),
		CreatedAt:        p.CreatedAt(),
		UpdatedAt:        p.UpdatedAt(),
	}, nil
}

func fromPostModel(row models.Post) (*post.Post, error) {
	return post.Reconstruct(
		row.ID, row.MultiPostID, platformcore.Platform(row.Platform), row.Caption, []string(row.Tags),
		post.Status(row.Status), row.Attempt, row.LastErrorKind, row.LastErrorMessage,
		row.PlatformPostID, row.PlatformPostURL, row.CreatedAt, row.UpdatedAt,
	), nil
}

func fromPostModels(rows []models.Post) ([]*post.Post, error) {
	out := make([]*post.Post, 0, len(rows))
	for _, row := range rows {
		p, err := fromPostModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type multiPostRepository struct{ s *Store }

func (r multiPostRepository) Create(ctx context.Context, mp *post.MultiPost) error {
	row, err := toMultiPostModel(mp)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r multiPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*post.MultiPost, error) {
	var row models.MultiPost
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, post.ErrNotFound)
	}
	return fromMultiPostModel(row)
}

func (r multiPostRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*post.MultiPost, error) {
	var rows []models.MultiPost
	err := r.s.DB(ctx).Where("owner_user_id = ?", ownerUserID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find multi-posts by owner: %w", err)
	}
	out := make([]*post.MultiPost, 0, len(rows))
	for _, row := range rows {
		mp, err := fromMultiPostModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, nil
}

func (r multiPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.DB(ctx).Delete(&models.MultiPost{}, "id = ?", id).Error
}

func toMultiPostModel(mp *post.MultiPost) (*models.MultiPost, error) {
	platforms := make([]string, 0, len(mp.Platforms()))
	for _, p := range mp.Platforms() {
		platforms = append(platforms, string(p))
	}
	return &models.MultiPost{
		ID:          mp.ID(),
		OwnerUserID: mp.OwnerUserID(),
		VideoID:     mp.VideoID(),
		Platforms:   pq.StringArray(platforms),
		CreatedAt:   mp.CreatedAt(),
		UpdatedAt:   mp.UpdatedAt(),
	}, nil
}

func fromMultiPostModel(row models.MultiPost) (*post.MultiPost, error) {
	platforms := make([]platformcore.Platform, 0, len(row.Platforms))
	for _, n := range row.Platforms {
		platforms = append(platforms, platformcore.Platform(n))
	}
	return post.ReconstructMultiPost(row.ID, row.OwnerUserID, row.VideoID, platforms, row.CreatedAt, row.UpdatedAt), nil
}

type outcomeRepository struct{ s *Store }

func (r outcomeRepository) Append(ctx context.Context, o *post.Outcome) error {
	row := &models.PostOutcome{
		ID:              o.ID(),
		PostID:          o.PostID(),
		Attempt:         o.Attempt(),
		StartedAt:       o.StartedAt(),
		EndedAt:         o.EndedAt(),
		Kind:            string(o.Kind()),
		ErrorKind:       o.ErrorKind(),
		ResponseExcerpt: o.ResponseExcerpt(),
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r outcomeRepository) FindByPostID(ctx context.Context, postID uuid.UUID) ([]*post.Outcome, error) {
	var rows []models.PostOutcome
	err := r.s.DB(ctx).Where("post_id = ?", postID).Order("started_at asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find outcomes by post: %w", err)
	}
	out := make([]*post.Outcome, 0, len(rows))
	for _, row := range rows {
		out = append(out, post.NewOutcome(row.ID, row.PostID, row.Attempt, row.StartedAt, row.EndedAt,
			post.OutcomeKind(row.Kind), row.ErrorKind, row.ResponseExcerpt))
	}
	return out, nil
}
