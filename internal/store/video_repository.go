package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/videocast/scheduler/internal/domain/video"
	"github.com/videocast/scheduler/internal/store/models"
)

type videoRepository struct{ s *Store }

func (r videoRepository) Create(ctx context.Context, v *video.Video) error {
	row, err := toVideoModel(v)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r videoRepository) Update(ctx context.Context, v *video.Video) error {
	row, err := toVideoModel(v)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Save(row).Error
}

func (r videoRepository) FindByID(ctx context.Context, id uuid.UUID) (*video.Video, error) {
	var row models.Video
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, video.ErrNotFound)
	}
	return fromVideoModel(row)
}

// LockForUpdate takes a SELECT ... FOR UPDATE row lock on the video,
// the same raw-SQL-for-locking technique as postRepository.ClaimDue.
// Called at the top of the dispatcher's markPosted transaction so a
// concurrent attempt publishing the same video serializes behind this
// one instead of racing the repost-cooldown re-check.
func (r videoRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var row models.Video
	err := r.s.DB(ctx).Raw(`SELECT id FROM videos WHERE id = ? FOR UPDATE`, id).Scan(&row).Error
	if err != nil {
		return fmt.Errorf("store: lock video for update: %w", err)
	}
	return nil
}

func (r videoRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*video.Video, error) {
	var rows []models.Video
	err := r.s.DB(ctx).Where("owner_user_id = ?", ownerUserID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find videos by owner: %w", err)
	}
	out := make([]*video.Video, 0, len(rows))
	for _, row := range rows {
		v, err := fromVideoModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toVideoModel(v *video.Video) (*models.Video, error) {
	format := v.Format()
	return &models.Video{
		ID:             v.ID(),
		OwnerUserID:    v.OwnerUserID(),
		ObjectKey:      v.ObjectKey(),
		Container:      format.Container,
		Codec:          format.Codec,
		DurationMS:     format.DurationMS,
		Width:          format.Width,
		Height:         format.Height,
		SizeBytes:      format.SizeBytes,
		Status:         string(v.Status()),
		DefaultCaption: v.DefaultCaption(),
		DefaultTags:    pq.StringArray(v.DefaultTags()),
		CreatedAt:      v.CreatedAt(),
		UpdatedAt:      v.UpdatedAt(),
	}, nil
}

func fromVideoModel(row models.Video) (*video.Video, error) {
	format := video.Format{
		Container:  row.Container,
		Codec:      row.Codec,
		DurationMS: row.DurationMS,
		Width:      row.Width,
		Height:     row.Height,
		SizeBytes:  row.SizeBytes,
	}
	return video.Reconstruct(
		row.ID, row.OwnerUserID, row.ObjectKey, format, video.Status(row.Status),
		row.DefaultCaption, []string(row.DefaultTags), row.CreatedAt, row.UpdatedAt,
	), nil
}
