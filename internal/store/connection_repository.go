package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/store/models"
)

type connectionRepository struct{ s *Store }

func (r connectionRepository) Create(ctx context.Context, c *connection.PlatformConnection) error {
	row, err := toConnectionModel(c)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r connectionRepository) Update(ctx context.Context, c *connection.PlatformConnection) error {
	row, err := toConnectionModel(c)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Save(row).Error
}

func (r connectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*connection.PlatformConnection, error) {
	var row models.PlatformConnection
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, connection.ErrNotFound)
	}
	return fromConnectionModel(row)
}

func (r connectionRepository) FindActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform) (*connection.PlatformConnection, error) {
	var row models.PlatformConnection
	err := r.s.DB(ctx).
		Where("owner_user_id = ? AND platform = ? AND status = ?", ownerUserID, string(platform), string(connection.StatusActive)).
		Order("created_at desc").
		First(&row).Error
	if err != nil {
		return nil, wrapNotFound(err, connection.ErrNotConnected)
	}
	return fromConnectionModel(row)
}

func (r connectionRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*connection.PlatformConnection, error) {
	var rows []models.PlatformConnection
	err := r.s.DB(ctx).Where("owner_user_id = ?", ownerUserID).Order("created_at desc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find connections by owner: %w", err)
	}
	out := make([]*connection.PlatformConnection, 0, len(rows))
	for _, row := range rows {
		c, err := fromConnectionModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r connectionRepository) ExistsActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform, platformAccountID string) (bool, error) {
	var count int64
	err := r.s.DB(ctx).Model(&models.PlatformConnection{}).
		Where("owner_user_id = ? AND platform = ? AND platform_account_id = ? AND status = ?",
			ownerUserID, string(platform), platformAccountID, string(connection.StatusActive)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("store: check active connection: %w", err)
	}
	return count > 0, nil
}

func toConnectionModel(c *connection.PlatformConnection) (*models.PlatformConnection, error) {
	return &models.PlatformConnection{
		ID:                 c.ID(),
		OwnerUserID:        c.OwnerUserID(),
		Platform:           string(c.Platform()),
		PlatformAccountID:  c.PlatformAccountID(),
		DisplayName:        c.DisplayName(),
		Scope:              pq.StringArray(c.Scope()),
		SealedAccessToken:  c.SealedAccessToken(),
		SealedRefreshToken: c.SealedRefreshToken(),
		AccessTokenExpiry:  c.AccessTokenExpiry(),
		Status:             string(c.Status()),
		CreatedAt:          c.CreatedAt(),
		UpdatedAt:          c.UpdatedAt(),
	}, nil
}

func fromConnectionModel(row models.PlatformConnection) (*connection.PlatformConnection, error) {
	return connection.Reconstruct(
		row.ID, row.OwnerUserID, platformcore.Platform(row.Platform), row.PlatformAccountID, row.DisplayName,
		[]string(row.Scope), row.SealedAccessToken, row.SealedRefreshToken, row.AccessTokenExpiry,
		connection.Status(row.Status), row.CreatedAt, row.UpdatedAt,
	), nil
}
