package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/videocast/scheduler/internal/domain/schedule"
	"github.com/videocast/scheduler/internal/store/models"
)

type scheduleRepository struct{ s *Store }

func (r scheduleRepository) Create(ctx context.Context, sc *schedule.Schedule) error {
	row, err := toScheduleModel(sc)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r scheduleRepository) Update(ctx context.Context, sc *schedule.Schedule) error {
	row, err := toScheduleModel(sc)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Save(row).Error
}

func (r scheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	var row models.Schedule
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, schedule.ErrNotFound)
	}
	return fromScheduleModel(row)
}

func (r scheduleRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*schedule.Schedule, error) {
	var rows []models.Schedule
	err := r.s.DB(ctx).Where("owner_user_id = ?", ownerUserID).
		Order("scheduled_instant asc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find schedules by owner: %w", err)
	}
	out := make([]*schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		sc, err := fromScheduleModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// ClaimDuePending locks up to limit PENDING schedules due by `before`
// via SELECT ... FOR UPDATE SKIP LOCKED, letting multiple scheduler
// processes tick concurrently per spec §5.
func (r scheduleRepository) ClaimDuePending(ctx context.Context, before time.Time, limit int) ([]*schedule.Schedule, error) {
	var rows []models.Schedule
	err := r.s.DB(ctx).Raw(
		`SELECT * FROM schedules WHERE status = ? AND scheduled_instant <= ? ORDER BY scheduled_instant ASC LIMIT ? FOR UPDATE SKIP LOCKED`,
		string(schedule.StatusPending), before, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: claim due schedules: %w", err)
	}
	out := make([]*schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		sc, err := fromScheduleModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func toScheduleModel(sc *schedule.Schedule) (*models.Schedule, error) {
	raw, err := json.Marshal(sc.Targets())
	if err != nil {
		return nil, fmt.Errorf("store: marshal schedule targets: %w", err)
	}
	return &models.Schedule{
		ID:               sc.ID(),
		OwnerUserID:      sc.OwnerUserID(),
		VideoID:          sc.VideoID(),
		TargetsRaw:       string(raw),
		ScheduledInstant: sc.ScheduledInstant(),
		Status:           string(sc.Status()),
		CreatedAt:        sc.CreatedAt(),
		UpdatedAt:        sc.UpdatedAt(),
	}, nil
}

func fromScheduleModel(row models.Schedule) (*schedule.Schedule, error) {
	var targets []schedule.PlatformCaption
	if row.TargetsRaw != "" {
		if err := json.Unmarshal([]byte(row.TargetsRaw), &targets); err != nil {
			return nil, fmt.Errorf("store: unmarshal schedule targets: %w", err)
		}
	}
	return schedule.Reconstruct(
		row.ID, row.OwnerUserID, row.VideoID, targets, row.ScheduledInstant,
		schedule.Status(row.Status), row.CreatedAt, row.UpdatedAt,
	), nil
}

type recurringScheduleRepository struct{ s *Store }

func (r recurringScheduleRepository) Create(ctx context.Context, rs *schedule.RecurringSchedule) error {
	row, err := toRecurringModel(rs)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Create(row).Error
}

func (r recurringScheduleRepository) Update(ctx context.Context, rs *schedule.RecurringSchedule) error {
	row, err := toRecurringModel(rs)
	if err != nil {
		return err
	}
	return r.s.DB(ctx).Save(row).Error
}

func (r recurringScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*schedule.RecurringSchedule, error) {
	var row models.RecurringSchedule
	err := r.s.DB(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, schedule.ErrNotFound)
	}
	return fromRecurringModel(row)
}

func (r recurringScheduleRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*schedule.RecurringSchedule, error) {
	var rows []models.RecurringSchedule
	err := r.s.DB(ctx).Where("owner_user_id = ?", ownerUserID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: find recurring schedules by owner: %w", err)
	}
	out := make([]*schedule.RecurringSchedule, 0, len(rows))
	for _, row := range rows {
		rs, err := fromRecurringModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r recurringScheduleRepository) ClaimDueActive(ctx context.Context, before time.Time, limit int) ([]*schedule.RecurringSchedule, error) {
	var rows []models.RecurringSchedule
	err := r.s.DB(ctx).Raw(
		`SELECT * FROM recurring_schedules WHERE state = ? AND next_occurrence <= ? ORDER BY next_occurrence ASC LIMIT ? FOR UPDATE SKIP LOCKED`,
		string(schedule.RecurringActive), before, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: claim due recurring schedules: %w", err)
	}
	out := make([]*schedule.RecurringSchedule, 0, len(rows))
	for _, row := range rows {
		rs, err := fromRecurringModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func toRecurringModel(rs *schedule.RecurringSchedule) (*models.RecurringSchedule, error) {
	targetsRaw, err := json.Marshal(rs.Targets())
	if err != nil {
		return nil, fmt.Errorf("store: marshal recurring targets: %w", err)
	}
	cadenceRaw, err := json.Marshal(rs.Cadence())
	if err != nil {
		return nil, fmt.Errorf("store: marshal cadence: %w", err)
	}
	return &models.RecurringSchedule{
		ID:             rs.ID(),
		OwnerUserID:    rs.OwnerUserID(),
		VideoID:        rs.VideoID(),
		TargetsRaw:     string(targetsRaw),
		CadenceRaw:     string(cadenceRaw),
		Variants:       pq.StringArray(rs.Variants()),
		Cursor:         rs.Cursor(),
		State:          string(rs.State()),
		NextOccurrence: rs.NextOccurrence(),
		CreatedAt:      rs.CreatedAt(),
		UpdatedAt:      rs.UpdatedAt(),
	}, nil
}

func fromRecurringModel(row models.RecurringSchedule) (*schedule.RecurringSchedule, error) {
	var targets []schedule.PlatformCaption
	if row.TargetsRaw != "" {
		if err := json.Unmarshal([]byte(row.TargetsRaw), &targets); err != nil {
			return nil, fmt.Errorf("store: unmarshal recurring targets: %w", err)
		}
	}
	var cadence schedule.Cadence
	if row.CadenceRaw != "" {
		if err := json.Unmarshal([]byte(row.CadenceRaw), &cadence); err != nil {
			return nil, fmt.Errorf("store: unmarshal cadence: %w", err)
		}
	}
	return schedule.ReconstructRecurring(
		row.ID, row.OwnerUserID, row.VideoID, targets, cadence, []string(row.Variants), row.Cursor,
		schedule.RecurringState(row.State), row.NextOccurrence, row.CreatedAt, row.UpdatedAt,
	), nil
}
