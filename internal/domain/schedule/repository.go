package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists one-shot Schedules and implements the
// due-selection query the scheduler beat uses each tick.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*Schedule, error)

	// ClaimDuePending locks and returns up to limit PENDING schedules
	// due by `before`, via SELECT ... FOR UPDATE SKIP LOCKED so
	// multiple scheduler instances can tick concurrently.
	ClaimDuePending(ctx context.Context, before time.Time, limit int) ([]*Schedule, error)
}

// RecurringRepository persists RecurringSchedules and implements the
// equivalent due-selection query for the recurring half of the beat.
type RecurringRepository interface {
	Create(ctx context.Context, r *RecurringSchedule) error
	Update(ctx context.Context, r *RecurringSchedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*RecurringSchedule, error)
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*RecurringSchedule, error)

	// ClaimDueActive locks and returns up to limit ACTIVE recurring
	// schedules whose next_occurrence is due by `before`.
	ClaimDueActive(ctx context.Context, before time.Time, limit int) ([]*RecurringSchedule, error)
}
