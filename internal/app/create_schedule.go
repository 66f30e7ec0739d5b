package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/schedule"
)

// CreateScheduleInput creates a one-shot deferred Schedule, left for
// the scheduler beat to fire once ScheduledInstant becomes due.
type CreateScheduleInput struct {
	OwnerUserID      uuid.UUID              `validate:"required"`
	VideoID          uuid.UUID              `validate:"required"`
	Targets          []PlatformCaptionInput `validate:"required,min=1,dive"`
	ScheduledInstant time.Time              `validate:"required"`
}

type CreateScheduleOutput struct {
	ScheduleID uuid.UUID
	Status     schedule.Status
}

type CreateScheduleUseCase struct{ d *Deps }

func NewCreateScheduleUseCase(d *Deps) *CreateScheduleUseCase { return &CreateScheduleUseCase{d} }

func (uc *CreateScheduleUseCase) Execute(ctx context.Context, in CreateScheduleInput) (*CreateScheduleOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	targets, err := toTargets(in.Targets)
	if err != nil {
		return nil, err
	}
	if err := validateTargets(uc.d, targets); err != nil {
		return nil, err
	}

	video, err := uc.d.Store.Videos().FindByID(ctx, in.VideoID)
	if err != nil {
		return nil, err
	}
	if !video.IsReady() {
		return nil, ErrVideoNotReady
	}

	now := uc.d.Clock.Now()
	s, err := schedule.NewSchedule(newID(), in.OwnerUserID, in.VideoID, targets, in.ScheduledInstant, now)
	if err != nil {
		return nil, err
	}
	if err := uc.d.Store.Schedules().Create(ctx, s); err != nil {
		return nil, err
	}

	return &CreateScheduleOutput{ScheduleID: s.ID(), Status: s.Status()}, nil
}
