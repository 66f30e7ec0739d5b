package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/schedule"
)

type PauseRecurringInput struct {
	RecurringScheduleID uuid.UUID `validate:"required"`
}

type PauseRecurringOutput struct {
	RecurringScheduleID uuid.UUID
	State                schedule.RecurringState
}

type PauseRecurringUseCase struct{ d *Deps }

func NewPauseRecurringUseCase(d *Deps) *PauseRecurringUseCase { return &PauseRecurringUseCase{d} }

func (uc *PauseRecurringUseCase) Execute(ctx context.Context, in PauseRecurringInput) (*PauseRecurringOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	r, err := uc.d.Store.RecurringSchedules().FindByID(ctx, in.RecurringScheduleID)
	if err != nil {
		return nil, err
	}
	if err := r.Pause(uc.d.Clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.d.Store.RecurringSchedules().Update(ctx, r); err != nil {
		return nil, err
	}

	return &PauseRecurringOutput{RecurringScheduleID: r.ID(), State: r.State()}, nil
}
