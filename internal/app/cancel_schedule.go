package app

import (
	"context"

	"github.com/google/uuid"
)

// CancelScheduleInput cancels a PENDING one-shot Schedule before it
// fires.
type CancelScheduleInput struct {
	ScheduleID uuid.UUID `validate:"required"`
}

type CancelScheduleOutput struct {
	ScheduleID uuid.UUID
}

type CancelScheduleUseCase struct{ d *Deps }

func NewCancelScheduleUseCase(d *Deps) *CancelScheduleUseCase { return &CancelScheduleUseCase{d} }

func (uc *CancelScheduleUseCase) Execute(ctx context.Context, in CancelScheduleInput) (*CancelScheduleOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	s, err := uc.d.Store.Schedules().FindByID(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	if err := s.Cancel(uc.d.Clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.d.Store.Schedules().Update(ctx, s); err != nil {
		return nil, err
	}

	return &CancelScheduleOutput{ScheduleID: s.ID()}, nil
}
