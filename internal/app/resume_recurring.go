package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/schedule"
)

type ResumeRecurringInput struct {
	RecurringScheduleID uuid.UUID `validate:"required"`
}

type ResumeRecurringOutput struct {
	RecurringScheduleID uuid.UUID
	State                schedule.RecurringState
	NextOccurrence       string
}

type ResumeRecurringUseCase struct{ d *Deps }

func NewResumeRecurringUseCase(d *Deps) *ResumeRecurringUseCase { return &ResumeRecurringUseCase{d} }

func (uc *ResumeRecurringUseCase) Execute(ctx context.Context, in ResumeRecurringInput) (*ResumeRecurringOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	r, err := uc.d.Store.RecurringSchedules().FindByID(ctx, in.RecurringScheduleID)
	if err != nil {
		return nil, err
	}
	if err := r.Resume(uc.d.Clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.d.Store.RecurringSchedules().Update(ctx, r); err != nil {
		return nil, err
	}

	return &ResumeRecurringOutput{
		RecurringScheduleID: r.ID(),
		State:                r.State(),
		NextOccurrence:       r.NextOccurrence().Format("2006-01-02T15:04:05Z"),
	}, nil
}
