package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/schedule"
)

// CadenceInput is the request-side shape of a recurrence rule.
type CadenceInput struct {
	Kind       string `validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	HourUTC    int    `validate:"gte=0,lte=23"`
	MinUTC     int    `validate:"gte=0,lte=59"`
	Weekday    int    `validate:"gte=0,lte=6"`
	DayOfMonth int    `validate:"gte=0,lte=31"`
}

func (c CadenceInput) toCadence() schedule.Cadence {
	return schedule.Cadence{
		Kind:       schedule.CadenceKind(c.Kind),
		HourUTC:    c.HourUTC,
		MinUTC:     c.MinUTC,
		Weekday:    timeWeekday(c.Weekday),
		DayOfMonth: c.DayOfMonth,
	}
}

// CreateRecurringScheduleInput creates an ACTIVE RecurringSchedule
// that fires on cadence and rotates through variants, the repost
// core's fixed-interval repurposing feature.
type CreateRecurringScheduleInput struct {
	OwnerUserID uuid.UUID              `validate:"required"`
	VideoID     uuid.UUID              `validate:"required"`
	Targets     []PlatformCaptionInput `validate:"required,min=1,dive"`
	Cadence     CadenceInput           `validate:"required"`
	Variants    []string
}

type CreateRecurringScheduleOutput struct {
	RecurringScheduleID uuid.UUID
	NextOccurrence       string
}

type CreateRecurringScheduleUseCase struct{ d *Deps }

func NewCreateRecurringScheduleUseCase(d *Deps) *CreateRecurringScheduleUseCase {
	return &CreateRecurringScheduleUseCase{d}
}

func (uc *CreateRecurringScheduleUseCase) Execute(ctx context.Context, in CreateRecurringScheduleInput) (*CreateRecurringScheduleOutput, error) {
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
	cadence := in.Cadence.toCadence()
	first := cadence.Next(now)

	r, err := schedule.NewRecurringSchedule(newID(), in.OwnerUserID, in.VideoID, targets, cadence, in.Variants, first, now)
	if err != nil {
		return nil, err
	}
	if err := uc.d.Store.RecurringSchedules().Create(ctx, r); err != nil {
		return nil, err
	}

	return &CreateRecurringScheduleOutput{
		RecurringScheduleID: r.ID(),
		NextOccurrence:       r.NextOccurrence().Format("2006-01-02T15:04:05Z"),
	}, nil
}
