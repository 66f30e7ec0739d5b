package app

import (
	"context"

	"github.com/google/uuid"
)

// CreateMultiPostInput schedules an immediate (or near-immediate)
// repost of a ready Video across one or more platforms, bypassing the
// Scheduling & Dispatch Engine's beat entirely — the fan-out and
// enqueue happen synchronously inside this use-case instead of
// waiting for a Schedule to become due.
type CreateMultiPostInput struct {
	OwnerUserID uuid.UUID              `validate:"required"`
	VideoID     uuid.UUID              `validate:"required"`
	Targets     []PlatformCaptionInput `validate:"required,min=1,dive"`
}

type CreateMultiPostOutput struct {
	MultiPostID uuid.UUID
	PostIDs     []uuid.UUID
}

type CreateMultiPostUseCase struct{ d *Deps }

func NewCreateMultiPostUseCase(d *Deps) *CreateMultiPostUseCase { return &CreateMultiPostUseCase{d} }

func (uc *CreateMultiPostUseCase) Execute(ctx context.Context, in CreateMultiPostInput) (*CreateMultiPostOutput, error) {
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

	var mpID uuid.UUID
	var postIDs []uuid.UUID
	err = uc.d.Store.WithTx(ctx, func(ctx context.Context) error {
		mp, children, err := materialize(ctx, uc.d, in.OwnerUserID, in.VideoID, targets)
		if err != nil {
			return err
		}
		mpID = mp.ID()
		for _, p := range children {
			postIDs = append(postIDs, p.ID())
		}
		return enqueuePosts(ctx, uc.d, children)
	})
	if err != nil {
		return nil, err
	}

	return &CreateMultiPostOutput{MultiPostID: mpID, PostIDs: postIDs}, nil
}
