package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/video"
)

// CreateVideoIntentInput declares an upcoming video upload before any
// bytes exist, so the caller (the excluded HTTP layer) can obtain a
// presigned URL to PUT the file directly to the object store.
type CreateVideoIntentInput struct {
	OwnerUserID uuid.UUID `validate:"required"`
	ContentType string    `validate:"required"`
}

type CreateVideoIntentOutput struct {
	VideoID       uuid.UUID
	PresignedPUT  string
	ObjectKey     string
}

type CreateVideoIntentUseCase struct{ d *Deps }

func NewCreateVideoIntentUseCase(d *Deps) *CreateVideoIntentUseCase { return &CreateVideoIntentUseCase{d} }

func (uc *CreateVideoIntentUseCase) Execute(ctx context.Context, in CreateVideoIntentInput) (*CreateVideoIntentOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	id := newID()
	objectKey := "videos/" + in.OwnerUserID.String() + "/" + id.String()

	v, err := video.NewVideo(id, in.OwnerUserID, objectKey)
	if err != nil {
		return nil, err
	}
	if err := uc.d.Store.Videos().Create(ctx, v); err != nil {
		return nil, err
	}

	url, err := uc.d.ObjectStore.PresignedPutURL(ctx, objectKey, in.ContentType)
	if err != nil {
		return nil, err
	}

	return &CreateVideoIntentOutput{VideoID: v.ID(), PresignedPUT: url, ObjectKey: objectKey}, nil
}
