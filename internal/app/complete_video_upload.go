package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/video"
)

// CompleteVideoUploadInput records the format metadata the client
// observed after a successful upload to the presigned URL, the point
// at which a Video becomes immutable except for its caption/tag
// defaults.
type CompleteVideoUploadInput struct {
	VideoID    uuid.UUID `validate:"required"`
	Container  string    `validate:"required"`
	Codec      string    `validate:"required"`
	DurationMS int64     `validate:"required,gt=0"`
	Width      int       `validate:"required,gt=0"`
	Height     int       `validate:"required,gt=0"`
	SizeBytes  int64     `validate:"required,gt=0"`
}

type CompleteVideoUploadOutput struct {
	VideoID uuid.UUID
	Status  video.Status
}

type CompleteVideoUploadUseCase struct{ d *Deps }

func NewCompleteVideoUploadUseCase(d *Deps) *CompleteVideoUploadUseCase {
	return &CompleteVideoUploadUseCase{d}
}

func (uc *CompleteVideoUploadUseCase) Execute(ctx context.Context, in CompleteVideoUploadInput) (*CompleteVideoUploadOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	v, err := uc.d.Store.Videos().FindByID(ctx, in.VideoID)
	if err != nil {
		return nil, err
	}

	format := video.Format{
		Container:  in.Container,
		Codec:      in.Codec,
		DurationMS: in.DurationMS,
		Width:      in.Width,
		Height:     in.Height,
		SizeBytes:  in.SizeBytes,
	}
	if err := v.MarkReady(format); err != nil {
		return nil, err
	}
	if err := uc.d.Store.Videos().Update(ctx, v); err != nil {
		return nil, err
	}

	return &CompleteVideoUploadOutput{VideoID: v.ID(), Status: v.Status()}, nil
}
