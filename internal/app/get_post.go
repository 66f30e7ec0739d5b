package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/post"
)

// GetPostInput resolves a single MultiPost by id, expanded with its
// per-platform Posts.
type GetPostInput struct {
	MultiPostID uuid.UUID `validate:"required"`
}

type GetPostOutput struct {
	MultiPost MultiPostDTO
}

type GetPostUseCase struct{ d *Deps }

func NewGetPostUseCase(d *Deps) *GetPostUseCase { return &GetPostUseCase{d} }

func (uc *GetPostUseCase) Execute(ctx context.Context, in GetPostInput) (*GetPostOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	mp, err := uc.d.Store.MultiPosts().FindByID(ctx, in.MultiPostID)
	if err != nil {
		return nil, err
	}
	children, err := uc.d.Store.Posts().FindByMultiPostID(ctx, mp.ID())
	if err != nil {
		return nil, err
	}
	dtos := make([]PostDTO, len(children))
	for i, c := range children {
		dtos[i] = toPostDTO(c)
	}

	return &GetPostOutput{MultiPost: MultiPostDTO{
		MultiPostID: mp.ID(),
		VideoID:     mp.VideoID(),
		Status:      post.AggregateStatus(children),
		Posts:       dtos,
	}}, nil
}
