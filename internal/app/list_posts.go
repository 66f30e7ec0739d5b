package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/post"
)

// ListPostsInput paginates a user's MultiPosts, each expanded with its
// per-platform Posts and an aggregate status.
type ListPostsInput struct {
	OwnerUserID uuid.UUID `validate:"required"`
	Offset      int       `validate:"gte=0"`
	Limit       int       `validate:"gt=0,lte=100"`
}

type ListPostsOutput struct {
	MultiPosts []MultiPostDTO
}

type ListPostsUseCase struct{ d *Deps }

func NewListPostsUseCase(d *Deps) *ListPostsUseCase { return &ListPostsUseCase{d} }

func (uc *ListPostsUseCase) Execute(ctx context.Context, in ListPostsInput) (*ListPostsOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	mps, err := uc.d.Store.MultiPosts().FindByOwner(ctx, in.OwnerUserID, in.Offset, in.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]MultiPostDTO, 0, len(mps))
	for _, mp := range mps {
		children, err := uc.d.Store.Posts().FindByMultiPostID(ctx, mp.ID())
		if err != nil {
			return nil, err
		}
		dtos := make([]PostDTO, len(children))
		for i, c := range children {
			dtos[i] = toPostDTO(c)
		}
		out = append(out, MultiPostDTO{
			MultiPostID: mp.ID(),
			VideoID:     mp.VideoID(),
			Status:      post.AggregateStatus(children),
			Posts:       dtos,
		})
	}

	return &ListPostsOutput{MultiPosts: out}, nil
}
