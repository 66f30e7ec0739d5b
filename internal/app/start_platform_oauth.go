package app

import (
	"context"

	"github.com/google/uuid"
)

// StartPlatformOAuthInput begins an OAuth connection flow for one of
// the five supported platforms.
type StartPlatformOAuthInput struct {
	OwnerUserID uuid.UUID `validate:"required"`
	Platform    string    `validate:"required"`
}

type StartPlatformOAuthOutput struct {
	AuthorizationURL string
	State            string
}

type StartPlatformOAuthUseCase struct{ d *Deps }

func NewStartPlatformOAuthUseCase(d *Deps) *StartPlatformOAuthUseCase { return &StartPlatformOAuthUseCase{d} }

func (uc *StartPlatformOAuthUseCase) Execute(ctx context.Context, in StartPlatformOAuthInput) (*StartPlatformOAuthOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	platform, err := normalizePlatform(in.Platform)
	if err != nil {
		return nil, err
	}
	adapter, ok := uc.d.Registry.Get(platform)
	if !ok {
		return nil, configMissingFor(platform)
	}

	state, err := uc.d.StateSigner.Mint(in.OwnerUserID, platform)
	if err != nil {
		return nil, err
	}

	redirectURI := uc.d.RedirectURIs[platform]
	url, err := adapter.AuthorizationURL(ctx, state, redirectURI)
	if err != nil {
		return nil, err
	}

	return &StartPlatformOAuthOutput{AuthorizationURL: url, State: state}, nil
}
