package app

import (
	"context"

	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/platformcore"
)

// CompletePlatformOAuthInput finishes an OAuth authorization-code
// exchange and persists a new PlatformConnection, verifying the state
// token minted by StartPlatformOAuthUseCase round-tripped intact.
type CompletePlatformOAuthInput struct {
	State       string `validate:"required"`
	Code        string `validate:"required"`
	RedirectURI string `validate:"required"`
}

type CompletePlatformOAuthOutput struct {
	ConnectionID     string
	Platform         platformcore.Platform
	PlatformUsername string
}

type CompletePlatformOAuthUseCase struct{ d *Deps }

func NewCompletePlatformOAuthUseCase(d *Deps) *CompletePlatformOAuthUseCase {
	return &CompletePlatformOAuthUseCase{d}
}

func (uc *CompletePlatformOAuthUseCase) Execute(ctx context.Context, in CompletePlatformOAuthInput) (*CompletePlatformOAuthOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	ownerUserID, platform, err := uc.d.StateSigner.Verify(in.State)
	if err != nil {
		return nil, err
	}

	adapter, ok := uc.d.Registry.Get(platform)
	if !ok {
		return nil, configMissingFor(platform)
	}

	tokenResp, err := adapter.ExchangeCode(ctx, in.Code, in.RedirectURI)
	if err != nil {
		return nil, err
	}

	account, err := adapter.FetchAccountInfo(ctx, platformcore.Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    tokenResp.ExpiresAt,
		Scope:        tokenResp.Scope,
	})
	if err != nil {
		return nil, err
	}

	exists, err := uc.d.Store.Connections().ExistsActive(ctx, ownerUserID, platform, account.PlatformUserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, connection.ErrDuplicateConnection
	}

	sealedAccess, err := uc.d.Secrets.SealString(tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}
	var sealedRefresh []byte
	if tokenResp.RefreshToken != "" {
		sealedRefresh, err = uc.d.Secrets.SealString(tokenResp.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	scope := []string{}
	if tokenResp.Scope != "" {
		scope = append(scope, tokenResp.Scope)
	}

	conn, err := connection.NewConnection(
		newID(), ownerUserID, platform,
		account.PlatformUserID, account.DisplayName,
		scope, sealedAccess, sealedRefresh, tokenResp.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if err := uc.d.Store.Connections().Create(ctx, conn); err != nil {
		return nil, err
	}

	return &CompletePlatformOAuthOutput{
		ConnectionID:     conn.ID().String(),
		Platform:         platform,
		PlatformUsername: account.Username,
	}, nil
}
