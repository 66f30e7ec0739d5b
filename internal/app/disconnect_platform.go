package app

import (
	"context"

	"github.com/google/uuid"
)

// DisconnectPlatformInput deactivates an existing PlatformConnection,
// the explicit-user counterpart to the dispatcher's automatic
// MarkInactive on AUTH_REVOKED.
type DisconnectPlatformInput struct {
	ConnectionID uuid.UUID `validate:"required"`
}

type DisconnectPlatformOutput struct {
	ConnectionID uuid.UUID
}

type DisconnectPlatformUseCase struct{ d *Deps }

func NewDisconnectPlatformUseCase(d *Deps) *DisconnectPlatformUseCase { return &DisconnectPlatformUseCase{d} }

func (uc *DisconnectPlatformUseCase) Execute(ctx context.Context, in DisconnectPlatformInput) (*DisconnectPlatformOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	conn, err := uc.d.Store.Connections().FindByID(ctx, in.ConnectionID)
	if err != nil {
		return nil, err
	}
	if err := conn.MarkInactive(); err != nil {
		return nil, err
	}
	if err := uc.d.Store.Connections().Update(ctx, conn); err != nil {
		return nil, err
	}

	return &DisconnectPlatformOutput{ConnectionID: conn.ID()}, nil
}
