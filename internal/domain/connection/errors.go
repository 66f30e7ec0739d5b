package connection

import "errors"

var (
	ErrInvalidOwner             = errors.New("connection: owner user id is required")
	ErrInvalidPlatform          = errors.New("connection: unknown platform")
	ErrMissingPlatformAccountID = errors.New("connection: platform account id is required")
	ErrConnectionInactive       = errors.New("connection: cannot refresh an inactive connection")
	ErrConnectionAlreadyInactive = errors.New("connection: already inactive")
	ErrNotFound                 = errors.New("connection: not found")
	ErrNotConnected             = errors.New("connection: platform not connected")
	ErrDuplicateConnection      = errors.New("connection: an active connection already exists for this platform account")
)
