package schedule

import "errors"

var (
	ErrInvalidOwner     = errors.New("schedule: owner user id is required")
	ErrMissingVideo     = errors.New("schedule: video id is required")
	ErrNoPlatforms      = errors.New("schedule: at least one target platform is required")
	ErrLeadTimeTooShort = errors.New("schedule: scheduled instant must be at least 5 minutes after creation")
	ErrInvalidTransition = errors.New("schedule: invalid status transition")
	ErrInvalidCadence   = errors.New("schedule: invalid cadence configuration")
	ErrNotFound         = errors.New("schedule: not found")
)
