package post

import "errors"

var (
	ErrInvalidOwner      = errors.New("post: owner user id is required")
	ErrMissingVideo      = errors.New("post: video id is required")
	ErrMissingMultiPost  = errors.New("post: multi-post id is required")
	ErrNoPlatforms       = errors.New("post: at least one target platform is required")
	ErrInvalidPlatform   = errors.New("post: unknown platform")
	ErrInvalidTransition = errors.New("post: invalid status transition")
	ErrNotFound          = errors.New("post: not found")
)
