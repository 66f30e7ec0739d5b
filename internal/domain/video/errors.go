package video

import "errors"

var (
	ErrInvalidOwner     = errors.New("video: owner user id is required")
	ErrMissingObjectKey = errors.New("video: object key is required")
	ErrNotUploading     = errors.New("video: operation only valid while uploading")
	ErrNotFound         = errors.New("video: not found")
)
