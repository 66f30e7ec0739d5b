// Package video models the uploaded source video a MultiPost or
// Schedule publishes from, following the same private-field,
// constructor-plus-Reconstruct, getter-and-business-method shape the
// teacher uses for its Post aggregate (internal/domain/post/post.go).
package video

import (
	"time"

	"github.com/google/uuid"
)

// Status is the upload lifecycle of a Video.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Format captures the declared container/codec metadata recorded at
// upload completion.
type Format struct {
	Container  string
	Codec      string
	DurationMS int64
	Width      int
	Height     int
	SizeBytes  int64
}

// Video is the owning user's uploaded source asset.
type Video struct {
	id           uuid.UUID
	ownerUserID  uuid.UUID
	objectKey    string
	format       Format
	status       Status
	defaultCaption string
	defaultTags  []string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewVideo creates a Video in the uploading state, before the object
// store has confirmed the upload and format metadata is known.
func NewVideo(id, ownerUserID uuid.UUID, objectKey string) (*Video, error) {
	if ownerUserID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if objectKey == "" {
		return nil, ErrMissingObjectKey
	}

	now := time.Now().UTC()
	return &Video{
		id:          id,
		ownerUserID: ownerUserID,
		objectKey:   objectKey,
		status:      StatusUploading,
		defaultTags: []string{},
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct recreates a Video from persistence.
func Reconstruct(
	id, ownerUserID uuid.UUID,
	objectKey string,
	format Format,
	status Status,
	defaultCaption string,
	defaultTags []string,
	createdAt, updatedAt time.Time,
) *Video {
	return &Video{
		id:             id,
		ownerUserID:    ownerUserID,
		objectKey:      objectKey,
		format:         format,
		status:         status,
		defaultCaption: defaultCaption,
		defaultTags:    defaultTags,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters
func (v *Video) ID() uuid.UUID             { return v.id }
func (v *Video) OwnerUserID() uuid.UUID    { return v.ownerUserID }
func (v *Video) ObjectKey() string         { return v.objectKey }
func (v *Video) Format() Format            { return v.format }
func (v *Video) Status() Status            { return v.status }
func (v *Video) DefaultCaption() string    { return v.defaultCaption }
func (v *Video) DefaultTags() []string     { return v.defaultTags }
func (v *Video) CreatedAt() time.Time      { return v.createdAt }
func (v *Video) UpdatedAt() time.Time      { return v.updatedAt }

// MarkReady transitions an uploading Video to ready once the object
// store confirms the upload and format metadata is known. Ready is
// terminal for format metadata: a Video is immutable once ready
// except for its user-editable caption/tag defaults.
func (v *Video) MarkReady(format Format) error {
	if v.status != StatusUploading {
		return ErrNotUploading
	}
	v.format = format
	v.status = StatusReady
	v.updatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions an uploading Video to failed.
func (v *Video) MarkFailed() error {
	if v.status != StatusUploading {
		return ErrNotUploading
	}
	v.status = StatusFailed
	v.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDefaults updates the user-editable caption/tag defaults,
// permitted regardless of status including after the Video is ready.
func (v *Video) UpdateDefaults(caption string, tags []string) {
	v.defaultCaption = caption
	v.defaultTags = tags
	v.updatedAt = time.Now().UTC()
}

// IsReady reports whether the Video can be referenced by a new
// MultiPost or Schedule.
func (v *Video) IsReady() bool {
	return v.status == StatusReady
}
