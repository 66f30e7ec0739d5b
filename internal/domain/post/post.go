// Package post models MultiPost and its per-platform Post instances,
// adapted from the teacher's single flattened Post aggregate into the
// split shape the spec requires: a MultiPost groups the per-platform
// fan-out, and each Post carries exactly one terminal transition of
// its own, mirroring the private-field, NewX/Reconstruct,
// getter-and-business-method shape used throughout this package tree.
package post

import (
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// Status is the publishing lifecycle of a single Post.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPosted     Status = "POSTED"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
)

// Post is one platform's instance of a MultiPost's fan-out. Exactly
// one terminal transition applies over its lifetime: PENDING ->
// PROCESSING -> (POSTED | FAILED) or PENDING/PROCESSING -> CANCELED.
type Post struct {
	id               uuid.UUID
	multiPostID      uuid.UUID
	platform         platformcore.Platform
	caption          string
	tags             []string
	status           Status
	attempt          int
	lastErrorKind    string
	lastErrorMessage string
	platformPostID   string
	platformPostURL  string
	createdAt        time.Time
	updatedAt        time.Time
}

// NewPost creates a Post in PENDING state for one platform fan-out of
// a MultiPost.
func NewPost(id, multiPostID uuid.UUID, platform platformcore.Platform, caption string, tags []string) (*Post, error) {
	if multiPostID == uuid.Nil {
		return nil, ErrMissingMultiPost
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	now := time.Now().UTC()
	return &Post{
		id:          id,
		multiPostID: multiPostID,
		platform:    platform,
		caption:     caption,
		tags:        tags,
		status:      StatusPending,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct recreates a Post from persistence.
func Reconstruct(
	id, multiPostID uuid.UUID,
	platform platformcore.Platform,
	caption string,
	tags []string,
	status Status,
	attempt int,
	lastErrorKind, lastErrorMessage string,
	platformPostID, platformPostURL string,
	createdAt, updatedAt time.Time,
) *Post {
	return &Post{
		id:               id,
		multiPostID:      multiPostID,
		platform:         platform,
		caption:          caption,
		tags:             tags,
		status:           status,
		attempt:          attempt,
		lastErrorKind:    lastErrorKind,
		lastErrorMessage: lastErrorMessage,
		platformPostID:   platformPostID,
		platformPostURL:  platformPostURL,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// Getters
func (p *Post) ID() uuid.UUID                   { return p.id }
func (p *Post) MultiPostID() uuid.UUID          { return p.multiPostID }
func (p *Post) Platform() platformcore.Platform { return p.platform }
func (p *Post) Caption() string                 { return p.caption }
func (p *Post) Tags() []string                  { return p.tags }
func (p *Post) Status() Status                  { return p.status }
func (p *Post) Attempt() int                    { return p.attempt }
func (p *Post) LastErrorKind() string           { return p.lastErrorKind }
func (p *Post) LastErrorMessage() string        { return p.lastErrorMessage }
func (p *Post) PlatformPostID() string          { return p.platformPostID }
func (p *Post) PlatformPostURL() string         { return p.platformPostURL }
func (p *Post) CreatedAt() time.Time            { return p.createdAt }
func (p *Post) UpdatedAt() time.Time            { return p.updatedAt }

// BeginProcessing claims the post for a dispatch attempt, incrementing
// the attempt counter. Valid only from PENDING; a retried attempt is
// first returned to PENDING by ResetForRetry.
func (p *Post) BeginProcessing() error {
	if p.status != StatusPending {
		return ErrInvalidTransition
	}
	p.status = StatusProcessing
	p.attempt++
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkPosted records the terminal success transition.
func (p *Post) MarkPosted(platformPostID, platformPostURL string) error {
	if p.status != StatusProcessing {
		return ErrInvalidTransition
	}
	p.status = StatusPosted
	p.platformPostID = platformPostID
	p.platformPostURL = platformPostURL
	p.lastErrorKind = ""
	p.lastErrorMessage = ""
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a failed attempt. Whether this is terminal or
// will be retried is a dispatcher-level decision driven by the error
// kind's retryability and the attempt count; MarkFailed itself only
// records the outcome of this attempt.
func (p *Post) MarkFailed(kind, message string) error {
	if p.status != StatusProcessing {
		return ErrInvalidTransition
	}
	p.status = StatusFailed
	p.lastErrorKind = kind
	p.lastErrorMessage = message
	p.updatedAt = time.Now().UTC()
	return nil
}

// ResetForRetry returns a retried attempt to PENDING so the
// dispatcher's backoff schedule can re-claim it later.
func (p *Post) ResetForRetry() error {
	if p.status != StatusFailed {
		return ErrInvalidTransition
	}
	p.status = StatusPending
	p.updatedAt = time.Now().UTC()
	return nil
}

// Cancel cancels a Post that has not yet reached a terminal state.
func (p *Post) Cancel() error {
	if p.status == StatusPosted || p.status == StatusFailed || p.status == StatusCanceled {
		return ErrInvalidTransition
	}
	p.status = StatusCanceled
	p.updatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the Post has reached a state from which
// no further transition is possible.
func (p *Post) IsTerminal() bool {
	return p.status == StatusPosted || p.status == StatusFailed || p.status == StatusCanceled
}
