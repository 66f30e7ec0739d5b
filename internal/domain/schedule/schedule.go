// Package schedule models Schedule (one-shot) and RecurringSchedule,
// following the same private-field, constructor-plus-Reconstruct
// shape used across this domain layer. Cadence math lives in
// cadence.go so it can be unit tested independently of persistence.
package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

// MinLeadTime is the minimum gap between creation and a one-shot
// Schedule's scheduled_instant.
const MinLeadTime = 5 * time.Minute

// Status is the lifecycle of a one-shot Schedule.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusFired    Status = "FIRED"
	StatusCanceled Status = "CANCELED"
)

// PlatformCaption pairs a target platform with its caption/tag
// content, since each platform in a Schedule's target set may carry
// distinct text.
type PlatformCaption struct {
	Platform platformcore.Platform
	Caption  string
	Tags     []string
}

// Schedule is a one-shot deferred publish of a Video to a set of
// platforms.
type Schedule struct {
	id               uuid.UUID
	ownerUserID      uuid.UUID
	videoID          uuid.UUID
	targets          []PlatformCaption
	scheduledInstant time.Time
	status           Status
	createdAt        time.Time
	updatedAt        time.Time
}

// NewSchedule creates a PENDING Schedule. now is the creation instant,
// supplied by the caller's clock so it is deterministic in tests.
func NewSchedule(id, ownerUserID, videoID uuid.UUID, targets []PlatformCaption, scheduledInstant, now time.Time) (*Schedule, error) {
	if ownerUserID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if videoID == uuid.Nil {
		return nil, ErrMissingVideo
	}
	if len(targets) == 0 {
		return nil, ErrNoPlatforms
	}
	if scheduledInstant.Before(now.Add(MinLeadTime)) {
		return nil, ErrLeadTimeTooShort
	}

	return &Schedule{
		id:               id,
		ownerUserID:      ownerUserID,
		videoID:          videoID,
		targets:          targets,
		scheduledInstant: scheduledInstant,
		status:           StatusPending,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct recreates a Schedule from persistence.
func Reconstruct(
	id, ownerUserID, videoID uuid.UUID,
	targets []PlatformCaption,
	scheduledInstant time.Time,
	status Status,
	createdAt, updatedAt time.Time,
) *Schedule {
	return &Schedule{
		id:               id,
		ownerUserID:      ownerUserID,
		videoID:          videoID,
		targets:          targets,
		scheduledInstant: scheduledInstant,
		status:           status,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// Getters
func (s *Schedule) ID() uuid.UUID                 { return s.id }
func (s *Schedule) OwnerUserID() uuid.UUID        { return s.ownerUserID }
func (s *Schedule) VideoID() uuid.UUID            { return s.videoID }
func (s *Schedule) Targets() []PlatformCaption    { return s.targets }
func (s *Schedule) ScheduledInstant() time.Time   { return s.scheduledInstant }
func (s *Schedule) Status() Status                { return s.status }
func (s *Schedule) CreatedAt() time.Time          { return s.createdAt }
func (s *Schedule) UpdatedAt() time.Time          { return s.updatedAt }

// IsDue reports whether the schedule should fire at tick time now,
// with halfTick matching C6's "scheduled_instant <= now + tick/2"
// firing rule.
func (s *Schedule) IsDue(now time.Time, halfTick time.Duration) bool {
	return s.status == StatusPending && !s.scheduledInstant.After(now.Add(halfTick))
}

// Fire transitions a PENDING schedule to FIRED. Called by the
// scheduler beat once the schedule's Posts have been materialized and
// enqueued in the same transaction.
func (s *Schedule) Fire(now time.Time) error {
	if s.status != StatusPending {
		return ErrInvalidTransition
	}
	s.status = StatusFired
	s.updatedAt = now
	return nil
}

// Cancel cancels a PENDING schedule.
func (s *Schedule) Cancel(now time.Time) error {
	if s.status != StatusPending {
		return ErrInvalidTransition
	}
	s.status = StatusCanceled
	s.updatedAt = now
	return nil
}
