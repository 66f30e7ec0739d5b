package schedule

import (
	"time"

	"github.com/google/uuid"
)

// RecurringState is the lifecycle of a RecurringSchedule.
type RecurringState string

const (
	RecurringActive   RecurringState = "ACTIVE"
	RecurringPaused   RecurringState = "PAUSED"
	RecurringCanceled RecurringState = "CANCELED"
)

// RecurringSchedule is a Schedule that fires repeatedly on a cadence,
// rotating through an ordered list of caption variants. It carries
// its own target set rather than embedding a Schedule, since its
// lifecycle (ACTIVE/PAUSED/CANCELED) and firing semantics diverge
// from the one-shot Schedule's (PENDING/FIRED/CANCELED).
type RecurringSchedule struct {
	id              uuid.UUID
	ownerUserID     uuid.UUID
	videoID         uuid.UUID
	targets         []PlatformCaption
	cadence         Cadence
	variants        []string
	cursor          int
	state           RecurringState
	nextOccurrence  time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewRecurringSchedule creates an ACTIVE RecurringSchedule. firstOccurrence
// is the caller-computed first future instant matching cadence.
func NewRecurringSchedule(id, ownerUserID, videoID uuid.UUID, targets []PlatformCaption, cadence Cadence, variants []string, firstOccurrence, now time.Time) (*RecurringSchedule, error) {
	if ownerUserID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if videoID == uuid.Nil {
		return nil, ErrMissingVideo
	}
	if len(targets) == 0 {
		return nil, ErrNoPlatforms
	}
	if !firstOccurrence.After(now) {
		return nil, ErrInvalidCadence
	}

	return &RecurringSchedule{
		id:             id,
		ownerUserID:    ownerUserID,
		videoID:        videoID,
		targets:        targets,
		cadence:        cadence,
		variants:       variants,
		cursor:         0,
		state:          RecurringActive,
		nextOccurrence: firstOccurrence,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructRecurring recreates a RecurringSchedule from persistence.
func ReconstructRecurring(
	id, ownerUserID, videoID uuid.UUID,
	targets []PlatformCaption,
	cadence Cadence,
	variants []string,
	cursor int,
	state RecurringState,
	nextOccurrence, createdAt, updatedAt time.Time,
) *RecurringSchedule {
	return &RecurringSchedule{
		id:             id,
		ownerUserID:    ownerUserID,
		videoID:        videoID,
		targets:        targets,
		cadence:        cadence,
		variants:       variants,
		cursor:         cursor,
		state:          state,
		nextOccurrence: nextOccurrence,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters
func (r *RecurringSchedule) ID() uuid.UUID               { return r.id }
func (r *RecurringSchedule) OwnerUserID() uuid.UUID       { return r.ownerUserID }
func (r *RecurringSchedule) VideoID() uuid.UUID           { return r.videoID }
func (r *RecurringSchedule) Targets() []PlatformCaption   { return r.targets }
func (r *RecurringSchedule) Cadence() Cadence             { return r.cadence }
func (r *RecurringSchedule) Variants() []string           { return r.variants }
func (r *RecurringSchedule) Cursor() int                  { return r.cursor }
func (r *RecurringSchedule) State() RecurringState        { return r.state }
func (r *RecurringSchedule) NextOccurrence() time.Time    { return r.nextOccurrence }
func (r *RecurringSchedule) CreatedAt() time.Time         { return r.createdAt }
func (r *RecurringSchedule) UpdatedAt() time.Time         { return r.updatedAt }

// IsDue reports whether the schedule should fire at tick time now.
func (r *RecurringSchedule) IsDue(now time.Time, halfTick time.Duration) bool {
	return r.state == RecurringActive && !r.nextOccurrence.After(now.Add(halfTick))
}

// CurrentVariant returns the caption variant selected by the cursor,
// modulo the variant list length, or "" when the list is empty (in
// which case callers fall back to each target's base caption).
func (r *RecurringSchedule) CurrentVariant() string {
	if len(r.variants) == 0 {
		return ""
	}
	return r.variants[r.cursor%len(r.variants)]
}

// Advance records one firing: advances the cursor (wrapping modulo
// the variant list length, a no-op on an empty list) and rolls
// next_occurrence forward to the next instant strictly after the
// instant that just fired, per the cadence rule. firedAt is the
// occurrence instant that was just materialized, not "now" — this
// keeps catch-up firings advancing from the missed occurrence rather
// than drifting from wall-clock time.
func (r *RecurringSchedule) Advance(firedAt, now time.Time) {
	if len(r.variants) > 0 {
		r.cursor = (r.cursor + 1) % len(r.variants)
	}
	r.nextOccurrence = r.cadence.Next(firedAt)
	r.updatedAt = now
}

// Pause suspends firing without losing cadence/cursor state.
func (r *RecurringSchedule) Pause(now time.Time) error {
	if r.state != RecurringActive {
		return ErrInvalidTransition
	}
	r.state = RecurringPaused
	r.updatedAt = now
	return nil
}

// Resume reactivates a PAUSED schedule, recomputing next_occurrence
// from now so it does not immediately fire a backlog accrued while
// paused (pausing is a user-intent boundary, not downtime).
func (r *RecurringSchedule) Resume(now time.Time) error {
	if r.state != RecurringPaused {
		return ErrInvalidTransition
	}
	r.state = RecurringActive
	r.nextOccurrence = r.cadence.Next(now)
	r.updatedAt = now
	return nil
}

// Cancel permanently stops the recurring schedule.
func (r *RecurringSchedule) Cancel(now time.Time) error {
	if r.state == RecurringCanceled {
		return ErrInvalidTransition
	}
	r.state = RecurringCanceled
	r.updatedAt = now
	return nil
}
