package post

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutcomeKind is the result of a single publish attempt.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "SUCCESS"
	OutcomeTransientFail OutcomeKind = "TRANSIENT_FAIL"
	OutcomePermanentFail OutcomeKind = "PERMANENT_FAIL"
)

// Outcome is an append-only record of one dispatch attempt against a
// Post, forming its audit trail. Outcomes are never mutated or
// deleted once written.
type Outcome struct {
	id                 uuid.UUID
	postID             uuid.UUID
	attempt            int
	startedAt          time.Time
	endedAt            time.Time
	kind               OutcomeKind
	errorKind          string
	responseExcerpt    string
}

// NewOutcome records one attempt's result. responseExcerpt must never
// carry tokens, ciphertext, or raw platform auth material — callers
// are responsible for trimming it to a safe excerpt before calling.
func NewOutcome(id, postID uuid.UUID, attempt int, startedAt, endedAt time.Time, kind OutcomeKind, errorKind, responseExcerpt string) *Outcome {
	return &Outcome{
		id:              id,
		postID:          postID,
		attempt:         attempt,
		startedAt:       startedAt,
		endedAt:         endedAt,
		kind:            kind,
		errorKind:       errorKind,
		responseExcerpt: responseExcerpt,
	}
}

func (o *Outcome) ID() uuid.UUID             { return o.id }
func (o *Outcome) PostID() uuid.UUID         { return o.postID }
func (o *Outcome) Attempt() int              { return o.attempt }
func (o *Outcome) StartedAt() time.Time      { return o.startedAt }
func (o *Outcome) EndedAt() time.Time        { return o.endedAt }
func (o *Outcome) Kind() OutcomeKind         { return o.kind }
func (o *Outcome) ErrorKind() string         { return o.errorKind }
func (o *Outcome) ResponseExcerpt() string   { return o.responseExcerpt }

// OutcomeRepository appends and lists PostOutcome rows. There is
// deliberately no Update or Delete: outcomes are immutable history.
type OutcomeRepository interface {
	Append(ctx context.Context, o *Outcome) error
	FindByPostID(ctx context.Context, postID uuid.UUID) ([]*Outcome, error)
}
