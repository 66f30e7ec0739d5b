// Package broker defines the durable job queue contract (C8) the
// scheduler enqueues PostJobs onto and the dispatcher claims them
// from, plus two implementations: a production asynq-backed broker
// and an in-process memory broker used in tests.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by Claim when no job is currently available.
var ErrEmpty = errors.New("broker: no job available")

// EnqueueOptions controls delayed delivery and deduplication.
type EnqueueOptions struct {
	// DelayMS defers visibility of the job by this many milliseconds.
	DelayMS int64
	// DedupKey, when set, suppresses a second enqueue carrying the
	// same key within the broker's dedup window — used to guarantee
	// at-most-one job per materialized Post.
	DedupKey string
}

// Job is a claimed unit of work: its opaque handle (used to ack/nack)
// and its payload.
type Job struct {
	Handle  string
	Payload []byte
}

// NackOptions controls redelivery after a failed claim.
type NackOptions struct {
	RequeueDelayMS int64
}

// Broker is the durable enqueue/claim/ack contract every dispatcher
// and scheduler component depends on, never on a concrete queue
// implementation.
type Broker interface {
	Enqueue(ctx context.Context, queue string, payload []byte, opts EnqueueOptions) error

	// Claim returns the next available job on queue, or ErrEmpty if
	// none is ready. visibilityTimeout bounds how long the job stays
	// invisible to other claimants before it is considered abandoned
	// and becomes reclaimable.
	Claim(ctx context.Context, queue string, visibilityTimeout time.Duration) (*Job, error)

	Ack(ctx context.Context, handle string) error
	Nack(ctx context.Context, handle string, opts NackOptions) error
}
