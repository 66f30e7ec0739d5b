// Package memorybroker is an in-process Broker implementation used in
// tests and local development, grounded on the teacher's
// WorkerQueueService (key-prefixed queues, structured job records)
// but backed by an in-memory min-heap keyed by due time instead of
// Redis, so it can express delayed delivery and dedup without an
// external dependency.
package memorybroker

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/clock"
)

// DedupWindow bounds how long a dedup key suppresses a repeat
// enqueue, satisfying C8's "deduplication by key within a short
// window" guarantee.
const DedupWindow = 5 * time.Minute

type entry struct {
	queue     string
	handle    string
	payload   []byte
	dueAt     time.Time
	dedupKey  string
	claimedAt time.Time
	index     int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].dueAt.Before(h[j].dueAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Broker is the in-memory implementation of broker.Broker.
type Broker struct {
	mu         sync.Mutex
	pending    entryHeap
	claimed    map[string]*entry
	dedupSeen  map[string]time.Time
	clock      clock.Clock
}

// New constructs an empty memory broker driven by clk.
func New(clk clock.Clock) *Broker {
	b := &Broker{
		claimed:   make(map[string]*entry),
		dedupSeen: make(map[string]time.Time),
		clock:     clk,
	}
	heap.Init(&b.pending)
	return b
}

func (b *Broker) Enqueue(ctx context.Context, queue string, payload []byte, opts broker.EnqueueOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if opts.DedupKey != "" {
		if seenAt, ok := b.dedupSeen[opts.DedupKey]; ok && now.Sub(seenAt) < DedupWindow {
			return nil
		}
		b.dedupSeen[opts.DedupKey] = now
	}

	e := &entry{
		queue:    queue,
		handle:   uuid.Must(uuid.NewV7()).String(),
		payload:  payload,
		dueAt:    now.Add(time.Duration(opts.DelayMS) * time.Millisecond),
		dedupKey: opts.DedupKey,
	}
	heap.Push(&b.pending, e)
	return nil
}

func (b *Broker) Claim(ctx context.Context, queue string, visibilityTimeout time.Duration) (*broker.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.reclaimExpiredLocked(now, visibilityTimeout)

	// Linear scan by due-time order for the first matching queue;
	// simple and sufficient at in-process test scale.
	var skipped []*entry
	var found *entry
	for b.pending.Len() > 0 {
		e := heap.Pop(&b.pending).(*entry)
		if e.dueAt.After(now) {
			skipped = append(skipped, e)
			break
		}
		if e.queue != queue {
			skipped = append(skipped, e)
			continue
		}
		found = e
		break
	}
	for _, e := range skipped {
		heap.Push(&b.pending, e)
	}
	if found == nil {
		return nil, broker.ErrEmpty
	}

	found.claimedAt = now
	b.claimed[found.handle] = found
	return &broker.Job{Handle: found.handle, Payload: found.payload}, nil
}

func (b *Broker) Ack(ctx context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claimed, handle)
	return nil
}

func (b *Broker) Nack(ctx context.Context, handle string, opts broker.NackOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.claimed[handle]
	if !ok {
		return nil
	}
	delete(b.claimed, handle)
	e.dueAt = b.clock.Now().Add(time.Duration(opts.RequeueDelayMS) * time.Millisecond)
	e.claimedAt = time.Time{}
	heap.Push(&b.pending, e)
	return nil
}

// reclaimExpiredLocked returns jobs whose visibility timeout elapsed
// without an ack/nack back to the pending heap. Callers hold b.mu.
func (b *Broker) reclaimExpiredLocked(now time.Time, visibilityTimeout time.Duration) {
	for handle, e := range b.claimed {
		if !e.claimedAt.IsZero() && now.Sub(e.claimedAt) > visibilityTimeout {
			delete(b.claimed, handle)
			e.claimedAt = time.Time{}
			heap.Push(&b.pending, e)
		}
	}
}
