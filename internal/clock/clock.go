// Package clock provides the single source of wall-clock time and
// entity identifiers used throughout the scheduling core. Every
// component that needs "now" takes a Clock instead of calling
// time.Now() directly, so schedules and retry backoff can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock access.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now in UTC.
type SystemClock struct{}

// NewSystemClock returns the production clock.
func NewSystemClock() SystemClock { return SystemClock{} }

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// VirtualClock is a settable, advanceable Clock for tests. The zero
// value is not usable; construct with NewVirtualClock.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock returns a VirtualClock pinned at t.
func NewVirtualClock(t time.Time) *VirtualClock {
	return &VirtualClock{now: t.UTC()}
}

// Now returns the clock's current pinned time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to t.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// NewSortableID mints a 128-bit, time-ordered, k-sortable identifier.
// It is a UUIDv7 value (RFC 9562), which embeds a 48-bit millisecond
// timestamp in its high bits so IDs minted later sort after IDs minted
// earlier even across processes, without needing a central counter.
func NewSortableID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// MustNewSortableID is NewSortableID but panics on entropy-source
// failure, which in practice never happens on supported platforms.
func MustNewSortableID() uuid.UUID {
	id, err := NewSortableID()
	if err != nil {
		panic(err)
	}
	return id
}
