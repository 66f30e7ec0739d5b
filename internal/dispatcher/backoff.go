package dispatcher

import (
	"math/rand/v2"
	"time"
)

// BaseBackoff and CapBackoff parametrize the exponential-with-full-
// jitter retry delay per spec §4.7.
const (
	BaseBackoff = 30 * time.Second
	CapBackoff  = 15 * time.Minute

	// MaxAttempts is the total attempt budget per Post before it is
	// terminated FAILED regardless of error kind retryability.
	MaxAttempts = 5
)

// computeBackoff returns the delay before attempt number `attempt`
// (1-indexed, the attempt that just failed) is retried:
// delay = min(CAP, BASE * 2^(attempt-1)) * rand(0.5, 1.5), with a
// platform-supplied retryAfter hint, if any, floored against it.
func computeBackoff(attempt int, retryAfter time.Duration) time.Duration {
	exp := BaseBackoff * time.Duration(1<<uint(attempt-1))
	if exp > CapBackoff || exp <= 0 {
		exp = CapBackoff
	}
	jittered := time.Duration(float64(exp) * (0.5 + rand.Float64()))
	if retryAfter > jittered {
		return retryAfter
	}
	return jittered
}
