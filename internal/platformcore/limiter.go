package platformcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound adapter calls per platform+connection,
// generalized from the teacher's social.RateLimiter (keyed only by
// platform+account) to the same shape with per-platform defaults
// covering all five target platforms instead of three.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewLimiter returns an empty Limiter; per-key limiters are created
// lazily on first use.
func NewLimiter() *Limiter {
	return &Limiter{limiters: make(map[string]*rate.Limiter)}
}

func (l *Limiter) key(platform Platform, connectionID string) string {
	return fmt.Sprintf("%s:%s", platform, connectionID)
}

func defaultLimit(platform Platform) (rate.Limit, int) {
	switch platform {
	case PlatformTwitter:
		return rate.Every(15 * time.Minute / 300), 10 // 300 requests / 15 min
	case PlatformFacebook, PlatformInstagram:
		return rate.Every(time.Hour / 200), 20 // 200 requests / hour (Graph API family)
	case PlatformYouTube:
		return rate.Every(24 * time.Hour / 10_000), 5 // quota-unit budget, conservative default
	case PlatformTikTok:
		return rate.Every(24 * time.Hour / 100), 5 // content posting API daily cap
	default:
		return rate.Every(time.Minute / 60), 10
	}
}

// GetLimiter returns the limiter for platform+connectionID, creating
// one with the platform's default quota on first use (double-checked
// locking, same pattern as the teacher's social.RateLimiter).
func (l *Limiter) GetLimiter(platform Platform, connectionID string) *rate.Limiter {
	key := l.key(platform, connectionID)

	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}

	r, burst := defaultLimit(platform)
	limiter = rate.NewLimiter(r, burst)
	l.limiters[key] = limiter
	return limiter
}

// Wait blocks until the platform+connection quota allows another
// call, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, platform Platform, connectionID string) error {
	return l.GetLimiter(platform, connectionID).Wait(ctx)
}

// Allow reports whether a call is permitted right now without
// blocking, used for pre-flight checks before an expensive upload.
func (l *Limiter) Allow(platform Platform, connectionID string) bool {
	return l.GetLimiter(platform, connectionID).Allow()
}
