// Package governor enforces the per-(user, platform, video) 24-hour
// repost cooldown and selects recurring-schedule caption variants. It
// mirrors the teacher's Service-over-Repository split
// (internal/domain/post/service.go) but is deliberately side-effect
// free: Check only reads, and SelectCaptionVariant only computes —
// the cursor advance itself happens in internal/beat, transactionally
// with schedule firing, so the governor stays trivially unit
// testable without a database.
package governor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/platformcore"
)

// CooldownWindow is the minimum gap between a prior POSTED success
// and a new publish attempt for the same (user, platform, video).
const CooldownWindow = 24 * time.Hour

// Decision is the result of a cooldown check.
type Decision struct {
	Allowed        bool
	HoursRemaining int
}

// Governor enforces repost cooldowns ahead of dispatch.
type Governor struct {
	posts post.Repository
}

// New constructs a Governor over the Post repository's
// MostRecentPosted query (backed by the posts(user_id, video_id,
// platform, status) index, per spec §4.9).
func New(posts post.Repository) *Governor {
	return &Governor{posts: posts}
}

// Check reports whether a new post for (ownerUserID, platform, videoID)
// is allowed right now. A post is denied if a POSTED post exists for
// the same triple within the last CooldownWindow, measured from that
// post's completion (UpdatedAt, since MarkPosted is its terminal
// transition). Only POSTED outcomes carry cooldown; in-flight
// PROCESSING attempts do not (see DESIGN.md's Open Question
// resolution).
func (g *Governor) Check(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform, videoID uuid.UUID, now time.Time) (Decision, error) {
	normalized, err := NormalizePlatform(string(platform))
	if err != nil {
		return Decision{}, err
	}

	prior, err := g.posts.MostRecentPosted(ctx, ownerUserID, videoID, string(normalized))
	if err != nil {
		if err == post.ErrNotFound {
			return Decision{Allowed: true}, nil
		}
		return Decision{}, fmt.Errorf("governor: lookup most recent posted: %w", err)
	}

	elapsed := now.Sub(prior.UpdatedAt())
	if elapsed >= CooldownWindow {
		return Decision{Allowed: true}, nil
	}
	remaining := CooldownWindow - elapsed
	hours := int(remaining / time.Hour)
	return Decision{Allowed: false, HoursRemaining: hours}, nil
}

// NormalizePlatform accepts a platform name in any case and returns
// the canonical uppercase platformcore.Platform, or a VALIDATION
// error for unknown names — the single normalization boundary spec'd
// for inbound platform identifiers.
func NormalizePlatform(name string) (platformcore.Platform, error) {
	p := platformcore.Platform(strings.ToUpper(strings.TrimSpace(name)))
	if !p.Valid() {
		return "", platformcore.New(platformcore.KindValidation, fmt.Sprintf("unknown platform %q", name))
	}
	return p, nil
}

// SelectCaptionVariant returns variants[cursor mod len(variants)], or
// baseCaption when variants is empty (reuse-base-captions rule).
func SelectCaptionVariant(variants []string, cursor int, baseCaption string) string {
	if len(variants) == 0 {
		return baseCaption
	}
	return variants[cursor%len(variants)]
}
