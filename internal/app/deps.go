// Package app implements the core's exposed operation surface (§6):
// create_video_intent, complete_video_upload, start_platform_oauth,
// complete_platform_oauth, disconnect_platform, create_multi_post,
// create_schedule, create_recurring_schedule, pause_recurring,
// resume_recurring, cancel_schedule, list_posts, get_post. It is
// grounded on the teacher's internal/application/{post,social,team}
// use-case file convention: one file per operation, an
// XxxInput/XxxOutput DTO pair, and an XxxUseCase struct with an
// Execute(ctx, input) method, validated via go-playground/validator's
// struct tags the way the teacher's *Input DTOs already are.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/domain/schedule"
	"github.com/videocast/scheduler/internal/domain/video"
	"github.com/videocast/scheduler/internal/governor"
	"github.com/videocast/scheduler/internal/jobs"
	"github.com/videocast/scheduler/internal/log"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/secretstore"
)

// Store groups the repositories and transactional boundary every
// use-case needs, backed by internal/store — the same kind of
// consumer-side interface internal/beat.Store and
// internal/dispatcher.Store declare (each with its own method set),
// defined separately here since each package is its own consumer
// of the persistence layer, the idiomatic Go way of expressing "what
// I need" rather than sharing one god interface.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Videos() video.Repository
	Connections() connection.Repository
	MultiPosts() post.MultiPostRepository
	Posts() post.Repository
	Schedules() schedule.Repository
	RecurringSchedules() schedule.RecurringRepository
}

// validate is the single struct-tag validator instance every
// use-case's Input DTO is checked against, mirroring the teacher's
// reuse of one package-level *validator.Validate.
var validate = validator.New()

// Deps bundles every dependency the use-case layer needs, constructed
// once at process start and passed to each XxxUseCase constructor —
// generalizing the teacher's per-use-case repo/logger constructor
// arguments into one bag so the 13 operations in §6 don't each repeat
// the same half-dozen parameters.
type Deps struct {
	Store       Store
	Broker      broker.Broker
	Registry    *platformcore.Registry
	Secrets     *secretstore.Store
	ObjectStore objectstore.Store
	Clock       clock.Clock
	Logger      log.Logger
	Queue       string

	// RedirectURIs maps a platform to its configured OAuth redirect
	// URI (the `<PLATFORM>_REDIRECT_URI` config option).
	RedirectURIs map[platformcore.Platform]string

	// StateSigner mints and validates the short-lived signed OAuth
	// state token start_platform_oauth/complete_platform_oauth share.
	StateSigner *StateSigner
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV7()) }

func normalizePlatform(name string) (platformcore.Platform, error) {
	return governor.NormalizePlatform(name)
}

func configMissingFor(platform platformcore.Platform) error {
	return platformcore.New(platformcore.KindConfigMissing, "no adapter configured for "+string(platform))
}

// ErrVideoNotReady is returned by use-cases that require a Video to
// have completed upload processing (video.StatusReady) before it can
// be attached to a post or schedule.
var ErrVideoNotReady = errors.New("app: video is not ready for posting")

func timeWeekday(n int) time.Weekday { return time.Weekday(n) }

func enqueuePosts(ctx context.Context, d *Deps, children []*post.Post) error {
	for _, p := range children {
		payload, err := jobs.EncodePostJob(jobs.PostJob{PostID: p.ID()})
		if err != nil {
			return err
		}
		if err := d.Broker.Enqueue(ctx, d.Queue, payload, broker.EnqueueOptions{DedupKey: p.ID().String()}); err != nil {
			return err
		}
	}
	return nil
}

// materialize creates one MultiPost plus one PENDING Post per target,
// the same fan-out internal/beat performs for a firing Schedule,
// shared here so create_multi_post produces identical shapes to a
// scheduled firing.
func materialize(ctx context.Context, d *Deps, ownerUserID, videoID uuid.UUID, targets []schedule.PlatformCaption) (*post.MultiPost, []*post.Post, error) {
	platforms := make([]platformcore.Platform, len(targets))
	for i, t := range targets {
		platforms[i] = t.Platform
	}
	mp, err := post.NewMultiPost(newID(), ownerUserID, videoID, platforms)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Store.MultiPosts().Create(ctx, mp); err != nil {
		return nil, nil, err
	}
	children := make([]*post.Post, 0, len(targets))
	for _, t := range targets {
		p, err := post.NewPost(newID(), mp.ID(), t.Platform, t.Caption, t.Tags)
		if err != nil {
			return mp, children, err
		}
		if err := d.Store.Posts().Create(ctx, p); err != nil {
			return mp, children, err
		}
		children = append(children, p)
	}
	return mp, children, nil
}

// validateTargets checks every target platform is known, has an
// adapter, and its caption is within that adapter's caption_limit(),
// per §4.3's "framework guarantees the caption is pre-validated"
// contract, applied once here at the use-case boundary rather than
// trusting the caller.
func validateTargets(d *Deps, targets []schedule.PlatformCaption) error {
	for _, t := range targets {
		adapter, ok := d.Registry.Get(t.Platform)
		if !ok {
			return platformcore.New(platformcore.KindConfigMissing, "no adapter for "+string(t.Platform))
		}
		if err := platformcore.ValidateCaption(adapter, t.Caption); err != nil {
			return err
		}
	}
	return nil
}

// PlatformCaptionInput is the request-side shape of a per-platform
// caption/tags override, validated and normalized into
// schedule.PlatformCaption by each use-case that accepts a target set.
type PlatformCaptionInput struct {
	Platform string   `json:"platform" validate:"required"`
	Caption  string   `json:"caption" validate:"required"`
	Tags     []string `json:"tags,omitempty"`
}

func toTargets(inputs []PlatformCaptionInput) ([]schedule.PlatformCaption, error) {
	out := make([]schedule.PlatformCaption, 0, len(inputs))
	for _, in := range inputs {
		p, err := normalizePlatform(in.Platform)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule.PlatformCaption{Platform: p, Caption: in.Caption, Tags: in.Tags})
	}
	return out, nil
}
