// Package beat implements the Scheduler (C6): a single-leader
// periodic loop that fires due one-shot Schedules and advances
// RecurringSchedules, materializing MultiPosts/Posts and enqueuing
// PostJobs in one transaction per candidate. It is grounded on the
// teacher's cmd/worker ticker-loop shape (time.NewTicker + select
// over ctx.Done()) and on tovinhtuan-tiktok_tool_auto_upload's
// robfig/cron scheduler, which this package adopts directly as the
// tick driver instead of hand-rolling a ticker.
package beat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/domain/schedule"
	"github.com/videocast/scheduler/internal/governor"
	"github.com/videocast/scheduler/internal/jobs"
	"github.com/videocast/scheduler/internal/platformcore"
)

// Logger is the minimal structured-logging surface Beat needs.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// DefaultTick is the default period between beats, per spec §4.6 and
// configurable via SCHEDULER_TICK_MS.
const DefaultTick = 30 * time.Second

// MaxCatchUpFirings bounds how many missed occurrences a single
// RecurringSchedule fires in one tick, so a schedule dormant for a
// long outage cannot loop unboundedly (see DESIGN.md's Open Question
// resolution: catch-up fires every missed occurrence, capped here).
const MaxCatchUpFirings = 100

// ClaimBatchSize bounds how many due schedules a single tick claims,
// keeping each transaction bounded in size.
const ClaimBatchSize = 100

// Store groups the transactional unit of work Beat needs per tick.
// A single implementation (internal/store) backs both one-shot and
// recurring firing inside *gorm.DB transactions.
type Store interface {
	// WithTx runs fn inside one transaction, rolling back on error —
	// the outbox-style guarantee that a fired Schedule/RecurringSchedule
	// and its materialized Posts/enqueued jobs are either all durable
	// or none are observable.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Schedules() schedule.Repository
	RecurringSchedules() schedule.RecurringRepository
	MultiPosts() post.MultiPostRepository
	Posts() post.Repository
}

// Beat is the single constructed scheduler value per process; there
// is no module-level scheduler state.
type Beat struct {
	store  Store
	brk    broker.Broker
	clk    clock.Clock
	logger Logger
	tick   time.Duration
	queue  string
}

// New constructs a Beat. queue is the broker queue PostJobs are
// enqueued onto.
func New(store Store, brk broker.Broker, clk clock.Clock, logger Logger, tick time.Duration, queue string) *Beat {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Beat{store: store, brk: brk, clk: clk, logger: logger, tick: tick, queue: queue}
}

// Run drives the beat on a robfig/cron schedule matching b.tick until
// ctx is canceled. It blocks; callers run it in its own goroutine.
func (b *Beat) Run(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", b.tick)
	if _, err := c.AddFunc(spec, func() { b.Tick(ctx) }); err != nil {
		return fmt.Errorf("beat: schedule tick: %w", err)
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// Tick performs one scheduler pass: firing due one-shot Schedules and
// advancing due RecurringSchedules, per spec §4.6 steps 1-4.
func (b *Beat) Tick(ctx context.Context) {
	now := b.clk.Now()
	horizon := now.Add(b.tick / 2)

	if err := b.fireOneShot(ctx, horizon); err != nil {
		b.logger.Error("beat: one-shot firing pass failed", "error", err)
	}
	if err := b.fireRecurring(ctx, horizon); err != nil {
		b.logger.Error("beat: recurring firing pass failed", "error", err)
	}
}

func (b *Beat) fireOneShot(ctx context.Context, horizon time.Time) error {
	due, err := b.store.Schedules().ClaimDuePending(ctx, horizon, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("claim due schedules: %w", err)
	}
	for _, s := range due {
		s := s
		err := b.store.WithTx(ctx, func(ctx context.Context) error {
			return b.fireSchedule(ctx, s)
		})
		if err != nil {
			b.logger.Error("beat: fire schedule failed, will retry next tick", "schedule_id", s.ID(), "error", err)
			continue
		}
		b.logger.Info("beat: fired schedule", "schedule_id", s.ID())
	}
	return nil
}

func (b *Beat) fireSchedule(ctx context.Context, s *schedule.Schedule) error {
	now := b.clk.Now()
	_, children, err := b.materialize(ctx, s.OwnerUserID(), s.VideoID(), s.Targets())
	if err != nil {
		return fmt.Errorf("materialize schedule %s: %w", s.ID(), err)
	}
	if err := b.enqueueAll(ctx, children); err != nil {
		return fmt.Errorf("enqueue jobs for schedule %s: %w", s.ID(), err)
	}
	if err := s.Fire(now); err != nil {
		return fmt.Errorf("fire schedule %s: %w", s.ID(), err)
	}
	if err := b.store.Schedules().Update(ctx, s); err != nil {
		return fmt.Errorf("persist fired schedule %s: %w", s.ID(), err)
	}
	return nil
}

func (b *Beat) fireRecurring(ctx context.Context, horizon time.Time) error {
	due, err := b.store.RecurringSchedules().ClaimDueActive(ctx, horizon, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("claim due recurring schedules: %w", err)
	}
	for _, r := range due {
		r := r
		err := b.store.WithTx(ctx, func(ctx context.Context) error {
			return b.fireRecurringUpTo(ctx, r, horizon)
		})
		if err != nil {
			b.logger.Error("beat: fire recurring schedule failed, will retry next tick", "schedule_id", r.ID(), "error", err)
			continue
		}
		b.logger.Info("beat: advanced recurring schedule", "schedule_id", r.ID())
	}
	return nil
}

// fireRecurringUpTo fires every occurrence of r that is due by
// horizon, sequentially, up to MaxCatchUpFirings — the retained
// "fire every missed occurrence" catch-up policy (see DESIGN.md).
func (b *Beat) fireRecurringUpTo(ctx context.Context, r *schedule.RecurringSchedule, horizon time.Time) error {
	now := b.clk.Now()
	fired := 0
	for r.IsDue(now, horizon.Sub(now)) {
		if fired >= MaxCatchUpFirings {
			b.logger.Error("beat: recurring schedule hit catch-up cap, deferring remainder to next tick",
				"schedule_id", r.ID(), "cap", MaxCatchUpFirings)
			break
		}

		variant := governor.SelectCaptionVariant(r.Variants(), r.Cursor(), "")
		targets := applyVariant(r.Targets(), variant)

		_, children, err := b.materialize(ctx, r.OwnerUserID(), r.VideoID(), targets)
		if err != nil {
			return fmt.Errorf("materialize recurring %s: %w", r.ID(), err)
		}
		if err := b.enqueueAll(ctx, children); err != nil {
			return fmt.Errorf("enqueue jobs for recurring %s: %w", r.ID(), err)
		}

		firedAt := r.NextOccurrence()
		r.Advance(firedAt, now)
		fired++
	}
	if fired == 0 {
		return nil
	}
	return b.store.RecurringSchedules().Update(ctx, r)
}

// applyVariant overrides each target's caption with variant when
// variant is non-empty (a selected rotation entry); an empty variant
// means "reuse each target's own base caption" per spec §3.
func applyVariant(targets []schedule.PlatformCaption, variant string) []schedule.PlatformCaption {
	if variant == "" {
		return targets
	}
	out := make([]schedule.PlatformCaption, len(targets))
	for i, t := range targets {
		out[i] = schedule.PlatformCaption{Platform: t.Platform, Caption: variant, Tags: t.Tags}
	}
	return out
}

func (b *Beat) materialize(ctx context.Context, ownerUserID, videoID uuid.UUID, targets []schedule.PlatformCaption) (*post.MultiPost, []*post.Post, error) {
	mp, err := post.NewMultiPost(uuid.Must(uuid.NewV7()), ownerUserID, videoID, toPlatforms(targets))
	if err != nil {
		return nil, nil, err
	}
	if err := b.store.MultiPosts().Create(ctx, mp); err != nil {
		return nil, nil, fmt.Errorf("create multi-post: %w", err)
	}

	children := make([]*post.Post, 0, len(targets))
	for _, t := range targets {
		p, err := post.NewPost(uuid.Must(uuid.NewV7()), mp.ID(), t.Platform, t.Caption, t.Tags)
		if err != nil {
			return mp, children, err
		}
		if err := b.store.Posts().Create(ctx, p); err != nil {
			return mp, children, fmt.Errorf("create post for %s: %w", t.Platform, err)
		}
		children = append(children, p)
	}
	return mp, children, nil
}

func toPlatforms(targets []schedule.PlatformCaption) []platformcore.Platform {
	out := make([]platformcore.Platform, len(targets))
	for i, t := range targets {
		out[i] = t.Platform
	}
	return out
}

func (b *Beat) enqueueAll(ctx context.Context, children []*post.Post) error {
	for _, p := range children {
		payload, err := jobs.EncodePostJob(jobs.PostJob{PostID: p.ID()})
		if err != nil {
			return fmt.Errorf("encode job for post %s: %w", p.ID(), err)
		}
		if err := b.brk.Enqueue(ctx, b.queue, payload, broker.EnqueueOptions{DedupKey: p.ID().String()}); err != nil {
			return fmt.Errorf("enqueue job for post %s: %w", p.ID(), err)
		}
	}
	return nil
}
