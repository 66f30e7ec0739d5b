// Package dispatcher implements the Worker Pool (C7): concurrent
// workers that claim PostJobs off the broker and drive each Post
// through governor check, connection resolution, pre-flight
// validation, token acquisition, and adapter publish, recording a
// PostOutcome per attempt. It is grounded on the teacher's
// cmd/worker/main.go JobProcessor pool (N goroutines, graceful
// shutdown via os/signal + context.WithTimeout) generalized from a
// single placeholder publish step to the full §4.7 flow.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/domain/video"
	"github.com/videocast/scheduler/internal/governor"
	"github.com/videocast/scheduler/internal/jobs"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/tokens"
)

// DefaultConcurrency is the default worker count per process, per
// spec §5 / DISPATCHER_CONCURRENCY.
const DefaultConcurrency = 4

// DefaultPublishDeadline bounds a single publish attempt, per spec §5
// / PUBLISH_DEADLINE_MS — long enough to cover chunked upload of a
// platform's max video size.
const DefaultPublishDeadline = 30 * time.Minute

// VisibilityTimeout bounds how long a claimed job stays invisible to
// other dispatcher instances before the broker considers it abandoned.
const VisibilityTimeout = 35 * time.Minute

// idlePollInterval is how long a worker waits before re-polling an
// empty queue.
const idlePollInterval = 500 * time.Millisecond

// Logger is the minimal structured-logging surface the dispatcher needs.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Store groups the repositories and transactional boundary the
// dispatcher needs, backed by internal/store.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Posts() post.Repository
	MultiPosts() post.MultiPostRepository
	Connections() connection.Repository
	Videos() video.Repository
	Outcomes() post.OutcomeRepository
}

// Pool is the constructed dispatcher worker pool for one process.
type Pool struct {
	store       Store
	brk         broker.Broker
	registry    *platformcore.Registry
	governor    *governor.Governor
	tokenMgr    *tokens.Manager
	objectStore objectstore.Store
	clk         clock.Clock
	logger      Logger
	limiter     *platformcore.Limiter

	concurrency      int
	queue            string
	publishDeadline  time.Duration
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option { return func(p *Pool) { p.concurrency = n } }

// WithPublishDeadline overrides DefaultPublishDeadline.
func WithPublishDeadline(d time.Duration) Option { return func(p *Pool) { p.publishDeadline = d } }

// New constructs a dispatcher Pool.
func New(store Store, brk broker.Broker, registry *platformcore.Registry, gov *governor.Governor, tokenMgr *tokens.Manager, objStore objectstore.Store, clk clock.Clock, logger Logger, queue string, opts ...Option) *Pool {
	p := &Pool{
		store:           store,
		brk:             brk,
		registry:        registry,
		governor:        gov,
		tokenMgr:        tokenMgr,
		objectStore:     objStore,
		clk:             clk,
		logger:          logger,
		limiter:         platformcore.NewLimiter(),
		concurrency:     DefaultConcurrency,
		queue:           queue,
		publishDeadline: DefaultPublishDeadline,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts p.concurrency stateless worker goroutines and blocks
// until ctx is canceled, then waits for in-flight attempts to reach a
// publish-attempt boundary before returning (cooperative cancellation,
// per spec §5).
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.brk.Claim(ctx, p.queue, VisibilityTimeout)
		if err != nil {
			if errors.Is(err, broker.ErrEmpty) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(idlePollInterval):
				}
				continue
			}
			p.logger.Error("dispatcher: claim failed", "worker", workerID, "error", err)
			continue
		}

		if err := p.handle(ctx, job); err != nil {
			p.logger.Error("dispatcher: job handling failed", "worker", workerID, "error", err)
		}
	}
}

func (p *Pool) handle(ctx context.Context, job *broker.Job) error {
	pj, err := jobs.DecodePostJob(job.Payload)
	if err != nil {
		// Malformed payload can never succeed; ack to drop it rather
		// than looping forever.
		_ = p.brk.Ack(ctx, job.Handle)
		return fmt.Errorf("decode post job: %w", err)
	}

	outcome, action, err := p.processPost(ctx, pj)
	if err != nil {
		return fmt.Errorf("process post %s: %w", pj.PostID, err)
	}
	_ = outcome

	switch action.kind {
	case actionAck:
		return p.brk.Ack(ctx, job.Handle)
	case actionRetry:
		return p.brk.Nack(ctx, job.Handle, broker.NackOptions{RequeueDelayMS: action.delay.Milliseconds()})
	default:
		return p.brk.Ack(ctx, job.Handle)
	}
}

type actionKind int

const (
	actionAck actionKind = iota
	actionRetry
)

type dispatchAction struct {
	kind  actionKind
	delay time.Duration
}

// processPost runs the full per-job flow. It returns the recorded
// outcome (if one was produced) and the broker action to take.
func (p *Pool) processPost(ctx context.Context, pj jobs.PostJob) (*post.Outcome, dispatchAction, error) {
	var target *post.Post
	var startedAt time.Time

	err := p.store.WithTx(ctx, func(ctx context.Context) error {
		pst, err := p.store.Posts().FindByID(ctx, pj.PostID)
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		if pst.Status() != post.StatusPending && pst.Status() != post.StatusProcessing {
			target = nil // terminal already; idempotent drop
			return nil
		}
		startedAt = p.clk.Now()
		if pst.Status() == post.StatusPending {
			if err := pst.BeginProcessing(); err != nil {
				return fmt.Errorf("begin processing: %w", err)
			}
			if err := p.store.Posts().Update(ctx, pst); err != nil {
				return fmt.Errorf("persist processing post: %w", err)
			}
		}
		target = pst
		return nil
	})
	if err != nil {
		return nil, dispatchAction{kind: actionRetry, delay: BaseBackoff}, err
	}
	if target == nil {
		return nil, dispatchAction{kind: actionAck}, nil
	}

	pcErr := p.publishAttempt(ctx, target)
	return p.recordOutcome(ctx, target, startedAt, pcErr)
}

// publishAttempt performs the early governor check, connection
// resolution, pre-flight validation, token acquisition, per-connection
// rate-limit wait, and the adapter Publish call, returning nil on
// success or a *platformcore.Error describing the failure kind. A
// successful Publish still has to clear markPosted's transactional
// cooldown re-check before the Post is actually allowed to land.
func (p *Pool) publishAttempt(ctx context.Context, pst *post.Post) error {
	mp, err := p.store.MultiPosts().FindByID(ctx, pst.MultiPostID())
	if err != nil {
		return platformcore.Wrap(platformcore.KindInternal, "load owning multi-post", err)
	}
	ownerUserID, videoID := mp.OwnerUserID(), mp.VideoID()

	decision, err := p.governor.Check(ctx, ownerUserID, pst.Platform(), videoID, p.clk.Now())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return platformcore.New(platformcore.KindRepostCooldown, "repost cooldown in effect").WithHoursRemaining(decision.HoursRemaining)
	}

	conn, err := p.store.Connections().FindActive(ctx, ownerUserID, pst.Platform())
	if err != nil {
		if errors.Is(err, connection.ErrNotConnected) {
			return platformcore.New(platformcore.KindValidation, "platform not connected")
		}
		return platformcore.Wrap(platformcore.KindInternal, "resolve connection", err)
	}
	if !conn.IsActive() {
		return platformcore.New(platformcore.KindAuthRevoked, "platform connection is inactive")
	}

	adapter, ok := p.registry.Get(pst.Platform())
	if !ok {
		return platformcore.New(platformcore.KindConfigMissing, fmt.Sprintf("no adapter for %s", pst.Platform()))
	}

	if err := platformcore.ValidateCaption(adapter, pst.Caption()); err != nil {
		return err
	}

	vid, err := p.store.Videos().FindByID(ctx, videoID)
	if err != nil {
		return platformcore.Wrap(platformcore.KindInternal, "load video", err)
	}
	media := platformcore.MediaRef{
		ObjectKey: vid.ObjectKey(),
		SizeBytes: vid.Format().SizeBytes,
	}
	if err := platformcore.ValidateMedia(adapter, media); err != nil {
		return err
	}

	accessToken, err := p.tokenMgr.GetValidAccessToken(ctx, conn.ID())
	if err != nil {
		return err
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, p.publishDeadline)
	defer cancel()

	if err := p.limiter.Wait(deadlineCtx, pst.Platform(), conn.ID().String()); err != nil {
		if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
			return platformcore.New(platformcore.KindTimeout, "rate limiter wait exceeded publish deadline")
		}
		return platformcore.Wrap(platformcore.KindPlatformTransient, "rate limiter wait failed", err)
	}

	result, err := adapter.Publish(deadlineCtx, platformcore.Token{AccessToken: accessToken}, platformcore.PostContent{
		Caption: pst.Caption(),
		Tags:    pst.Tags(),
		Media:   media,
	})
	if err != nil {
		if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
			return platformcore.New(platformcore.KindTimeout, "publish attempt exceeded deadline")
		}
		if pcErr, ok := err.(*platformcore.Error); ok && pcErr.Kind == platformcore.KindAuthRevoked {
			if markErr := p.store.WithTx(ctx, func(ctx context.Context) error {
				if err := conn.MarkInactive(); err != nil {
					return err
				}
				return p.store.Connections().Update(ctx, conn)
			}); markErr != nil {
				p.logger.Error("dispatcher: mark connection inactive failed", "connection_id", conn.ID(), "error", markErr)
			}
		}
		return err
	}

	return p.markPosted(ctx, pst, ownerUserID, videoID, result)
}

// markPosted re-checks the repost cooldown and transitions pst to
// POSTED in one transaction, row-locking the video first so a second
// dispatcher attempt for the same (user, platform, video) — which
// read "allowed" from the same pre-publish Check this attempt did —
// blocks here until this transaction commits, then observes this
// Post's completion and is correctly denied. This is the single-
// transaction re-check/transition spec §5 requires to prevent the
// repost-cooldown TOCTOU race.
func (p *Pool) markPosted(ctx context.Context, pst *post.Post, ownerUserID, videoID uuid.UUID, result *platformcore.PostResult) error {
	return p.store.WithTx(ctx, func(ctx context.Context) error {
		if err := p.store.Videos().LockForUpdate(ctx, videoID); err != nil {
			return platformcore.Wrap(platformcore.KindInternal, "lock video for cooldown re-check", err)
		}

		decision, err := p.governor.Check(ctx, ownerUserID, pst.Platform(), videoID, p.clk.Now())
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return platformcore.New(platformcore.KindRepostCooldown, "repost cooldown in effect").WithHoursRemaining(decision.HoursRemaining)
		}

		if err := pst.MarkPosted(result.PlatformPostID, result.URL); err != nil {
			return err
		}
		return p.store.Posts().Update(ctx, pst)
	})
}

func (p *Pool) recordOutcome(ctx context.Context, pst *post.Post, startedAt time.Time, attemptErr error) (*post.Outcome, dispatchAction, error) {
	endedAt := p.clk.Now()

	if attemptErr == nil {
		oc := post.NewOutcome(newOutcomeID(), pst.ID(), pst.Attempt(), startedAt, endedAt, post.OutcomeSuccess, "", "")
		if err := p.store.Outcomes().Append(ctx, oc); err != nil {
			p.logger.Error("dispatcher: append success outcome failed", "post_id", pst.ID(), "error", err)
		}
		return oc, dispatchAction{kind: actionAck}, nil
	}

	pcErr, ok := attemptErr.(*platformcore.Error)
	if !ok {
		pcErr = platformcore.Wrap(platformcore.KindInternal, "unclassified dispatcher error", attemptErr)
	}

	kind := post.OutcomePermanentFail
	if pcErr.Kind.Retryable() {
		kind = post.OutcomeTransientFail
	}
	oc := post.NewOutcome(newOutcomeID(), pst.ID(), pst.Attempt(), startedAt, endedAt, kind, string(pcErr.Kind), safeExcerpt(pcErr.Message))
	if err := p.store.Outcomes().Append(ctx, oc); err != nil {
		p.logger.Error("dispatcher: append failure outcome failed", "post_id", pst.ID(), "error", err)
	}

	// Attempt 5 failing is terminal regardless of the kind's usual
	// retryability, per spec §4.7.
	retryable := pcErr.Kind.Retryable() && pst.Attempt() < MaxAttempts
	err := p.store.WithTx(ctx, func(ctx context.Context) error {
		if err := pst.MarkFailed(string(pcErr.Kind), safeExcerpt(pcErr.Message)); err != nil {
			return err
		}
		if retryable {
			if err := pst.ResetForRetry(); err != nil {
				return err
			}
		}
		return p.store.Posts().Update(ctx, pst)
	})
	if err != nil {
		return oc, dispatchAction{}, fmt.Errorf("apply post transition: %w", err)
	}

	if !retryable {
		return oc, dispatchAction{kind: actionAck}, nil
	}

	retryAfter := time.Duration(0)
	if pcErr.RetryAfter != nil {
		retryAfter = *pcErr.RetryAfter
	}
	delay := computeBackoff(pst.Attempt(), retryAfter)
	return oc, dispatchAction{kind: actionRetry, delay: delay}, nil
}

func newOutcomeID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func safeExcerpt(msg string) string {
	const maxLen = 500
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}
