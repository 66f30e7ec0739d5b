package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/broker/memorybroker"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/domain/connection"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/domain/video"
	"github.com/videocast/scheduler/internal/governor"
	"github.com/videocast/scheduler/internal/jobs"
	"github.com/videocast/scheduler/internal/log"
	"github.com/videocast/scheduler/internal/objectstore/fsstore"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/secretstore"
	"github.com/videocast/scheduler/internal/tokens"
)

// fakeStore implements dispatcher.Store in memory for tests, mirroring
// internal/store's shape without needing a database.
type fakeStore struct {
	posts       map[uuid.UUID]*post.Post
	multiPosts  map[uuid.UUID]*post.MultiPost
	conns       map[uuid.UUID]*connection.PlatformConnection
	connsByUser map[string]uuid.UUID
	videos      map[uuid.UUID]*video.Video
	outcomes    []*post.Outcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:       map[uuid.UUID]*post.Post{},
		multiPosts:  map[uuid.UUID]*post.MultiPost{},
		conns:       map[uuid.UUID]*connection.PlatformConnection{},
		connsByUser: map[string]uuid.UUID{},
		videos:      map[uuid.UUID]*video.Video{},
	}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
func (s *fakeStore) Posts() post.Repository                 { return fakePostRepo{s} }
func (s *fakeStore) MultiPosts() post.MultiPostRepository   { return fakeMultiPostRepo{s} }
func (s *fakeStore) Connections() connection.Repository     { return fakeConnRepo{s} }
func (s *fakeStore) Videos() video.Repository                { return fakeVideoRepo{s} }
func (s *fakeStore) Outcomes() post.OutcomeRepository        { return fakeOutcomeRepo{s} }

type fakePostRepo struct{ s *fakeStore }

func (r fakePostRepo) Create(ctx context.Context, p *post.Post) error {
	r.s.posts[p.ID()] = p
	return nil
}
func (r fakePostRepo) Update(ctx context.Context, p *post.Post) error {
	r.s.posts[p.ID()] = p
	return nil
}
func (r fakePostRepo) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	p, ok := r.s.posts[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	return p, nil
}
func (r fakePostRepo) FindByMultiPostID(ctx context.Context, multiPostID uuid.UUID) ([]*post.Post, error) {
	var out []*post.Post
	for _, p := range r.s.posts {
		if p.MultiPostID() == multiPostID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (r fakePostRepo) FindByStatus(ctx context.Context, status post.Status, offset, limit int) ([]*post.Post, error) {
	return nil, nil
}
func (r fakePostRepo) ClaimDue(ctx context.Context, before time.Time, limit int) ([]*post.Post, error) {
	return nil, nil
}
func (r fakePostRepo) MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*post.Post, error) {
	return nil, post.ErrNotFound // no prior posts: always allowed in these tests
}

type fakeMultiPostRepo struct{ s *fakeStore }

func (r fakeMultiPostRepo) Create(ctx context.Context, mp *post.MultiPost) error {
	r.s.multiPosts[mp.ID()] = mp
	return nil
}
func (r fakeMultiPostRepo) FindByID(ctx context.Context, id uuid.UUID) (*post.MultiPost, error) {
	mp, ok := r.s.multiPosts[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	return mp, nil
}
func (r fakeMultiPostRepo) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*post.MultiPost, error) {
	return nil, nil
}
func (r fakeMultiPostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.s.multiPosts, id)
	return nil
}

type fakeConnRepo struct{ s *fakeStore }

func (r fakeConnRepo) Create(ctx context.Context, c *connection.PlatformConnection) error {
	r.s.conns[c.ID()] = c
	r.s.connsByUser[c.OwnerUserID().String()+string(c.Platform())] = c.ID()
	return nil
}
func (r fakeConnRepo) Update(ctx context.Context, c *connection.PlatformConnection) error {
	r.s.conns[c.ID()] = c
	return nil
}
func (r fakeConnRepo) FindByID(ctx context.Context, id uuid.UUID) (*connection.PlatformConnection, error) {
	c, ok := r.s.conns[id]
	if !ok {
		return nil, connection.ErrNotConnected
	}
	return c, nil
}
func (r fakeConnRepo) FindActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform) (*connection.PlatformConnection, error) {
	id, ok := r.s.connsByUser[ownerUserID.String()+string(platform)]
	if !ok {
		return nil, connection.ErrNotConnected
	}
	return r.s.conns[id], nil
}
func (r fakeConnRepo) FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*connection.PlatformConnection, error) {
	return nil, nil
}
func (r fakeConnRepo) ExistsActive(ctx context.Context, ownerUserID uuid.UUID, platform platformcore.Platform, platformAccountID string) (bool, error) {
	return false, nil
}

type fakeVideoRepo struct{ s *fakeStore }

func (r fakeVideoRepo) Create(ctx context.Context, v *video.Video) error {
	r.s.videos[v.ID()] = v
	return nil
}
func (r fakeVideoRepo) Update(ctx context.Context, v *video.Video) error {
	r.s.videos[v.ID()] = v
	return nil
}
func (r fakeVideoRepo) FindByID(ctx context.Context, id uuid.UUID) (*video.Video, error) {
	v, ok := r.s.videos[id]
	if !ok {
		return nil, video.ErrNotFound
	}
	return v, nil
}
func (r fakeVideoRepo) FindByOwner(ctx context.Context, ownerUserID uuid.UUID, offset, limit int) ([]*video.Video, error) {
	return nil, nil
}
func (r fakeVideoRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.s.videos[id]; !ok {
		return video.ErrNotFound
	}
	return nil
}

type fakeOutcomeRepo struct{ s *fakeStore }

func (r fakeOutcomeRepo) Append(ctx context.Context, o *post.Outcome) error {
	r.s.outcomes = append(r.s.outcomes, o)
	return nil
}
func (r fakeOutcomeRepo) FindByPostID(ctx context.Context, postID uuid.UUID) ([]*post.Outcome, error) {
	var out []*post.Outcome
	for _, o := range r.s.outcomes {
		if o.PostID() == postID {
			out = append(out, o)
		}
	}
	return out, nil
}

// stubAdapter is a minimal platformcore.Adapter whose Publish behavior
// is scripted per test.
type stubAdapter struct {
	platform platformcore.Platform
	caps     platformcore.Capabilities
	publish  func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error)
}

func (a *stubAdapter) Platform() platformcore.Platform         { return a.platform }
func (a *stubAdapter) Capabilities() platformcore.Capabilities { return a.caps }
func (a *stubAdapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	return "", nil
}
func (a *stubAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	return nil, nil
}
func (a *stubAdapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	return nil, platformcore.New(platformcore.KindValidation, "not supported in test stub")
}
func (a *stubAdapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	return nil, nil
}
func (a *stubAdapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	return a.publish(ctx, token, content)
}

// harness wires one Pool against an all-in-memory fake store, broker,
// and a single scripted platform adapter, for exercising processPost
// without a database or network.
type harness struct {
	store *fakeStore
	brk   broker.Broker
	pool  *Pool
	clk   *clock.VirtualClock
}

func newHarness(t *testing.T, publish func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error)) *harness {
	t.Helper()
	clk := clock.NewVirtualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	st := newFakeStore()
	brk := memorybroker.New(clk)

	adapter := &stubAdapter{
		platform: platformcore.PlatformTwitter,
		caps:     platformcore.Capabilities{MaxCaptionLength: 280, SupportsVideo: true},
		publish:  publish,
	}
	registry, err := platformcore.NewRegistry(adapter)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	secrets, err := secretstore.New("test-passphrase", "test-salt")
	if err != nil {
		t.Fatalf("new secretstore: %v", err)
	}
	tokenMgr := tokens.New(st.Connections(), secrets, registry, clk, log.Nop{}, tokens.AppCredentials{})
	gov := governor.New(st.Posts())

	objStore, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new object store: %v", err)
	}

	pool := New(st, brk, registry, gov, tokenMgr, objStore, clk, log.Nop{}, "posts",
		WithConcurrency(1), WithPublishDeadline(time.Minute))

	return &harness{store: st, brk: brk, pool: pool, clk: clk}
}

func (h *harness) seedPost(t *testing.T, caption string) (*post.Post, uuid.UUID) {
	t.Helper()
	ownerID := uuid.Must(uuid.NewV7())
	videoID := uuid.Must(uuid.NewV7())

	v, err := video.NewVideo(videoID, ownerID, "objects/v1.mp4")
	if err != nil {
		t.Fatalf("new video: %v", err)
	}
	if err := v.MarkReady(video.Format{Container: "mp4", Codec: "h264", SizeBytes: 1024}); err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	h.store.videos[v.ID()] = v

	sealedAT, err := h.tokenSecrets().Seal([]byte("access-token"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	conn, err := connection.NewConnection(uuid.Must(uuid.NewV7()), ownerID, platformcore.PlatformTwitter,
		"acct-1", "Acct One", []string{"publish"}, sealedAT, nil, h.clk.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	if err := h.store.Connections().Create(context.Background(), conn); err != nil {
		t.Fatalf("create connection: %v", err)
	}

	mp, err := post.NewMultiPost(uuid.Must(uuid.NewV7()), ownerID, videoID, []platformcore.Platform{platformcore.PlatformTwitter})
	if err != nil {
		t.Fatalf("new multipost: %v", err)
	}
	if err := h.store.MultiPosts().Create(context.Background(), mp); err != nil {
		t.Fatalf("create multipost: %v", err)
	}

	p, err := post.NewPost(uuid.Must(uuid.NewV7()), mp.ID(), platformcore.PlatformTwitter, caption, nil)
	if err != nil {
		t.Fatalf("new post: %v", err)
	}
	if err := h.store.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p, ownerID
}

// tokenSecrets is a throwaway helper: dispatcher tests don't exercise
// the token manager's own seal/open path, only its passthrough of an
// already-sealed blob, so any store sealed under the same passphrase
// the harness configured works.
func (h *harness) tokenSecrets() *secretstore.Store {
	s, _ := secretstore.New("test-passphrase", "test-salt")
	return s
}

func TestDispatcher_SuccessTransitionsPosted(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		return &platformcore.PostResult{PlatformPostID: "tw_123", URL: "https://x.com/tw_123"}, nil
	})
	p, _ := h.seedPost(t, "hello world")

	outcome, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
	if err != nil {
		t.Fatalf("processPost: %v", err)
	}
	if action.kind != actionAck {
		t.Fatalf("expected ack action, got %v", action.kind)
	}
	if outcome.Kind() != post.OutcomeSuccess {
		t.Fatalf("expected SUCCESS outcome, got %v", outcome.Kind())
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusPosted {
		t.Fatalf("expected POSTED, got %v", stored.Status())
	}
	if stored.PlatformPostID() != "tw_123" {
		t.Fatalf("expected platform post id to be recorded, got %q", stored.PlatformPostID())
	}
}

func TestDispatcher_TransientFailureRetriesWithBackoff(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		return nil, platformcore.New(platformcore.KindPlatformTransient, "upstream 503")
	})
	p, _ := h.seedPost(t, "hello world")

	_, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
	if err != nil {
		t.Fatalf("processPost: %v", err)
	}
	if action.kind != actionRetry {
		t.Fatalf("expected retry action, got %v", action.kind)
	}
	if action.delay < BaseBackoff/2 || action.delay > CapBackoff+time.Second {
		t.Fatalf("backoff delay %v out of expected bounds", action.delay)
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusPending {
		t.Fatalf("expected post reset to PENDING for retry, got %v", stored.Status())
	}
	if stored.Attempt() != 1 {
		t.Fatalf("expected attempt 1, got %d", stored.Attempt())
	}
}

// TestDispatcher_FifthFailureIsTerminal drives a Post through five
// failing attempts and asserts it ends FAILED without a sixth retry,
// per spec §4.7/§8 ("Dispatcher attempt 5 failing transitions FAILED
// and does not retry").
func TestDispatcher_FifthFailureIsTerminal(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		return nil, platformcore.New(platformcore.KindPlatformTransient, "upstream 503")
	})
	p, _ := h.seedPost(t, "hello world")

	var lastAction dispatchAction
	for i := 0; i < MaxAttempts; i++ {
		_, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
		if err != nil {
			t.Fatalf("processPost attempt %d: %v", i+1, err)
		}
		lastAction = action
	}

	if lastAction.kind != actionAck {
		t.Fatalf("expected final attempt to ack (no further retry), got %v", lastAction.kind)
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusFailed {
		t.Fatalf("expected terminal FAILED after %d attempts, got %v", MaxAttempts, stored.Status())
	}
	if stored.Attempt() != MaxAttempts {
		t.Fatalf("expected attempt counter at %d, got %d", MaxAttempts, stored.Attempt())
	}

	outcomes, err := h.store.Outcomes().FindByPostID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find outcomes: %v", err)
	}
	if len(outcomes) != MaxAttempts {
		t.Fatalf("expected %d outcome rows, got %d", MaxAttempts, len(outcomes))
	}
}

func TestDispatcher_RepostCooldownFailsImmediately(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		t.Fatal("publish should never be called when the governor denies")
		return nil, nil
	})
	p, _ := h.seedPost(t, "hello world")

	// Inject a prior POSTED post for the same (owner, platform, video)
	// completed 1 hour ago, so the 24h cooldown is in effect.
	mp, _ := h.store.MultiPosts().FindByID(context.Background(), p.MultiPostID())
	prior, err := post.NewPost(uuid.Must(uuid.NewV7()), mp.ID(), platformcore.PlatformTwitter, "earlier", nil)
	if err != nil {
		t.Fatalf("new prior post: %v", err)
	}
	if err := prior.BeginProcessing(); err != nil {
		t.Fatalf("begin processing: %v", err)
	}
	if err := prior.MarkPosted("tw_earlier", "https://x.com/tw_earlier"); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	// MarkPosted stamps the wall-clock time; pin the harness clock one
	// hour after that completion.
	h.clk.Set(prior.UpdatedAt().Add(time.Hour))
	h.store.posts[prior.ID()] = prior
	h.store.posts[p.ID()] = p

	// Override MostRecentPosted behavior for this test by wrapping the
	// governor's repository query through a small adapter.
	h.pool = New(h.store, h.brk, h.pool.registry, governor.New(cooldownPostRepo{h.store, prior}), h.pool.tokenMgr,
		h.pool.objectStore, h.clk, log.Nop{}, "posts", WithConcurrency(1), WithPublishDeadline(time.Minute))

	_, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
	if err != nil {
		t.Fatalf("processPost: %v", err)
	}
	if action.kind != actionAck {
		t.Fatalf("expected ack (terminal denial), got %v", action.kind)
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusFailed {
		t.Fatalf("expected FAILED, got %v", stored.Status())
	}
	if stored.LastErrorKind() != string(platformcore.KindRepostCooldown) {
		t.Fatalf("expected REPOST_COOLDOWN, got %q", stored.LastErrorKind())
	}
}

// cooldownPostRepo wraps fakePostRepo but always reports prior as the
// most recently posted match, simulating an existing cooldown-bearing
// success.
type cooldownPostRepo struct {
	s     *fakeStore
	prior *post.Post
}

func (r cooldownPostRepo) Create(ctx context.Context, p *post.Post) error {
	r.s.posts[p.ID()] = p
	return nil
}
func (r cooldownPostRepo) Update(ctx context.Context, p *post.Post) error {
	r.s.posts[p.ID()] = p
	return nil
}
func (r cooldownPostRepo) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	p, ok := r.s.posts[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	return p, nil
}
func (r cooldownPostRepo) FindByMultiPostID(ctx context.Context, multiPostID uuid.UUID) ([]*post.Post, error) {
	return nil, nil
}
func (r cooldownPostRepo) FindByStatus(ctx context.Context, status post.Status, offset, limit int) ([]*post.Post, error) {
	return nil, nil
}
func (r cooldownPostRepo) ClaimDue(ctx context.Context, before time.Time, limit int) ([]*post.Post, error) {
	return nil, nil
}
func (r cooldownPostRepo) MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*post.Post, error) {
	return r.prior, nil
}

// TestDispatcher_AuthRevokedMarksConnectionInactive drives a publish
// attempt whose adapter reports AUTH_REVOKED mid-flight, per spec §8
// scenario 6: the Post must terminate FAILED/AUTH_REVOKED and the
// backing PlatformConnection must flip inactive in the same attempt,
// with no retry.
func TestDispatcher_AuthRevokedMarksConnectionInactive(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "token revoked by platform")
	})
	p, ownerID := h.seedPost(t, "hello world")

	_, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
	if err != nil {
		t.Fatalf("processPost: %v", err)
	}
	if action.kind != actionAck {
		t.Fatalf("expected ack (terminal denial), got %v", action.kind)
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusFailed {
		t.Fatalf("expected FAILED, got %v", stored.Status())
	}
	if stored.LastErrorKind() != string(platformcore.KindAuthRevoked) {
		t.Fatalf("expected AUTH_REVOKED, got %q", stored.LastErrorKind())
	}

	// The fake repository's FindActive doesn't filter on status (the
	// real store's does, via platform_connections(user_id, platform,
	// active)), so assert directly on the stored row's flag instead:
	// the connection driving future attempts must now be inactive.
	conn, err := h.store.Connections().FindActive(context.Background(), ownerID, platformcore.PlatformTwitter)
	if err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if conn.IsActive() {
		t.Fatalf("expected connection to be marked inactive after AUTH_REVOKED")
	}
}

// racingCooldownPostRepo simulates a competing Post for the same
// (owner, platform, video) landing POSTED in the gap between this
// attempt's early governor.Check (before the network call) and its
// markPosted re-check (after): MostRecentPosted reports "nothing yet"
// the first call and the competitor's POSTED row on every call after.
type racingCooldownPostRepo struct {
	fakePostRepo
	competitor *post.Post
	calls      int
}

func (r *racingCooldownPostRepo) MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*post.Post, error) {
	r.calls++
	if r.calls == 1 {
		return nil, post.ErrNotFound
	}
	return r.competitor, nil
}

// TestDispatcher_MarkPostedRechecksCooldownAtomically drives spec.md
// §5's TOCTOU guard directly: an attempt that passed the early
// cooldown check must still be denied if a competing Post for the
// same (owner, platform, video) completes before this attempt's
// markPosted transaction commits, and must not leave the Post POSTED.
func TestDispatcher_MarkPostedRechecksCooldownAtomically(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
		return &platformcore.PostResult{PlatformPostID: "tw_race", URL: "https://x.com/tw_race"}, nil
	})
	p, _ := h.seedPost(t, "hello world")

	mp, _ := h.store.MultiPosts().FindByID(context.Background(), p.MultiPostID())
	competitor, err := post.NewPost(uuid.Must(uuid.NewV7()), mp.ID(), platformcore.PlatformTwitter, "earlier", nil)
	if err != nil {
		t.Fatalf("new competitor post: %v", err)
	}
	if err := competitor.BeginProcessing(); err != nil {
		t.Fatalf("begin processing: %v", err)
	}
	if err := competitor.MarkPosted("tw_earlier", "https://x.com/tw_earlier"); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	h.store.posts[competitor.ID()] = competitor

	racingRepo := &racingCooldownPostRepo{fakePostRepo: fakePostRepo{h.store}, competitor: competitor}
	h.pool = New(h.store, h.brk, h.pool.registry, governor.New(racingRepo), h.pool.tokenMgr,
		h.pool.objectStore, h.clk, log.Nop{}, "posts", WithConcurrency(1), WithPublishDeadline(time.Minute))

	_, action, err := h.pool.processPost(context.Background(), jobs.PostJob{PostID: p.ID()})
	if err != nil {
		t.Fatalf("processPost: %v", err)
	}
	if action.kind != actionAck {
		t.Fatalf("expected ack (terminal denial), got %v", action.kind)
	}
	if racingRepo.calls < 2 {
		t.Fatalf("expected markPosted to re-check cooldown after the early check, got %d calls", racingRepo.calls)
	}

	stored, err := h.store.Posts().FindByID(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	if stored.Status() != post.StatusFailed {
		t.Fatalf("expected FAILED (denied on re-check), got %v", stored.Status())
	}
	if stored.LastErrorKind() != string(platformcore.KindRepostCooldown) {
		t.Fatalf("expected REPOST_COOLDOWN, got %q", stored.LastErrorKind())
	}
	if stored.PlatformPostID() != "" {
		t.Fatalf("expected no platform post id recorded once denied on re-check, got %q", stored.PlatformPostID())
	}
}
