package governor_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/domain/post"
	"github.com/videocast/scheduler/internal/governor"
	"github.com/videocast/scheduler/internal/platformcore"
)

type stubPostRepo struct {
	post.Repository
	mostRecent *post.Post
	err        error
}

func (s stubPostRepo) MostRecentPosted(ctx context.Context, ownerUserID, videoID uuid.UUID, platform string) (*post.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.mostRecent, nil
}

func postedAt(t *testing.T, when time.Time) *post.Post {
	t.Helper()
	p, err := post.NewPost(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), platformcore.PlatformYouTube, "c", nil)
	if err != nil {
		t.Fatalf("NewPost: %v", err)
	}
	if err := p.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if err := p.MarkPosted("id", "url"); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}
	return post.Reconstruct(p.ID(), p.MultiPostID(), p.Platform(), p.Caption(), p.Tags(), p.Status(), p.Attempt(),
		p.LastErrorKind(), p.LastErrorMessage(), p.PlatformPostID(), p.PlatformPostURL(), p.CreatedAt(), when)
}

func TestCheckAllowsWhenNoPriorPost(t *testing.T) {
	g := governor.New(stubPostRepo{err: post.ErrNotFound})
	d, err := g.Check(context.Background(), uuid.Must(uuid.NewV7()), platformcore.PlatformYouTube, uuid.Must(uuid.NewV7()), time.Now())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected allowed with no prior post")
	}
}

func TestCheckDeniesWithinWindow(t *testing.T) {
	now := time.Now().UTC()
	prior := postedAt(t, now)
	g := governor.New(stubPostRepo{mostRecent: prior})

	d, err := g.Check(context.Background(), uuid.Must(uuid.NewV7()), platformcore.PlatformYouTube, uuid.Must(uuid.NewV7()), now.Add(1*time.Hour))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denial within 24h window")
	}
	if d.HoursRemaining != 23 {
		t.Fatalf("expected 23 hours remaining, got %d", d.HoursRemaining)
	}
}

func TestCheckAllowsAfterWindow(t *testing.T) {
	now := time.Now().UTC()
	prior := postedAt(t, now)
	g := governor.New(stubPostRepo{mostRecent: prior})

	d, err := g.Check(context.Background(), uuid.Must(uuid.NewV7()), platformcore.PlatformYouTube, uuid.Must(uuid.NewV7()), now.Add(24*time.Hour+time.Minute))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected allowed after 24h window")
	}
}

func TestCheckRejectsUnknownPlatform(t *testing.T) {
	g := governor.New(stubPostRepo{err: post.ErrNotFound})
	_, err := g.Check(context.Background(), uuid.Must(uuid.NewV7()), platformcore.Platform("bogus"), uuid.Must(uuid.NewV7()), time.Now())
	if err == nil {
		t.Fatal("expected validation error for unknown platform")
	}
}

func TestSelectCaptionVariantCursorArithmetic(t *testing.T) {
	variants := []string{"v0", "v1", "v2"}
	for i := 0; i < 7; i++ {
		got := governor.SelectCaptionVariant(variants, i, "base")
		want := variants[i%len(variants)]
		if got != want {
			t.Fatalf("cursor %d: got %q want %q", i, got, want)
		}
	}
}

func TestSelectCaptionVariantEmptyListReusesBase(t *testing.T) {
	got := governor.SelectCaptionVariant(nil, 5, "base-caption")
	if got != "base-caption" {
		t.Fatalf("expected base caption fallback, got %q", got)
	}
}
