package platformcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/videocast/scheduler/internal/platformcore"
)

type stubAdapter struct {
	platform platformcore.Platform
}

func (s stubAdapter) Platform() platformcore.Platform { return s.platform }
func (s stubAdapter) Capabilities() platformcore.Capabilities {
	return platformcore.Capabilities{MaxCaptionLength: 100}
}
func (s stubAdapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	return "", nil
}
func (s stubAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	return nil, nil
}
func (s stubAdapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	return nil, nil
}
func (s stubAdapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	return nil, nil
}
func (s stubAdapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	return nil, nil
}

func TestRegistryGet(t *testing.T) {
	reg, err := platformcore.NewRegistry(stubAdapter{platform: platformcore.PlatformTwitter})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	a, ok := reg.Get(platformcore.PlatformTwitter)
	if !ok {
		t.Fatal("expected twitter adapter to be registered")
	}
	if a.Platform() != platformcore.PlatformTwitter {
		t.Fatalf("got platform %s", a.Platform())
	}

	if _, ok := reg.Get(platformcore.PlatformTikTok); ok {
		t.Fatal("expected tiktok adapter to be absent")
	}
}

func TestValidateCaptionRejectsOverLimit(t *testing.T) {
	a := stubAdapter{platform: platformcore.PlatformTwitter}
	long := make([]byte, 101)
	if err := platformcore.ValidateCaption(a, string(long)); err == nil {
		t.Fatal("expected validation error for over-limit caption")
	}

	var perr *platformcore.Error
	err := platformcore.ValidateCaption(a, string(long))
	if err == nil {
		t.Fatal("expected error")
	}
	if e, ok := err.(*platformcore.Error); !ok || e.Kind != platformcore.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
	_ = perr
}

func TestRegistryRejectsUnknownPlatform(t *testing.T) {
	_, err := platformcore.NewRegistry(stubAdapter{platform: "MYSPACE"})
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestKindRetryable(t *testing.T) {
	if !platformcore.KindRateLimited.Retryable() {
		t.Fatal("RATE_LIMITED should be retryable")
	}
	if platformcore.KindAuthRevoked.Retryable() {
		t.Fatal("AUTH_REVOKED should not be retryable")
	}
}

func TestErrorRetryAfterRoundTrip(t *testing.T) {
	e := platformcore.New(platformcore.KindRateLimited, "slow down").WithRetryAfter(2 * time.Minute)
	if e.RetryAfter == nil || *e.RetryAfter != 2*time.Minute {
		t.Fatalf("expected retry after 2m, got %v", e.RetryAfter)
	}
}
