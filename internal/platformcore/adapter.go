// Package platformcore defines the contract every social platform
// integration implements, plus the shared vocabulary types that flow
// across that contract. It is modeled directly on the teacher's
// internal/social adapter package, generalized from a fixed
// three-platform set (Twitter/Facebook/LinkedIn) to the five
// platforms this system targets. Token carries decrypted token
// strings; sealing them for storage is left to the callers above the
// adapter, which pass them through the secret store.
package platformcore

import (
	"context"
	"time"
)

// Platform identifies a supported destination for a post.
type Platform string

const (
	PlatformTikTok    Platform = "TIKTOK"
	PlatformYouTube   Platform = "YOUTUBE"
	PlatformTwitter   Platform = "TWITTER"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformFacebook  Platform = "FACEBOOK"
)

// AllPlatforms lists every platform the adapter registry must carry
// an implementation for.
var AllPlatforms = []Platform{
	PlatformTikTok, PlatformYouTube, PlatformTwitter, PlatformInstagram, PlatformFacebook,
}

// Valid reports whether p is one of the known platform identifiers.
// Normalization to this type happens once, at the application
// use-case boundary (see internal/app), so everything below this
// point can assume a validated Platform.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// OAuthTokenResponse is what an adapter returns after exchanging an
// authorization code for tokens.
type OAuthTokenResponse struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        time.Duration
	ExpiresAt        time.Time
	TokenType        string
	Scope            string
	PlatformUserID   string
	PlatformUsername string
}

// Token is the decrypted, in-memory view of a platform connection's
// credentials, assembled by the token lifecycle manager just before
// an adapter call and never persisted in this form.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string

	// TokenSecret carries the OAuth 1.0a request-token secret some
	// platforms (Twitter media upload) still require alongside a
	// bearer-style access token.
	TokenSecret string
}

// MediaRef points at the uploaded video bytes an adapter needs to
// publish, resolved through the object store interface.
type MediaRef struct {
	ObjectKey   string
	ContentType string
	SizeBytes   int64
}

// PostContent is a single platform's rendering of a multi-post: its
// selected caption variant, the shared media, and any platform-set
// overrides already merged in by the caller.
type PostContent struct {
	Caption string
	Media   MediaRef
	Tags    []string
}

// PostResult is what a successful publish call returns.
type PostResult struct {
	PlatformPostID string
	URL            string
	PublishedAt    time.Time
}

// AccountInfo is the identity an adapter resolves a connection to,
// used to populate PlatformConnection metadata at connect time.
type AccountInfo struct {
	PlatformUserID string
	Username       string
	DisplayName    string
}

// RateLimitInfo is the adapter's best knowledge of its own quota
// state, surfaced for observability; enforcement itself happens in
// the shared Limiter below, ahead of the network call.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Capabilities describes what a platform accepts, used by the
// application layer to validate a MultiPost before it is ever
// scheduled.
type Capabilities struct {
	MaxCaptionLength int
	MaxMediaCountMB  int
	SupportsVideo    bool
	RequiresAppCred  bool
}

// Adapter is the contract every platform integration implements. It
// deliberately has no Go reflection or dynamic dispatch above it: the
// registry in this package maps Platform to a concrete Adapter value
// built at process start.
type Adapter interface {
	Platform() Platform
	Capabilities() Capabilities

	// AuthorizationURL builds the OAuth redirect URL for connecting
	// a new account under the given opaque, signed state value.
	AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error)

	// ExchangeCode completes an OAuth authorization-code flow.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthTokenResponse, error)

	// RefreshToken exchanges a refresh token for a fresh access
	// token. Adapters without refresh tokens (Instagram's
	// long-lived-token model) implement this as a token-extension
	// call instead of a grant-type=refresh_token exchange.
	RefreshToken(ctx context.Context, token Token) (*OAuthTokenResponse, error)

	// FetchAccountInfo resolves the identity behind token.
	FetchAccountInfo(ctx context.Context, token Token) (*AccountInfo, error)

	// Publish uploads and publishes content, returning a permanent
	// identifier on success or a *platformcore.Error on failure.
	Publish(ctx context.Context, token Token, content PostContent) (*PostResult, error)
}

// RequiresAppCredential reports whether an adapter needs a process-
// level application credential (Twitter OAuth 1.0a media upload)
// alongside the per-connection user token.
func RequiresAppCredential(a Adapter) bool {
	return a.Capabilities().RequiresAppCred
}
