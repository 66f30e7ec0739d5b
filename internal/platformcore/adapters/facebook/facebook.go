// Package facebook implements the platformcore.Adapter contract for
// Facebook Page video posts via the Graph API, grounded on the
// teacher's net/http + encoding/json call shape (shared across its
// adapter implementations) and on the teacher's FacebookConfig
// (AppID/AppSecret/WebhookVerifyToken) for the fields this adapter
// needs at construction.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
)

const graphBase = "https://graph.facebook.com/v19.0"

// Adapter implements platformcore.Adapter for Facebook.
type Adapter struct {
	appID      string
	appSecret  string
	httpClient *http.Client
	store      objectstore.Store
	clock      clock.Clock
}

func New(appID, appSecret string, store objectstore.Store, clk clock.Clock) *Adapter {
	return &Adapter{
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		store:      store,
		clock:      clk,
	}
}

func (a *Adapter) Platform() platformcore.Platform { return platformcore.PlatformFacebook }

func (a *Adapter) Capabilities() platformcore.Capabilities {
	return platformcore.Capabilities{
		MaxCaptionLength: 63206,
		MaxMediaCountMB:  10 * 1024,
		SupportsVideo:    true,
		RequiresAppCred:  false,
	}
}

func (a *Adapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	params := url.Values{}
	params.Set("client_id", a.appID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("scope", "pages_manage_posts,pages_read_engagement")
	return fmt.Sprintf("https://www.facebook.com/v19.0/dialog/oauth?%s", params.Encode()), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	params := url.Values{}
	params.Set("client_id", a.appID)
	params.Set("client_secret", a.appSecret)
	params.Set("redirect_uri", redirectURI)
	params.Set("code", code)

	resp, err := a.get(ctx, fmt.Sprintf("%s/oauth/access_token?%s", graphBase, params.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode facebook token response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, platformcore.New(platformcore.KindAuthExpired, "facebook rejected authorization code")
	}

	account, err := a.FetchAccountInfo(ctx, platformcore.Token{AccessToken: tokenResp.AccessToken})
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken:      tokenResp.AccessToken,
		ExpiresIn:        time.Duration(tokenResp.ExpiresIn) * time.Second,
		ExpiresAt:        now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		TokenType:        "Bearer",
		PlatformUserID:   account.PlatformUserID,
		PlatformUsername: account.Username,
	}, nil
}

// RefreshToken exchanges a short-lived user token for a long-lived
// one via Facebook's token-extension grant. Facebook page tokens
// otherwise do not expire on their own schedule, so this is the only
// "refresh" operation the platform offers.
func (a *Adapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", a.appID)
	params.Set("client_secret", a.appSecret)
	params.Set("fb_exchange_token", token.AccessToken)

	resp, err := a.get(ctx, fmt.Sprintf("%s/oauth/access_token?%s", graphBase, params.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode facebook refresh response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "facebook token extension failed")
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   time.Duration(tokenResp.ExpiresIn) * time.Second,
		ExpiresAt:   now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		TokenType:   "Bearer",
	}, nil
}

func (a *Adapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	resp, err := a.get(ctx, fmt.Sprintf("%s/me?fields=id,name&access_token=%s", graphBase, url.QueryEscape(token.AccessToken)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode facebook account info", err)
	}

	return &platformcore.AccountInfo{
		PlatformUserID: result.ID,
		Username:       result.ID,
		DisplayName:    result.Name,
	}, nil
}

// Publish uploads video bytes to the page's /videos edge as a single
// POST whose body is the raw video bytes. Facebook Page video posts of short-form length
// don't require the chunked upload session Graph API offers for
// large video, matching this system's short-video scope.
func (a *Adapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	if err := platformcore.ValidateCaption(a, content.Caption); err != nil {
		return nil, err
	}
	if err := platformcore.ValidateMedia(a, content.Media); err != nil {
		return nil, err
	}

	reader, err := a.store.OpenRead(ctx, content.Media.ObjectKey)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindStorageUnavailable, "open video bytes for facebook upload", err)
	}
	defer reader.Close()

	videoBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindStorageUnavailable, "read video bytes for facebook upload", err)
	}

	body := &bytes.Buffer{}
	body.Write(videoBytes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/me/videos?access_token=%s&description=%s", graphBase, url.QueryEscape(token.AccessToken), url.QueryEscape(content.Caption)),
		body)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build facebook video post request", err)
	}
	req.Header.Set("Content-Type", content.Media.ContentType)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "facebook video post request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, platformcore.New(platformcore.KindRateLimited, "facebook rate limited this post").WithRetryAfter(time.Hour)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, platformcore.New(platformcore.KindAuthExpired, "facebook rejected access token")
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode facebook video post response", err)
	}
	if result.ID == "" {
		return nil, platformcore.New(platformcore.KindPlatformTransient, "facebook did not return a video id")
	}

	return &platformcore.PostResult{
		PlatformPostID: result.ID,
		URL:            fmt.Sprintf("https://www.facebook.com/%s", result.ID),
		PublishedAt:    a.clock.Now(),
	}, nil
}

func (a *Adapter) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build facebook request", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "facebook request failed", err)
	}
	return resp, nil
}
