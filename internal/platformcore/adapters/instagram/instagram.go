// Package instagram implements the platformcore.Adapter contract for
// Instagram Reels via the Graph API's container-based publishing
// flow (create a media container referencing a hosted video URL,
// poll until the container finishes processing, then publish it).
// Structured like the facebook adapter (same Graph API family, same
// app credential shape) with a poll loop grounded on the same capped
// backoff pattern as the tiktok adapter's upload-status poll.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
)

const (
	graphBase       = "https://graph.facebook.com/v19.0"
	pollStart       = 1 * time.Second
	pollCap         = 30 * time.Second
	pollHardCeiling = 10 * time.Minute
)

// Adapter implements platformcore.Adapter for Instagram.
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

func (a *Adapter) Platform() platformcore.Platform { return platformcore.PlatformInstagram }

func (a *Adapter) Capabilities() platformcore.Capabilities {
	return platformcore.Capabilities{
		MaxCaptionLength: 2200,
		MaxMediaCountMB:  1024,
		SupportsVideo:    true,
		RequiresAppCred:  false,
	}
}

func (a *Adapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	params := url.Values{}
	params.Set("client_id", a.appID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("scope", "instagram_content_publish,instagram_basic")
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
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram token response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, platformcore.New(platformcore.KindAuthExpired, "instagram rejected authorization code")
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

// RefreshToken extends Instagram's long-lived user token through the
// ig_refresh_token grant on /refresh_access_token, which takes only
// the current token (unlike the facebook adapter's fb_exchange_token
// grant, no app id or secret is sent).
func (a *Adapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", token.AccessToken)

	resp, err := a.get(ctx, fmt.Sprintf("%s/refresh_access_token?%s", graphBase, params.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram refresh response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "instagram long-lived token refresh failed")
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
	resp, err := a.get(ctx, fmt.Sprintf("%s/me?fields=id,username&access_token=%s", graphBase, url.QueryEscape(token.AccessToken)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram account info", err)
	}

	return &platformcore.AccountInfo{
		PlatformUserID: result.ID,
		Username:       result.Username,
		DisplayName:    result.Username,
	}, nil
}

// Publish creates a media container against a publicly reachable
// video URL, polls until Instagram finishes processing it, then
// publishes the container.
func (a *Adapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	if err := platformcore.ValidateCaption(a, content.Caption); err != nil {
		return nil, err
	}
	if err := platformcore.ValidateMedia(a, content.Media); err != nil {
		return nil, err
	}

	mediaURL, err := a.store.PresignedPutURL(ctx, content.Media.ObjectKey, content.Media.ContentType)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindStorageUnavailable, "resolve public video url for instagram container", err)
	}

	containerID, err := a.createContainer(ctx, token.AccessToken, mediaURL, content.Caption)
	if err != nil {
		return nil, err
	}

	if err := a.pollUntilReady(ctx, token.AccessToken, containerID); err != nil {
		return nil, err
	}

	return a.publishContainer(ctx, token.AccessToken, containerID)
}

func (a *Adapter) createContainer(ctx context.Context, accessToken, mediaURL, caption string) (string, error) {
	params := url.Values{}
	params.Set("media_type", "REELS")
	params.Set("video_url", mediaURL)
	params.Set("caption", caption)
	params.Set("access_token", accessToken)

	resp, err := a.post(ctx, fmt.Sprintf("%s/me/media?%s", graphBase, params.Encode()))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram container response", err)
	}
	if result.ID == "" {
		return "", platformcore.New(platformcore.KindPlatformTransient, "instagram did not return a container id")
	}
	return result.ID, nil
}

func (a *Adapter) pollUntilReady(ctx context.Context, accessToken, containerID string) error {
	started := a.clock.Now()
	delay := pollStart

	for {
		status, err := a.containerStatus(ctx, accessToken, containerID)
		if err != nil {
			return err
		}
		switch status {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return platformcore.New(platformcore.KindPlatformPermanent, fmt.Sprintf("instagram container entered terminal state %s", status))
		}

		if a.clock.Now().Sub(started) >= pollHardCeiling {
			return platformcore.New(platformcore.KindUploadProcessingTimeout, "instagram container processing exceeded 10 minutes")
		}

		select {
		case <-ctx.Done():
			return platformcore.Wrap(platformcore.KindTimeout, "context canceled while polling instagram container", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > pollCap {
			delay = pollCap
		}
	}
}

func (a *Adapter) containerStatus(ctx context.Context, accessToken, containerID string) (string, error) {
	resp, err := a.get(ctx, fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", graphBase, containerID, url.QueryEscape(accessToken)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		StatusCode string `json:"status_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram container status", err)
	}
	return result.StatusCode, nil
}

func (a *Adapter) publishContainer(ctx context.Context, accessToken, containerID string) (*platformcore.PostResult, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", accessToken)

	resp, err := a.post(ctx, fmt.Sprintf("%s/me/media_publish?%s", graphBase, params.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode instagram publish response", err)
	}
	if result.ID == "" {
		return nil, platformcore.New(platformcore.KindPlatformTransient, "instagram did not return a media id")
	}

	return &platformcore.PostResult{
		PlatformPostID: result.ID,
		URL:            fmt.Sprintf("https://www.instagram.com/reel/%s", result.ID),
		PublishedAt:    a.clock.Now(),
	}, nil
}

func (a *Adapter) get(ctx context.Context, rawURL string) (*http.Response, error) {
	return a.do(ctx, http.MethodGet, rawURL)
}

func (a *Adapter) post(ctx context.Context, rawURL string) (*http.Response, error) {
	return a.do(ctx, http.MethodPost, rawURL)
}

func (a *Adapter) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build instagram request", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "instagram request failed", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, platformcore.New(platformcore.KindRateLimited, "instagram rate limited this request").WithRetryAfter(time.Hour)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, platformcore.New(platformcore.KindAuthExpired, "instagram rejected access token")
	}
	return resp, nil
}
