// Package tiktok implements the platformcore.Adapter contract for
// TikTok's Content Posting API. It is grounded on the chunked
// init/upload/poll flow in the retrieved Belard-SocialMediaAPI TikTok
// publisher, generalized from that file's single-chunk upload to true
// multi-chunk APPEND (the source only ever sent total_chunk_count=1).
// The poll loop measures its 10-minute ceiling against the injected
// clock; the waits between polls are real timers (time.After).
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
)

const (
	initEndpoint   = "https://open.tiktokapis.com/v2/post/publish/video/init/"
	statusEndpoint = "https://open.tiktokapis.com/v2/post/publish/status/fetch/"

	chunkSize       = 5 * 1024 * 1024 // 5 MiB, per spec
	pollStart       = 1 * time.Second
	pollCap         = 30 * time.Second
	pollHardCeiling = 10 * time.Minute
)

// Adapter implements platformcore.Adapter for TikTok.
type Adapter struct {
	clientKey    string
	clientSecret string
	httpClient   *http.Client
	store        objectstore.Store
	clock        clock.Clock
}

// New constructs the TikTok adapter. store resolves media bytes;
// clk drives the upload-processing poll loop.
func New(clientKey, clientSecret string, httpClient *http.Client, store objectstore.Store, clk clock.Clock) *Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Adapter{clientKey: clientKey, clientSecret: clientSecret, httpClient: httpClient, store: store, clock: clk}
}

func (a *Adapter) Platform() platformcore.Platform { return platformcore.PlatformTikTok }

func (a *Adapter) Capabilities() platformcore.Capabilities {
	return platformcore.Capabilities{
		MaxCaptionLength: 2200,
		MaxMediaCountMB:  4096,
		SupportsVideo:    true,
		RequiresAppCred:  false,
	}
}

func (a *Adapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	v := "https://www.tiktok.com/v2/auth/authorize/?client_key=%s&scope=video.publish&response_type=code&redirect_uri=%s&state=%s"
	return fmt.Sprintf(v, a.clientKey, redirectURI, state), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	body := fmt.Sprintf("client_key=%s&client_secret=%s&code=%s&grant_type=authorization_code&redirect_uri=%s",
		a.clientKey, a.clientSecret, code, redirectURI)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://open.tiktokapis.com/v2/oauth/token/",
		strings.NewReader(body))
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build token exchange request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok token exchange request failed", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		ExpiresIn        int64  `json:"expires_in"`
		OpenID           string `json:"open_id"`
		Scope            string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode tiktok token response", err)
	}
	if resp.StatusCode != http.StatusOK || payload.AccessToken == "" {
		return nil, platformcore.New(platformcore.KindAuthExpired, "tiktok rejected authorization code")
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken:    payload.AccessToken,
		RefreshToken:   payload.RefreshToken,
		ExpiresIn:      time.Duration(payload.ExpiresIn) * time.Second,
		ExpiresAt:      now.Add(time.Duration(payload.ExpiresIn) * time.Second),
		TokenType:      "Bearer",
		Scope:          payload.Scope,
		PlatformUserID: payload.OpenID,
	}, nil
}

func (a *Adapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	if token.RefreshToken == "" {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "tiktok connection has no refresh token")
	}
	body := fmt.Sprintf("client_key=%s&client_secret=%s&refresh_token=%s&grant_type=refresh_token",
		a.clientKey, a.clientSecret, token.RefreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://open.tiktokapis.com/v2/oauth/token/",
		strings.NewReader(body))
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build refresh request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok refresh request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "tiktok refresh token invalid")
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode tiktok refresh response", err)
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    time.Duration(payload.ExpiresIn) * time.Second,
		ExpiresAt:    now.Add(time.Duration(payload.ExpiresIn) * time.Second),
		TokenType:    "Bearer",
	}, nil
}

func (a *Adapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://open.tiktokapis.com/v2/user/info/?fields=open_id,display_name,username", nil)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build user info request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok user info request failed", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
				Username    string `json:"username"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode tiktok user info", err)
	}

	return &platformcore.AccountInfo{
		PlatformUserID: payload.Data.User.OpenID,
		Username:       payload.Data.User.Username,
		DisplayName:    payload.Data.User.DisplayName,
	}, nil
}

// Publish runs the full INIT -> APPEND(chunk[i]) -> FINALIZE (implicit
// once all chunks land) -> POLL state machine.
func (a *Adapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	if err := platformcore.ValidateCaption(a, content.Caption); err != nil {
		return nil, err
	}
	if err := platformcore.ValidateMedia(a, content.Media); err != nil {
		return nil, err
	}

	publishID, uploadURL, err := a.initUpload(ctx, token.AccessToken, content)
	if err != nil {
		return nil, err
	}

	if err := a.uploadChunks(ctx, uploadURL, content.Media); err != nil {
		return nil, err
	}

	if err := a.pollUntilPublished(ctx, token.AccessToken, publishID); err != nil {
		return nil, err
	}

	return &platformcore.PostResult{
		PlatformPostID: publishID,
		URL:            fmt.Sprintf("https://www.tiktok.com/@me/video/%s", publishID),
		PublishedAt:    a.clock.Now(),
	}, nil
}

func (a *Adapter) initUpload(ctx context.Context, accessToken string, content platformcore.PostContent) (publishID, uploadURL string, err error) {
	totalChunks := int((content.Media.SizeBytes + chunkSize - 1) / chunkSize)
	if totalChunks < 1 {
		totalChunks = 1
	}

	payload := map[string]any{
		"post_info": map[string]any{
			"title":         content.Caption,
			"privacy_level": "SELF_ONLY",
		},
		"source_info": map[string]any{
			"source":            "FILE_UPLOAD",
			"video_size":        content.Media.SizeBytes,
			"chunk_size":        chunkSize,
			"total_chunk_count": totalChunks,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", platformcore.Wrap(platformcore.KindInternal, "marshal tiktok init payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", platformcore.Wrap(platformcore.KindInternal, "build tiktok init request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", "", platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok init upload request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", "", platformcore.New(platformcore.KindRateLimited, "tiktok init upload rate limited").WithRetryAfter(60 * time.Second)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", "", platformcore.New(platformcore.KindAuthExpired, "tiktok rejected access token")
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", platformcore.New(platformcore.KindPlatformTransient, fmt.Sprintf("tiktok init upload error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var initResp struct {
		Data struct {
			PublishID string `json:"publish_id"`
			UploadURL string `json:"upload_url"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return "", "", platformcore.Wrap(platformcore.KindPlatformTransient, "parse tiktok init response", err)
	}
	if initResp.Error.Code != "" && initResp.Error.Code != "ok" {
		return "", "", platformcore.New(platformcore.KindPlatformPermanent, fmt.Sprintf("tiktok init error: %s - %s", initResp.Error.Code, initResp.Error.Message))
	}
	if initResp.Data.UploadURL == "" {
		return "", "", platformcore.New(platformcore.KindPlatformTransient, "tiktok returned empty upload url")
	}

	return initResp.Data.PublishID, initResp.Data.UploadURL, nil
}

// uploadChunks streams media in chunkSize windows, each as a separate
// PUT carrying its own Content-Range, so a multi-chunk video (total
// size above chunkSize) is uploaded as true APPEND calls instead of
// one oversized PUT.
func (a *Adapter) uploadChunks(ctx context.Context, uploadURL string, media platformcore.MediaRef) error {
	reader, err := a.store.OpenRead(ctx, media.ObjectKey)
	if err != nil {
		return platformcore.Wrap(platformcore.KindStorageUnavailable, "open video bytes for tiktok upload", err)
	}
	defer reader.Close()

	total := media.SizeBytes
	var offset int64
	buf := make([]byte, chunkSize)

	for offset < total {
		n, readErr := io.ReadFull(reader, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
			return platformcore.Wrap(platformcore.KindStorageUnavailable, "read video chunk", readErr)
		}
		chunk := buf[:n]

		end := offset + int64(n) - 1
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(chunk))
		if err != nil {
			return platformcore.Wrap(platformcore.KindInternal, "build tiktok chunk upload request", err)
		}
		req.Header.Set("Content-Type", "video/mp4")
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total))
		req.ContentLength = int64(n)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok chunk upload request failed", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return platformcore.New(platformcore.KindPlatformTransient, fmt.Sprintf("tiktok chunk upload error (status %d): %s", resp.StatusCode, string(body)))
		}

		offset += int64(n)
	}

	return nil
}

// pollUntilPublished implements the capped exponential backoff poll
// loop: start 1s, double to a cap of 30s, hard ceiling 10 minutes.
func (a *Adapter) pollUntilPublished(ctx context.Context, accessToken, publishID string) error {
	started := a.clock.Now()
	delay := pollStart

	for {
		status, err := a.fetchStatus(ctx, accessToken, publishID)
		if err != nil {
			return err
		}
		switch status {
		case "PUBLISH_COMPLETE":
			return nil
		case "FAILED":
			return platformcore.New(platformcore.KindPlatformPermanent, "tiktok reported video processing failure")
		}

		if a.clock.Now().Sub(started) >= pollHardCeiling {
			return platformcore.New(platformcore.KindUploadProcessingTimeout, "tiktok publish status polling exceeded 10 minutes")
		}

		select {
		case <-ctx.Done():
			return platformcore.Wrap(platformcore.KindTimeout, "context canceled while polling tiktok publish status", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > pollCap {
			delay = pollCap
		}
	}
}

func (a *Adapter) fetchStatus(ctx context.Context, accessToken, publishID string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"publish_id": publishID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, statusEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "build tiktok status request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindPlatformTransient, "tiktok status request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", platformcore.New(platformcore.KindPlatformTransient, fmt.Sprintf("tiktok status api error (status %d): %s", resp.StatusCode, string(body)))
	}

	var statusResp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return "", platformcore.Wrap(platformcore.KindPlatformTransient, "parse tiktok status response", err)
	}

	return strings.ToUpper(statusResp.Data.Status), nil
}
