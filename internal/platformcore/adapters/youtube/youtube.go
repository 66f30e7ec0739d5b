// Package youtube implements the platformcore.Adapter contract for
// YouTube Shorts, structured after the teacher's TwitterAdapter
// (OAuth2 bearer flow, net/http JSON calls) with the resumable-upload
// shape generalized from the tiktok adapter's chunked state machine,
// since the YouTube Data API's videos.insert endpoint is itself a
// resumable-upload protocol (POST to start a session, then PUT chunks
// against the session URI).
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/platformcore"
)

const chunkSize = 8 * 1024 * 1024 // 8 MiB

// Adapter implements platformcore.Adapter for YouTube.
type Adapter struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	store        objectstore.Store
	clock        clock.Clock
}

func New(clientID, clientSecret string, store objectstore.Store, clk clock.Clock) *Adapter {
	return &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		store:        store,
		clock:        clk,
	}
}

func (a *Adapter) Platform() platformcore.Platform { return platformcore.PlatformYouTube }

func (a *Adapter) Capabilities() platformcore.Capabilities {
	return platformcore.Capabilities{
		MaxCaptionLength: 5000,
		MaxMediaCountMB:  /* 256 GB cap, expressed in MB */ 256 * 1024,
		SupportsVideo:    true,
		RequiresAppCred:  false,
	}
}

func (a *Adapter) AuthorizationURL(ctx context.Context, state, redirectURI string) (string, error) {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", a.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", "https://www.googleapis.com/auth/youtube.upload")
	params.Set("access_type", "offline")
	params.Set("state", state)
	return fmt.Sprintf("https://accounts.google.com/o/oauth2/v2/auth?%s", params.Encode()), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*platformcore.OAuthTokenResponse, error) {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)
	data.Set("redirect_uri", redirectURI)
	data.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://oauth2.googleapis.com/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build youtube token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "youtube token exchange failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, platformcore.New(platformcore.KindAuthExpired, fmt.Sprintf("youtube oauth failed: %s", string(body)))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
		TokenType    string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode youtube token response", err)
	}

	account, err := a.FetchAccountInfo(ctx, platformcore.Token{AccessToken: tokenResp.AccessToken})
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken:      tokenResp.AccessToken,
		RefreshToken:     tokenResp.RefreshToken,
		ExpiresIn:        time.Duration(tokenResp.ExpiresIn) * time.Second,
		ExpiresAt:        now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		TokenType:        tokenResp.TokenType,
		Scope:            tokenResp.Scope,
		PlatformUserID:   account.PlatformUserID,
		PlatformUsername: account.Username,
	}, nil
}

func (a *Adapter) RefreshToken(ctx context.Context, token platformcore.Token) (*platformcore.OAuthTokenResponse, error) {
	if token.RefreshToken == "" {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "youtube connection has no refresh token")
	}
	data := url.Values{}
	data.Set("refresh_token", token.RefreshToken)
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://oauth2.googleapis.com/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build youtube refresh request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "youtube refresh request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, platformcore.New(platformcore.KindAuthRevoked, "youtube refresh token invalid")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode youtube refresh response", err)
	}

	now := a.clock.Now()
	return &platformcore.OAuthTokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    time.Duration(tokenResp.ExpiresIn) * time.Second,
		ExpiresAt:    now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

func (a *Adapter) FetchAccountInfo(ctx context.Context, token platformcore.Token) (*platformcore.AccountInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/youtube/v3/channels?part=snippet&mine=true", nil)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindInternal, "build youtube channel request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "youtube channel request failed", err)
	}
	defer resp.Body.Close()

	var result struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, platformcore.Wrap(platformcore.KindPlatformTransient, "decode youtube channel response", err)
	}
	if len(result.Items) == 0 {
		return nil, platformcore.New(platformcore.KindPlatformPermanent, "youtube account has no channel")
	}

	return &platformcore.AccountInfo{
		PlatformUserID: result.Items[0].ID,
		Username:       result.Items[0].Snippet.Title,
		DisplayName:    result.Items[0].Snippet.Title,
	}, nil
}

// Publish starts a resumable upload session, then streams the video
// in chunkSize windows against the session URI, mirroring the same
// multi-chunk PUT loop the tiktok adapter uses against its own
// upload-session URL.
func (a *Adapter) Publish(ctx context.Context, token platformcore.Token, content platformcore.PostContent) (*platformcore.PostResult, error) {
	if err := platformcore.ValidateCaption(a, content.Caption); err != nil {
		return nil, err
	}
	if err := platformcore.ValidateMedia(a, content.Media); err != nil {
		return nil, err
	}

	sessionURI, err := a.startResumableSession(ctx, token.AccessToken, content)
	if err != nil {
		return nil, err
	}

	videoID, err := a.uploadChunks(ctx, sessionURI, content.Media)
	if err != nil {
		return nil, err
	}

	return &platformcore.PostResult{
		PlatformPostID: videoID,
		URL:            fmt.Sprintf("https://youtube.com/shorts/%s", videoID),
		PublishedAt:    a.clock.Now(),
	}, nil
}

func (a *Adapter) startResumableSession(ctx context.Context, accessToken string, content platformcore.PostContent) (string, error) {
	metadata := map[string]any{
		"snippet": map[string]any{
			"title":       truncate(content.Caption, 100),
			"description": content.Caption,
			"tags":        content.Tags,
		},
		"status": map[string]any{"privacyStatus": "public"},
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "marshal youtube upload metadata", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status",
		bytes.NewReader(body))
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindInternal, "build youtube upload session request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", content.Media.ContentType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", content.Media.SizeBytes))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindPlatformTransient, "youtube upload session request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", platformcore.New(platformcore.KindRateLimited, "youtube quota exceeded").WithRetryAfter(time.Hour)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", platformcore.New(platformcore.KindAuthExpired, "youtube rejected access token")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", platformcore.New(platformcore.KindPlatformTransient, fmt.Sprintf("youtube upload session error (status %d): %s", resp.StatusCode, string(body)))
	}

	sessionURI := resp.Header.Get("Location")
	if sessionURI == "" {
		return "", platformcore.New(platformcore.KindPlatformTransient, "youtube did not return an upload session uri")
	}
	return sessionURI, nil
}

func (a *Adapter) uploadChunks(ctx context.Context, sessionURI string, media platformcore.MediaRef) (string, error) {
	reader, err := a.store.OpenRead(ctx, media.ObjectKey)
	if err != nil {
		return "", platformcore.Wrap(platformcore.KindStorageUnavailable, "open video bytes for youtube upload", err)
	}
	defer reader.Close()

	total := media.SizeBytes
	var offset int64
	buf := make([]byte, chunkSize)
	var videoID string

	for offset < total {
		n, readErr := io.ReadFull(reader, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
			return "", platformcore.Wrap(platformcore.KindStorageUnavailable, "read video chunk", readErr)
		}
		chunk := buf[:n]
		end := offset + int64(n) - 1

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURI, bytes.NewReader(chunk))
		if err != nil {
			return "", platformcore.Wrap(platformcore.KindInternal, "build youtube chunk upload request", err)
		}
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total))
		req.ContentLength = int64(n)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return "", platformcore.Wrap(platformcore.KindPlatformTransient, "youtube chunk upload failed", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			var result struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(body, &result); err == nil {
				videoID = result.ID
			}
		case 308: // Resume Incomplete, keep going
		default:
			return "", platformcore.New(platformcore.KindPlatformTransient, fmt.Sprintf("youtube chunk upload error (status %d): %s", resp.StatusCode, string(body)))
		}

		offset += int64(n)
	}

	if videoID == "" {
		return "", platformcore.New(platformcore.KindUploadProcessingTimeout, "youtube upload completed without returning a video id")
	}
	return videoID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
