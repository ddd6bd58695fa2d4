// Package spotify resolves artist metadata through the Spotify Web API
// using the client-credentials flow.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/provider"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token" //nolint:gosec // G101: endpoint, not a credential
)

// Adapter implements provider.ArtistProvider for Spotify.
type Adapter struct {
	client       *http.Client
	limiter      *provider.RateLimiterMap
	logger       *slog.Logger
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string

	accessToken string
	tokenExpiry time.Time
}

// New creates a Spotify adapter with the default endpoints.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, clientID, clientSecret string) *Adapter {
	return NewWithBaseURL(limiter, logger, clientID, clientSecret, defaultBaseURL, defaultTokenURL)
}

// NewWithBaseURL creates a Spotify adapter with custom endpoints (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, clientID, clientSecret, baseURL, tokenURL string) *Adapter {
	return &Adapter{
		client:       &http.Client{Timeout: 10 * time.Second},
		limiter:      limiter,
		logger:       logger.With(slog.String("provider", "spotify")),
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameSpotify }

// Configured reports whether both client credentials are present.
func (a *Adapter) Configured() bool { return a.clientID != "" && a.clientSecret != "" }

// GetArtistInfo searches Spotify for the artist and maps the top hit.
// The waterfall applies its own name plausibility check; this adapter
// only guarantees the payload is well-formed.
func (a *Adapter) GetArtistInfo(ctx context.Context, artistName string) (*provider.ArtistInfo, error) {
	token, err := a.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"type":  {"artist"},
		"q":     {artistName},
		"limit": {"5"},
	}
	reqURL := a.baseURL + "/search?" + params.Encode()

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameSpotify, a.logger, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: fmt.Errorf("HTTP %d", status)}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: fmt.Errorf("parsing search response: %w", err)}
	}
	if len(resp.Artists.Items) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, Query: artistName}
	}

	top := resp.Artists.Items[0]
	info := &provider.ArtistInfo{
		Name:       top.Name,
		Genres:     top.Genres,
		Source:     provider.NameSpotify,
		SpotifyURL: top.ExternalURLs.Spotify,
	}
	// The first image is the largest (typically 640x640).
	if len(top.Images) > 0 {
		info.Image = top.Images[0].URL
	}
	return info, nil
}

// getAccessToken returns a cached client-credentials token, fetching a
// fresh one when missing or within a minute of expiry.
func (a *Adapter) getAccessToken(ctx context.Context) (string, error) {
	if !a.Configured() {
		return "", &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}
	if a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-time.Minute)) {
		return a.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: err}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: fmt.Errorf("parsing token response: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}

	a.accessToken = tok.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return a.accessToken, nil
}
