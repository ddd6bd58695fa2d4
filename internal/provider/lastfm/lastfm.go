// Package lastfm resolves artist metadata through the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Adapter implements provider.ArtistProvider for Last.fm.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey string) *Adapter {
	return NewWithBaseURL(limiter, logger, apiKey, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "lastfm")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameLastFM }

// GetArtistInfo fetches artist.getinfo by display name.
func (a *Adapter) GetArtistInfo(ctx context.Context, artistName string) (*provider.ArtistInfo, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}

	params := url.Values{
		"method":  {"artist.getinfo"},
		"artist":  {artistName},
		"api_key": {a.apiKey},
		"format":  {"json"},
	}
	reqURL := a.baseURL + "/?" + params.Encode()

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameLastFM, a.logger, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameLastFM, Cause: fmt.Errorf("HTTP %d", status)}
	}

	var resp infoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameLastFM, Cause: fmt.Errorf("parsing artist info: %w", err)}
	}
	if resp.Artist.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, Query: artistName}
	}

	return mapArtist(&resp.Artist), nil
}

func mapArtist(info *artistInfo) *provider.ArtistInfo {
	out := &provider.ArtistInfo{
		Name:   info.Name,
		Bio:    cleanBio(info.Bio.Content),
		Image:  bestImage(info.Image),
		Source: provider.NameLastFM,
	}
	for _, tag := range info.Tags.Tag {
		if tag.Name != "" {
			out.Genres = append(out.Genres, tag.Name)
		}
	}
	return out
}

// bestImage picks the largest non-empty image URL. Last.fm orders
// sizes small to mega.
func bestImage(images []imageSpec) string {
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}

// cleanBio removes the Last.fm attribution link appended to bios.
func cleanBio(bio string) string {
	if idx := strings.Index(bio, "<a href=\"https://www.last.fm"); idx > 0 {
		bio = strings.TrimSpace(bio[:idx])
	}
	return bio
}
