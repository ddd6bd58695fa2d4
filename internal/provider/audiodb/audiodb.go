// Package audiodb resolves artist metadata through TheAudioDB JSON API.
package audiodb

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

const defaultBaseURL = "https://www.theaudiodb.com/api/v1/json"

// Adapter implements provider.ArtistProvider for TheAudioDB.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a TheAudioDB adapter. The free shared key "2" works for
// low-volume use; a patron key raises the quota.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey string) *Adapter {
	return NewWithBaseURL(limiter, logger, apiKey, defaultBaseURL)
}

// NewWithBaseURL creates an adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "theaudiodb")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameAudioDB }

// GetArtistInfo searches TheAudioDB by artist name.
func (a *Adapter) GetArtistInfo(ctx context.Context, artistName string) (*provider.ArtistInfo, error) {
	reqURL := fmt.Sprintf("%s/%s/search.php?s=%s", a.baseURL, url.PathEscape(a.apiKey), url.QueryEscape(artistName))

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameAudioDB, a.logger, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameAudioDB, Cause: fmt.Errorf("HTTP %d", status)}
	}

	var resp artistResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameAudioDB, Cause: fmt.Errorf("parsing search response: %w", err)}
	}
	if len(resp.Artists) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameAudioDB, Query: artistName}
	}

	return mapArtist(&resp.Artists[0]), nil
}

func mapArtist(art *audioDBArtist) *provider.ArtistInfo {
	info := &provider.ArtistInfo{
		Name:   art.Artist,
		Image:  art.ArtistThumb,
		Bio:    art.BiographyEN,
		Formed: art.FormedYear,
		Source: provider.NameAudioDB,
	}
	if art.Genre != "" {
		info.Genres = append(info.Genres, art.Genre)
	}
	if art.Style != "" && art.Style != art.Genre {
		info.Genres = append(info.Genres, art.Style)
	}
	return info
}
