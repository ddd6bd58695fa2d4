// Package places resolves venue details and photos through the Google
// Places API (v1 text search + place details).
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/provider"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// detailsPause separates the text-search call from the details
	// call for the same venue.
	detailsPause = 100 * time.Millisecond

	// locationBiasRadius constrains text search around known
	// coordinates, in meters.
	locationBiasRadius = 1000
)

// Adapter calls the Google Places API.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
	pause   time.Duration
}

// New creates a Places adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey string) *Adapter {
	return NewWithBaseURL(limiter, logger, apiKey, defaultBaseURL)
}

// NewWithBaseURL creates a Places adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "googleplaces")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		pause:   detailsPause,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameGooglePlaces }

// Configured reports whether an API key is present.
func (a *Adapter) Configured() bool { return a.apiKey != "" }

// SetPause overrides the search→details pause (for testing).
func (a *Adapter) SetPause(d time.Duration) { a.pause = d }

// FindVenue runs text search then place details for a venue. lat/lng
// of zero mean no location bias.
func (a *Adapter) FindVenue(ctx context.Context, venue, city, state string, lat, lng float64) (*Details, error) {
	if !a.Configured() {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameGooglePlaces}
	}

	placeID, err := a.searchText(ctx, venue, city, state, lat, lng)
	if err != nil {
		return nil, err
	}

	select {
	case <-time.After(a.pause):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return a.placeDetails(ctx, placeID)
}

// PhotoURL builds the media URL for a photo reference at the given max
// height. photoName already carries the full "places/.../photos/..."
// path.
func (a *Adapter) PhotoURL(photoName string, maxHeightPx int) string {
	return fmt.Sprintf("%s/%s/media?maxHeightPx=%d&key=%s", a.baseURL, photoName, maxHeightPx, a.apiKey)
}

// FetchPhoto downloads the media bytes for a photo reference, used by
// the photo probe. The media endpoint redirects to the image host;
// the default client follows it.
func (a *Adapter) FetchPhoto(ctx context.Context, photoName string, maxHeightPx int) ([]byte, error) {
	reqURL := a.PhotoURL(photoName, maxHeightPx)

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameGooglePlaces, a.logger, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "image/*")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameGooglePlaces, Cause: fmt.Errorf("HTTP %d fetching photo", status)}
	}
	return body, nil
}

func (a *Adapter) searchText(ctx context.Context, venue, city, state string, lat, lng float64) (string, error) {
	query := fmt.Sprintf("%s, %s, %s", venue, city, state)
	reqBody := searchTextRequest{TextQuery: query}
	if lat != 0 || lng != 0 {
		reqBody.LocationBias = &locationBias{
			Circle: circle{Center: latLng{Latitude: lat, Longitude: lng}, Radius: locationBiasRadius},
		}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling search request: %w", err)
	}

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameGooglePlaces, a.logger, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/places:searchText", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", a.apiKey)
		req.Header.Set("X-Goog-FieldMask", "places.id,places.displayName")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		return "", &provider.ErrAuthRequired{Provider: provider.NameGooglePlaces}
	}
	if status != http.StatusOK {
		return "", &provider.ErrUnavailable{Provider: provider.NameGooglePlaces, Cause: fmt.Errorf("HTTP %d", status)}
	}

	var resp searchTextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &provider.ErrUnavailable{Provider: provider.NameGooglePlaces, Cause: fmt.Errorf("parsing search response: %w", err)}
	}
	if len(resp.Places) == 0 {
		return "", &provider.ErrNotFound{Provider: provider.NameGooglePlaces, Query: query}
	}
	return resp.Places[0].ID, nil
}

func (a *Adapter) placeDetails(ctx context.Context, placeID string) (*Details, error) {
	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameGooglePlaces, a.logger, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/places/"+placeID, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", a.apiKey)
		req.Header.Set("X-Goog-FieldMask", "id,displayName,formattedAddress,rating,userRatingCount,websiteUri,types,photos")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameGooglePlaces, Cause: fmt.Errorf("HTTP %d fetching details for %s", status, placeID)}
	}

	var details Details
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameGooglePlaces, Cause: fmt.Errorf("parsing place details: %w", err)}
	}
	if details.ID == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameGooglePlaces, Query: placeID}
	}
	return &details, nil
}
