// Package geocode resolves venue coordinates through the Google
// Geocoding API, with a static city table as offline fallback.
package geocode

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

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result is a geocoder hit.
type Result struct {
	Coordinates      Coordinates `json:"coordinates"`
	FormattedAddress string      `json:"formatted_address"`
}

// Adapter calls the Google Geocoding API.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a geocoding adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey string) *Adapter {
	return NewWithBaseURL(limiter, logger, apiKey, defaultBaseURL)
}

// NewWithBaseURL creates a geocoding adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, apiKey, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "googlemaps")),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameGoogleMaps }

// Configured reports whether an API key is present.
func (a *Adapter) Configured() bool { return a.apiKey != "" }

// Geocode resolves "venue, city, state" to coordinates. A ZERO_RESULTS
// status maps to ErrNotFound; every other non-OK status is transient.
func (a *Adapter) Geocode(ctx context.Context, venue, city, state string) (*Result, error) {
	if !a.Configured() {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameGoogleMaps}
	}

	address := fmt.Sprintf("%s, %s, %s", venue, city, state)
	params := url.Values{
		"address": {address},
		"key":     {a.apiKey},
	}
	reqURL := a.baseURL + "?" + params.Encode()

	body, status, err := provider.Fetch(ctx, a.client, a.limiter, provider.NameGoogleMaps, a.logger, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &provider.ErrUnavailable{Provider: provider.NameGoogleMaps, Cause: fmt.Errorf("HTTP %d", status)}
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameGoogleMaps, Cause: fmt.Errorf("parsing geocode response: %w", err)}
	}

	switch {
	case resp.Status == "OK" && len(resp.Results) > 0:
		r := resp.Results[0]
		return &Result{
			Coordinates:      Coordinates{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			FormattedAddress: r.FormattedAddress,
		}, nil
	case resp.Status == "ZERO_RESULTS":
		return nil, &provider.ErrNotFound{Provider: provider.NameGoogleMaps, Query: address}
	case resp.Status == "OVER_QUERY_LIMIT":
		return nil, &provider.ErrThrottled{Provider: provider.NameGoogleMaps, RetryAfter: 2 * time.Second}
	default:
		return nil, &provider.ErrUnavailable{Provider: provider.NameGoogleMaps, Cause: fmt.Errorf("status %s", resp.Status)}
	}
}

// CityCoordinates returns the static fallback coordinates for a
// "City, ST" string, if known. Used when the geocoder is disabled or
// has no answer.
func CityCoordinates(cityState string) (Coordinates, bool) {
	c, ok := cityTable[strings.TrimSpace(cityState)]
	return c, ok
}

// DefaultCoordinates is the last-resort fallback (Denver, CO).
func DefaultCoordinates() Coordinates {
	return Coordinates{Lat: 39.7392, Lng: -104.9903}
}

// cityTable maps "City, ST" to coordinates, avoiding geocoder calls
// for cities that recur across the catalog.
var cityTable = map[string]Coordinates{
	// Colorado
	"Morrison, CO":         {Lat: 39.6653, Lng: -105.2055},
	"Denver, CO":           {Lat: 39.7392, Lng: -104.9903},
	"Boulder, CO":          {Lat: 40.0150, Lng: -105.2705},
	"Colorado Springs, CO": {Lat: 38.8339, Lng: -104.8214},
	"Fort Collins, CO":     {Lat: 40.5853, Lng: -105.0844},
	"Aspen, CO":            {Lat: 39.1911, Lng: -106.8175},
	"Telluride, CO":        {Lat: 37.9375, Lng: -107.8123},

	// New York
	"Syracuse, NY":      {Lat: 43.0481, Lng: -76.1474},
	"Rochester, NY":     {Lat: 43.1566, Lng: -77.6088},
	"Buffalo, NY":       {Lat: 42.8864, Lng: -78.8784},
	"Vernon, NY":        {Lat: 43.0801, Lng: -75.5410},
	"Liverpool, NY":     {Lat: 43.1064, Lng: -76.2177},
	"Darien Center, NY": {Lat: 42.9287, Lng: -78.3934},
	"Saratoga, NY":      {Lat: 43.0748, Lng: -73.7864},
	"New York City, NY": {Lat: 40.7128, Lng: -74.0060},
	"Poughkeepsie, NY":  {Lat: 41.7004, Lng: -73.9210},

	// Maryland & DC
	"Baltimore, MD":     {Lat: 39.2904, Lng: -76.6122},
	"Towson, MD":        {Lat: 39.4015, Lng: -76.6019},
	"Silver Spring, MD": {Lat: 38.9907, Lng: -77.0261},
	"Columbia, MD":      {Lat: 39.2037, Lng: -76.8610},
	"Hagerstown, MD":    {Lat: 39.6418, Lng: -77.7200},
	"Washington, DC":    {Lat: 38.9072, Lng: -77.0369},

	// Pennsylvania
	"Philadelphia, PA": {Lat: 39.9526, Lng: -75.1652},
	"Hershey, PA":      {Lat: 40.2859, Lng: -76.6502},

	// Virginia
	"Springfield, VA": {Lat: 38.7891, Lng: -77.1870},
	"Bristow, VA":     {Lat: 38.7212, Lng: -77.5458},

	// Others
	"New Orleans, LA":     {Lat: 29.9511, Lng: -90.0715},
	"Austin, TX":          {Lat: 30.2672, Lng: -97.7431},
	"Fort Lauderdale, FL": {Lat: 26.1224, Lng: -80.1373},
	"St. Petersburg, FL":  {Lat: 27.7676, Lng: -82.6403},
	"Worcester, MA":       {Lat: 42.2626, Lng: -71.8023},
	"Camden, NJ":          {Lat: 39.9259, Lng: -75.1196},
	"Sayreville, NJ":      {Lat: 40.4573, Lng: -74.3640},
	"Chicago, IL":         {Lat: 41.8781, Lng: -87.6298},
	"Portland, OR":        {Lat: 45.5152, Lng: -122.6784},
}
