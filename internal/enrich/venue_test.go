package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/provider"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
	"github.com/sydlexius/gigbook/internal/provider/places"
)

func geocodeStore(t *testing.T) *cache.Store[geocode.Result] {
	t.Helper()
	s := cache.NewStore[geocode.Result](filepath.Join(t.TempDir(), "geocode.json"), testLogger())
	s.Load()
	return s
}

func placesStore(t *testing.T) *cache.Store[places.Details] {
	t.Helper()
	s := cache.NewStore[places.Details](filepath.Join(t.TempDir(), "places.json"), testLogger())
	s.Load()
	return s
}

func TestVenueResolverGeocoderHitIsCached(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "1805 Geyser Rd, Saratoga Springs, NY",
				"geometry": {"location": {"lat": 43.0478, "lng": -73.8069}}
			}]
		}`))
	}))
	defer srv.Close()

	geocoder := geocode.NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "test-key", srv.URL)
	r := NewVenueResolver(geocoder, geocodeStore(t), testLogger())

	first, err := r.Resolve(context.Background(), "SPAC", "Saratoga", "NY")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.Source != SourceGeocoder || first.Confidence != 1.0 || !first.Definitive {
		t.Fatalf("first = %+v, want definitive geocoder hit", first)
	}
	if first.Coordinates.Lat != 43.0478 {
		t.Errorf("lat = %v", first.Coordinates.Lat)
	}

	second, err := r.Resolve(context.Background(), "SPAC", "Saratoga", "NY")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.Source != SourceCache {
		t.Errorf("second source = %s, want cache", second.Source)
	}
	if calls != 1 {
		t.Errorf("geocoder called %d times, want 1", calls)
	}
}

func TestVenueResolverGeocoderFailureFallsBackToCityTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	geocoder := geocode.NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "test-key", srv.URL)
	store := geocodeStore(t)
	r := NewVenueResolver(geocoder, store, testLogger())

	res, err := r.Resolve(context.Background(), "Some Tiny Bar", "Denver", "CO")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceCityTable || res.Confidence != 0.3 || res.Definitive {
		t.Fatalf("result = %+v, want non-definitive city-table fallback", res)
	}
	if store.Len() != 0 {
		t.Error("fallback coordinates must not be cached")
	}
}

func TestVenueResolverWithoutGeocoderUsesCityTable(t *testing.T) {
	r := NewVenueResolver(nil, geocodeStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "Red Rocks", "Morrison", "CO")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceCityTable {
		t.Errorf("source = %s, want city-table", res.Source)
	}
	if res.Coordinates.Lat != 39.6653 {
		t.Errorf("lat = %v", res.Coordinates.Lat)
	}
}

func TestVenueResolverUnknownCityUsesDefault(t *testing.T) {
	r := NewVenueResolver(nil, geocodeStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "Mystery Hall", "Nowhere", "ZZ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceDefault || res.Confidence != 0 {
		t.Fatalf("result = %+v, want zero-confidence default", res)
	}
	want := geocode.DefaultCoordinates()
	if res.Coordinates != want {
		t.Errorf("coordinates = %+v, want %+v", res.Coordinates, want)
	}
}

func newPlacesTestServer(t *testing.T, calls *int, found bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		switch {
		case strings.HasSuffix(r.URL.Path, "places:searchText"):
			if !found {
				w.Write([]byte(`{"places": []}`))
				return
			}
			w.Write([]byte(`{"places": [{"id": "place-123"}]}`))
		case strings.HasSuffix(r.URL.Path, "places/place-123"):
			w.Write([]byte(`{
				"id": "place-123",
				"displayName": {"text": "9:30 Club"},
				"formattedAddress": "815 V St NW, Washington, DC",
				"rating": 4.8,
				"userRatingCount": 2100,
				"websiteUri": "https://www.930.com",
				"types": ["night_club"],
				"photos": [{"name": "places/place-123/photos/abc", "widthPx": 1200, "heightPx": 800}]
			}`))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPlacesResolverFetchesAndCaches(t *testing.T) {
	var calls int
	srv := newPlacesTestServer(t, &calls, true)
	defer srv.Close()

	adapter := places.NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "test-key", srv.URL)
	adapter.SetPause(0)
	r := NewPlacesResolver(adapter, placesStore(t), testLogger())

	first, err := r.Resolve(context.Background(), "9:30 Club", "Washington", "DC", 38.9, -77.0)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first == nil || first.ID != "place-123" {
		t.Fatalf("first = %+v", first)
	}
	if len(first.Photos) != 1 {
		t.Errorf("photos = %d, want 1", len(first.Photos))
	}

	second, err := r.Resolve(context.Background(), "9:30 Club", "Washington", "DC", 38.9, -77.0)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second == nil || second.ID != "place-123" {
		t.Fatalf("second = %+v", second)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2 (search + details, then cache)", calls)
	}
}

func TestPlacesResolverCachesNegativePermanently(t *testing.T) {
	var calls int
	srv := newPlacesTestServer(t, &calls, false)
	defer srv.Close()

	adapter := places.NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "test-key", srv.URL)
	adapter.SetPause(0)
	store := placesStore(t)
	r := NewPlacesResolver(adapter, store, testLogger())

	for i := 0; i < 2; i++ {
		details, err := r.Resolve(context.Background(), "Demolished Venue", "Denver", "CO", 0, 0)
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if details != nil {
			t.Fatalf("Resolve %d: expected nil details, got %+v", i, details)
		}
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (negative should be cached)", calls)
	}

	entry, ok := store.Get(cache.Key("Demolished Venue", "Denver", "CO"))
	if !ok || !entry.Negative() {
		t.Fatal("expected a negative cache entry")
	}
	if entry.ExpiresAt != nil {
		t.Error("negative place entry must never expire")
	}
}

func TestPlacesResolverNilAdapterIsNoop(t *testing.T) {
	r := NewPlacesResolver(nil, placesStore(t), testLogger())

	details, err := r.Resolve(context.Background(), "Anywhere", "Denver", "CO", 0, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if details != nil {
		t.Fatalf("expected nil details, got %+v", details)
	}
}
