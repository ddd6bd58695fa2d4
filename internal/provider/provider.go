// Package provider holds the shared plumbing for the external metadata
// providers: names, typed outcome errors, rate limiting, and the HTTP
// helper with bounded retry on throttling.
//
// Every adapter validates its raw JSON at the client boundary and maps
// the response into a typed result, so the enrichment waterfall never
// inspects untyped payloads. Failures are reported through a small set
// of error variants the waterfall can switch on.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Name uniquely identifies a metadata provider.
type Name string

// Known provider names.
const (
	NameSpotify      Name = "spotify"
	NameAudioDB      Name = "theaudiodb"
	NameLastFM       Name = "lastfm"
	NameGoogleMaps   Name = "googlemaps"
	NameGooglePlaces Name = "googleplaces"
)

// ArtistProviderNames returns the artist metadata providers in
// waterfall priority order.
func ArtistProviderNames() []Name {
	return []Name{NameSpotify, NameAudioDB, NameLastFM}
}

// DisplayName returns a human-readable name for the provider.
func (n Name) DisplayName() string {
	switch n {
	case NameSpotify:
		return "Spotify"
	case NameAudioDB:
		return "TheAudioDB"
	case NameLastFM:
		return "Last.fm"
	case NameGoogleMaps:
		return "Google Geocoding"
	case NameGooglePlaces:
		return "Google Places"
	default:
		return string(n)
	}
}

// ArtistInfo is the metadata an artist provider returns, already
// validated and mapped out of the provider's wire format.
type ArtistInfo struct {
	Name       string   `json:"name"`
	Image      string   `json:"image,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Formed     string   `json:"formed,omitempty"`
	Source     Name     `json:"source"`
	SpotifyURL string   `json:"spotify_url,omitempty"`
}

// HasImage reports whether the provider supplied a usable image URL.
// An artist result without an image is treated as implausible by the
// waterfall and the next provider is tried.
func (a *ArtistInfo) HasImage() bool { return a != nil && a.Image != "" }

// ArtistProvider is the interface all artist metadata adapters
// implement. Lookup is by display name; adapters do their own search
// and plausibility-neutral mapping, the waterfall decides acceptance.
type ArtistProvider interface {
	// Name returns the unique provider identifier.
	Name() Name

	// GetArtistInfo resolves an artist by display name. Returns
	// ErrNotFound when the provider has no match.
	GetArtistInfo(ctx context.Context, artistName string) (*ArtistInfo, error)
}

// ErrThrottled indicates the provider answered HTTP 429. RetryAfter is
// the provider-supplied hint, or the fallback when the header was
// absent.
type ErrThrottled struct {
	Provider   Name
	RetryAfter time.Duration
}

func (e *ErrThrottled) Error() string {
	return fmt.Sprintf("provider %s throttled, retry after %s", e.Provider, e.RetryAfter)
}

// ErrUnavailable indicates a transient failure (timeout, server error,
// malformed response). The waterfall skips to the next provider.
type ErrUnavailable struct {
	Provider Name
	Cause    error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the query.
// Absence is an ordinary outcome, not a failure of the run.
type ErrNotFound struct {
	Provider Name
	Query    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %q not found", e.Provider, e.Query)
}

// ErrAuthRequired indicates the provider needs credentials but none
// are configured. Adapters for optional providers are simply not
// constructed in that case; this error surfaces only when a caller
// forces a provider explicitly.
type ErrAuthRequired struct {
	Provider Name
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: credentials not configured", e.Provider)
}
