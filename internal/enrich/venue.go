package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sydlexius/gigbook/internal/cache"
	gbimage "github.com/sydlexius/gigbook/internal/image"
	"github.com/sydlexius/gigbook/internal/provider"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
	"github.com/sydlexius/gigbook/internal/provider/places"
)

// placesTTL is how long a positive place-details entry stays fresh.
const placesTTL = 90 * 24 * time.Hour

// probeHeightPx is the media height requested when probing a photo.
const probeHeightPx = 400

// CoordinateSource identifies which tier of the fallback chain
// produced a coordinate.
type CoordinateSource string

// Coordinate sources, highest to lowest confidence.
const (
	SourceCache     CoordinateSource = "cache"
	SourceGeocoder  CoordinateSource = "geocoder"
	SourceCityTable CoordinateSource = "city-table"
	SourceDefault   CoordinateSource = "default"
)

// CoordinateResult is the waterfall outcome for one venue's location.
// There is always a result; only its confidence varies.
type CoordinateResult struct {
	Coordinates geocode.Coordinates `json:"coordinates"`
	Source      CoordinateSource    `json:"source"`
	Confidence  float64             `json:"confidence"`
	Definitive  bool                `json:"definitive"`
}

// VenueResolver resolves coordinates cache-first through the geocoder,
// then the static city table, then the default location.
type VenueResolver struct {
	geocoder     *geocode.Adapter // nil when GOOGLE_MAPS_API_KEY is absent
	store        *cache.Store[geocode.Result]
	logger       *slog.Logger
	forceRefresh bool
}

// NewVenueResolver creates a coordinate resolver. geocoder may be nil.
func NewVenueResolver(geocoder *geocode.Adapter, store *cache.Store[geocode.Result], logger *slog.Logger) *VenueResolver {
	return &VenueResolver{
		geocoder: geocoder,
		store:    store,
		logger:   logger.With(slog.String("component", "venue-resolver")),
	}
}

// SetForceRefresh makes every Resolve bypass and overwrite the cache.
func (r *VenueResolver) SetForceRefresh(force bool) { r.forceRefresh = force }

// Resolve returns coordinates for a venue. Geocoder hits are cached
// without expiry (venues do not move); fallback tiers are never cached
// so a later run with a working geocoder can supersede them.
func (r *VenueResolver) Resolve(ctx context.Context, venue, city, state string) (CoordinateResult, error) {
	key := cache.Key(venue, city, state)

	if !r.forceRefresh {
		if entry, ok := r.store.Fresh(key); ok && !entry.Negative() {
			return CoordinateResult{
				Coordinates: entry.Payload.Coordinates,
				Source:      SourceCache,
				Confidence:  1.0,
				Definitive:  true,
			}, nil
		}
	}

	if r.geocoder != nil {
		result, err := r.geocoder.Geocode(ctx, venue, city, state)
		switch {
		case err == nil:
			r.store.Put(key, result, 0)
			r.logger.Info("venue geocoded",
				slog.String("venue", venue),
				slog.Float64("lat", result.Coordinates.Lat),
				slog.Float64("lng", result.Coordinates.Lng))
			return CoordinateResult{
				Coordinates: result.Coordinates,
				Source:      SourceGeocoder,
				Confidence:  1.0,
				Definitive:  true,
			}, nil
		case errors.Is(err, ctx.Err()) && ctx.Err() != nil:
			return CoordinateResult{}, err
		default:
			r.logger.Warn("geocoder failed, falling back",
				slog.String("venue", venue),
				slog.Any("error", err))
		}
	}

	cityState := city + ", " + state
	if coords, ok := geocode.CityCoordinates(cityState); ok {
		return CoordinateResult{
			Coordinates: coords,
			Source:      SourceCityTable,
			Confidence:  0.3,
			Definitive:  false,
		}, nil
	}

	r.logger.Warn("no coordinates found, using default",
		slog.String("venue", venue),
		slog.String("city_state", cityState))
	return CoordinateResult{
		Coordinates: geocode.DefaultCoordinates(),
		Source:      SourceDefault,
		Confidence:  0,
		Definitive:  false,
	}, nil
}

// PlacesResolver resolves venue place details (photos, rating,
// website), cache-first with permanent negative entries.
type PlacesResolver struct {
	adapter      *places.Adapter // nil when GOOGLE_PLACES_API_KEY is absent
	store        *cache.Store[places.Details]
	logger       *slog.Logger
	forceRefresh bool
	verifyPhotos bool
}

// NewPlacesResolver creates a place-details resolver. adapter may be nil.
func NewPlacesResolver(adapter *places.Adapter, store *cache.Store[places.Details], logger *slog.Logger) *PlacesResolver {
	return &PlacesResolver{
		adapter: adapter,
		store:   store,
		logger:  logger.With(slog.String("component", "places-resolver")),
	}
}

// SetForceRefresh makes every Resolve bypass and overwrite the cache.
func (r *PlacesResolver) SetForceRefresh(force bool) { r.forceRefresh = force }

// SetVerifyPhotos enables downloading and probing the lead photo of
// every fresh result; photos that fail the probe are dropped.
func (r *PlacesResolver) SetVerifyPhotos(verify bool) { r.verifyPhotos = verify }

// Resolve returns place details for a venue, or (nil, nil) when the
// venue is unknown to the Places API. Confirmed absences are cached
// permanently so terminally-missing venues do not cause retry storms.
func (r *PlacesResolver) Resolve(ctx context.Context, venue, city, state string, lat, lng float64) (*places.Details, error) {
	if r.adapter == nil {
		return nil, nil
	}
	key := cache.Key(venue, city, state)

	if !r.forceRefresh {
		if entry, ok := r.store.Fresh(key); ok {
			if entry.Negative() {
				return nil, nil
			}
			return entry.Payload, nil
		}
	}

	details, err := r.adapter.FindVenue(ctx, venue, city, state, lat, lng)
	if err != nil {
		var notFound *provider.ErrNotFound
		if errors.As(err, &notFound) {
			r.store.PutNegative(key, 0)
			r.logger.Info("venue unknown to places, cached negative",
				slog.String("venue", venue))
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("places lookup failed",
			slog.String("venue", venue),
			slog.Any("error", err))
		return nil, nil
	}

	if r.verifyPhotos {
		details.Photos = r.probeLeadPhoto(ctx, venue, details.Photos)
	}

	r.store.Put(key, details, placesTTL)
	r.logger.Info("venue place details fetched",
		slog.String("venue", venue),
		slog.Int("photos", len(details.Photos)))
	return details, nil
}

// probeLeadPhoto downloads and header-decodes the first photo. On
// failure the lead photo is dropped and the next one promoted, once.
func (r *PlacesResolver) probeLeadPhoto(ctx context.Context, venue string, photos []places.Photo) []places.Photo {
	if len(photos) == 0 {
		return photos
	}
	data, err := r.adapter.FetchPhoto(ctx, photos[0].Name, probeHeightPx)
	if err == nil {
		_, err = gbimage.Probe(data)
		if err == nil {
			return photos
		}
	}
	r.logger.Warn("lead photo failed probe, dropping",
		slog.String("venue", venue),
		slog.Any("error", err))
	return photos[1:]
}
