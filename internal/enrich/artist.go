package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/normalize"
	"github.com/sydlexius/gigbook/internal/provider"
)

const (
	// artistTTL is how long a positive artist result stays fresh.
	artistTTL = 30 * 24 * time.Hour

	// artistNegativeTTL bounds negative artist entries. Finite on
	// purpose: a transient outage during first enrichment must not
	// permanently suppress a real artist.
	artistNegativeTTL = 90 * 24 * time.Hour
)

// ArtistResult is the waterfall outcome for one artist.
type ArtistResult struct {
	Provider   provider.Name       `json:"provider"`
	Confidence float64             `json:"confidence"`
	Definitive bool                `json:"definitive"`
	Info       provider.ArtistInfo `json:"info"`
	FromCache  bool                `json:"-"`
}

// ArtistResolver tries artist providers in priority order, cache first.
type ArtistResolver struct {
	providers    []provider.ArtistProvider
	store        *cache.Store[ArtistResult]
	logger       *slog.Logger
	forceRefresh bool
}

// NewArtistResolver creates a resolver over the given providers, in
// waterfall priority order. Providers without credentials are simply
// not passed in.
func NewArtistResolver(providers []provider.ArtistProvider, store *cache.Store[ArtistResult], logger *slog.Logger) *ArtistResolver {
	return &ArtistResolver{
		providers: providers,
		store:     store,
		logger:    logger.With(slog.String("component", "artist-resolver")),
	}
}

// SetForceRefresh makes every Resolve bypass and overwrite the cache.
func (r *ArtistResolver) SetForceRefresh(force bool) { r.forceRefresh = force }

// Resolve returns the artist's metadata, or (nil, nil) when no provider
// has a plausible answer. Absence is an ordinary outcome; the only
// errors surfaced are context cancellations.
func (r *ArtistResolver) Resolve(ctx context.Context, artistName string) (*ArtistResult, error) {
	key := cache.Key(normalize.Artist(artistName))

	if !r.forceRefresh {
		if entry, ok := r.store.Fresh(key); ok {
			if entry.Negative() {
				r.logger.Debug("cached negative", slog.String("artist", artistName))
				return nil, nil
			}
			res := *entry.Payload
			res.FromCache = true
			return &res, nil
		}
	}

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := p.GetArtistInfo(ctx, artistName)
		if err != nil {
			r.logProviderError(p.Name(), artistName, err)
			continue
		}

		confidence := nameConfidence(artistName, info.Name)
		if confidence == 0 {
			r.logger.Debug("implausible match",
				slog.String("provider", string(p.Name())),
				slog.String("artist", artistName),
				slog.String("got", info.Name))
			continue
		}
		if !info.HasImage() {
			r.logger.Debug("result has no image, trying next provider",
				slog.String("provider", string(p.Name())),
				slog.String("artist", artistName))
			continue
		}

		res := &ArtistResult{
			Provider:   p.Name(),
			Confidence: confidence,
			Definitive: true,
			Info:       *info,
		}
		r.store.Put(key, res, artistTTL)
		r.logger.Info("artist enriched",
			slog.String("artist", artistName),
			slog.String("provider", string(p.Name())),
			slog.Float64("confidence", confidence))
		return res, nil
	}

	r.store.PutNegative(key, artistNegativeTTL)
	r.logger.Warn("no provider matched artist", slog.String("artist", artistName))
	return nil, nil
}

func (r *ArtistResolver) logProviderError(name provider.Name, artist string, err error) {
	var notFound *provider.ErrNotFound
	if errors.As(err, &notFound) {
		r.logger.Debug("artist not found",
			slog.String("provider", string(name)),
			slog.String("artist", artist))
		return
	}
	r.logger.Warn("provider failed, trying next",
		slog.String("provider", string(name)),
		slog.String("artist", artist),
		slog.Any("error", err))
}
