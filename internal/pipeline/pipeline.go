// Package pipeline orchestrates the import and enrichment runs:
// ingest, enrich, reconcile, protected write, journal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/catalog"
	"github.com/sydlexius/gigbook/internal/config"
	"github.com/sydlexius/gigbook/internal/enrich"
	"github.com/sydlexius/gigbook/internal/normalize"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
)

// Options control one pipeline run.
type Options struct {
	DryRun       bool
	ForceRefresh bool
}

// Summary is the outcome of one run, printed and journaled.
type Summary struct {
	Ingested  int
	Added     int
	Updated   int
	Unchanged int
	Enriched  int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Pipeline holds the wired components of one run. All stores are
// owned by the pipeline; there is no ambient shared state, so tests
// can run many pipelines side by side.
type Pipeline struct {
	cfg     *config.Config
	artists *enrich.ArtistResolver
	venues  *enrich.VenueResolver
	places  *enrich.PlacesResolver

	artistStore  *cache.Store[enrich.ArtistResult]
	geocodeStore *cache.Store[geocode.Result]
	placesStore  flusher

	sink   catalog.Sink
	logger *slog.Logger
	now    func() time.Time
}

type flusher interface{ Flush() error }

// New assembles a pipeline. The resolvers may wrap nil adapters for
// unconfigured providers; the sink decides whether writes are real.
func New(cfg *config.Config,
	artists *enrich.ArtistResolver,
	venues *enrich.VenueResolver,
	places *enrich.PlacesResolver,
	artistStore *cache.Store[enrich.ArtistResult],
	geocodeStore *cache.Store[geocode.Result],
	placesStore flusher,
	sink catalog.Sink,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		artists:      artists,
		venues:       venues,
		places:       places,
		artistStore:  artistStore,
		geocodeStore: geocodeStore,
		placesStore:  placesStore,
		sink:         sink,
		logger:       logger.With(slog.String("component", "pipeline")),
		now:          time.Now,
	}
}

// SetClock overrides the time source (for tests).
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// Import runs the full pipeline: CSV ingest, enrichment, reconcile
// against the existing catalog, protected write. A missing input CSV
// is fatal.
func (p *Pipeline) Import(ctx context.Context, opts Options) (*Summary, error) {
	start := p.now()
	p.applyOptions(opts)

	f, err := os.Open(p.cfg.Data.InputCSV)
	if err != nil {
		return nil, fmt.Errorf("opening input CSV: %w", err)
	}
	rows, err := catalog.ReadCSV(f, p.logger)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	overrides, err := catalog.LoadGenreOverrides(p.cfg.Data.GenreOverrides)
	if err != nil {
		return nil, err
	}

	existing, err := catalog.Load(p.cfg.Data.Catalog)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Ingested: len(rows)}
	fresh := make([]catalog.Concert, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		genre := p.resolveGenre(ctx, row.Headliner, overrides, summary)
		coords := p.resolveCoordinates(ctx, row)
		concert := catalog.BuildConcert(row, genre, coords)

		if p.places != nil {
			// Details land in the places cache for the metadata
			// artifacts; the record itself only needs coordinates.
			if _, err := p.places.Resolve(ctx, row.Venue, row.City, row.State, coords.Lat, coords.Lng); err != nil {
				return nil, err
			}
		}
		fresh = append(fresh, concert)
	}

	merged, counts := catalog.Reconcile(fresh, existing.Concerts, p.logger)
	summary.Added, summary.Updated, summary.Unchanged = counts.Added, counts.Updated, counts.Unchanged

	doc := &catalog.Document{
		Concerts: merged,
		Metadata: catalog.ComputeMetadata(merged, p.now()),
	}
	if err := catalog.Save(doc, p.sink, p.cfg.Data.Catalog); err != nil {
		return nil, err
	}

	p.flushCaches()
	summary.Duration = p.now().Sub(start)
	p.logSummary("import complete", summary)
	return summary, nil
}

// Enrich resolves artist metadata for every headliner in the existing
// catalog without rewriting the catalog itself. Fresh cache entries
// are skipped; failures are counted, not fatal.
func (p *Pipeline) Enrich(ctx context.Context, opts Options) (*Summary, error) {
	start := p.now()
	p.applyOptions(opts)

	existing, err := catalog.Load(p.cfg.Data.Catalog)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	summary := &Summary{}
	for _, c := range existing.Concerts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := seen[c.HeadlinerNormalized]; done {
			continue
		}
		seen[c.HeadlinerNormalized] = struct{}{}

		res, err := p.artists.Resolve(ctx, c.Headliner)
		switch {
		case err != nil:
			return nil, err
		case res == nil:
			summary.Failed++
		case res.FromCache:
			summary.Skipped++
		default:
			summary.Enriched++
		}
	}

	p.flushCaches()
	summary.Duration = p.now().Sub(start)
	p.logSummary("enrichment complete", summary)
	return summary, nil
}

// applyOptions pushes run options down into the resolvers. The dry-run
// decision lives in the sink chosen by the caller.
func (p *Pipeline) applyOptions(opts Options) {
	if p.artists != nil {
		p.artists.SetForceRefresh(opts.ForceRefresh)
	}
	if p.venues != nil {
		p.venues.SetForceRefresh(opts.ForceRefresh)
	}
	if p.places != nil {
		p.places.SetForceRefresh(opts.ForceRefresh)
	}
}

// resolveGenre applies the precedence: override table, then the first
// genre of the artist's enriched metadata, then empty.
func (p *Pipeline) resolveGenre(ctx context.Context, headliner string, overrides catalog.GenreOverrides, summary *Summary) string {
	if genre, ok := overrides[normalize.Artist(headliner)]; ok {
		return genre
	}
	if p.artists == nil {
		return ""
	}

	res, err := p.artists.Resolve(ctx, headliner)
	if err != nil || res == nil {
		if res == nil && err == nil {
			summary.Failed++
		}
		return ""
	}
	if res.FromCache {
		summary.Skipped++
	} else {
		summary.Enriched++
	}
	if len(res.Info.Genres) > 0 {
		return res.Info.Genres[0]
	}
	return ""
}

func (p *Pipeline) resolveCoordinates(ctx context.Context, row catalog.SourceRow) geocode.Coordinates {
	if p.venues == nil {
		return geocode.DefaultCoordinates()
	}
	res, err := p.venues.Resolve(ctx, row.Venue, row.City, row.State)
	if err != nil {
		p.logger.Warn("coordinate resolution failed, using default",
			slog.String("venue", row.Venue),
			slog.Any("error", err))
		return geocode.DefaultCoordinates()
	}
	return res.Coordinates
}

// flushCaches writes every dirty cache document. Dry runs still flush:
// cache entries are cheap to rebuild and keeping them makes the next
// real run fast.
func (p *Pipeline) flushCaches() {
	if p.artistStore != nil {
		_ = p.artistStore.Flush()
	}
	if p.geocodeStore != nil {
		_ = p.geocodeStore.Flush()
	}
	if p.placesStore != nil {
		_ = p.placesStore.Flush()
	}
}

func (p *Pipeline) logSummary(msg string, s *Summary) {
	p.logger.Info(msg,
		slog.Int("ingested", s.Ingested),
		slog.Int("added", s.Added),
		slog.Int("updated", s.Updated),
		slog.Int("unchanged", s.Unchanged),
		slog.Int("enriched", s.Enriched),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Duration("duration", s.Duration))
}
