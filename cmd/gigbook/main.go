package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/gigbook/internal/backup"
	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/catalog"
	"github.com/sydlexius/gigbook/internal/config"
	"github.com/sydlexius/gigbook/internal/enrich"
	"github.com/sydlexius/gigbook/internal/journal"
	"github.com/sydlexius/gigbook/internal/logging"
	"github.com/sydlexius/gigbook/internal/pipeline"
	"github.com/sydlexius/gigbook/internal/provider"
	"github.com/sydlexius/gigbook/internal/provider/audiodb"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
	"github.com/sydlexius/gigbook/internal/provider/lastfm"
	"github.com/sydlexius/gigbook/internal/provider/places"
	"github.com/sydlexius/gigbook/internal/provider/spotify"
	"github.com/sydlexius/gigbook/internal/validate"
	"github.com/sydlexius/gigbook/internal/watcher"
)

const usage = `gigbook maintains an enriched concert catalog.

Usage:
  gigbook [-config path] <command> [flags]

Commands:
  import         ingest the CSV, enrich, reconcile and write the catalog
  enrich         refresh artist metadata for the existing catalog
  validate       audit normalization consistency (exit 1 on errors)
  backups prune  enforce backup retention across the data directory
  runs           list recent pipeline runs
  watch          re-run import whenever the input CSV changes

Flags for import and enrich:
  --dry-run        run everything but route writes to a no-op sink
  --force-refresh  bypass caches and re-query every provider
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	global := flag.NewFlagSet("gigbook", flag.ExitOnError)
	configPath := global.String("config", os.Getenv("GB_CONFIG_PATH"), "path to config.yaml")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		return fmt.Errorf("no command given")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := args[0], args[1:]
	switch command {
	case "import", "enrich":
		return runPipeline(ctx, cfg, logger, command, args)
	case "validate":
		return runValidate(cfg, logger)
	case "backups":
		if len(args) != 1 || args[0] != "prune" {
			return fmt.Errorf("usage: gigbook backups prune")
		}
		return backup.NewGuard(cfg.Backup.Retention, logger).PruneDir(cfg.Data.Dir)
	case "runs":
		return runList(ctx, cfg, logger)
	case "watch":
		return runWatch(ctx, cfg, logger)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "route final writes to a no-op sink")
	forceRefresh := fs.Bool("force-refresh", false, "bypass caches")
	_ = fs.Parse(args)

	opts := pipeline.Options{DryRun: *dryRun, ForceRefresh: *forceRefresh}
	p, err := buildPipeline(cfg, logger, opts)
	if err != nil {
		return err
	}

	started := time.Now()
	var summary *pipeline.Summary
	switch command {
	case "import":
		summary, err = p.Import(ctx, opts)
	case "enrich":
		summary, err = p.Enrich(ctx, opts)
	}
	if err != nil {
		return err
	}

	printSummary(command, summary)
	recordRun(ctx, cfg, logger, journal.Run{
		Command:   command,
		DryRun:    opts.DryRun,
		Added:     summary.Added,
		Updated:   summary.Updated,
		Unchanged: summary.Unchanged,
		Enriched:  summary.Enriched,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		StartedAt: started,
		Duration:  summary.Duration,
	})
	return nil
}

// buildPipeline wires the providers the environment has credentials
// for; the rest are left out of the waterfall.
func buildPipeline(cfg *config.Config, logger *slog.Logger, opts pipeline.Options) (*pipeline.Pipeline, error) {
	limiter := provider.NewRateLimiterMap()
	creds := cfg.Credentials

	var artistProviders []provider.ArtistProvider
	if creds.SpotifyConfigured() {
		artistProviders = append(artistProviders, spotify.New(limiter, logger, creds.SpotifyClientID, creds.SpotifyClientSecret))
	}
	if creds.TheAudioDBKey != "" {
		artistProviders = append(artistProviders, audiodb.New(limiter, logger, creds.TheAudioDBKey))
	}
	if creds.LastFMKey != "" {
		artistProviders = append(artistProviders, lastfm.New(limiter, logger, creds.LastFMKey))
	}
	if len(artistProviders) == 0 {
		logger.Warn("no artist providers configured, enrichment will be skipped")
	}

	artistStore := cache.NewStore[enrich.ArtistResult](cfg.Data.ArtistMetadata, logger)
	artistStore.Load()
	geocodeStore := cache.NewStore[geocode.Result](cfg.Data.GeocodeCache, logger)
	geocodeStore.Load()
	placesStore := cache.NewStore[places.Details](cfg.Data.PlacesCache, logger)
	placesStore.Load()

	artists := enrich.NewArtistResolver(artistProviders, artistStore, logger)

	var geocoder *geocode.Adapter
	if creds.GoogleMapsKey != "" {
		geocoder = geocode.New(limiter, logger, creds.GoogleMapsKey)
	}
	venues := enrich.NewVenueResolver(geocoder, geocodeStore, logger)

	var placesResolver *enrich.PlacesResolver
	if creds.GooglePlacesKey != "" {
		adapter := places.New(limiter, logger, creds.GooglePlacesKey)
		placesResolver = enrich.NewPlacesResolver(adapter, placesStore, logger)
		placesResolver.SetVerifyPhotos(true)
	}

	var sink catalog.Sink
	if opts.DryRun {
		sink = backup.NewDryRunSink(logger)
	} else {
		sink = backup.NewGuard(cfg.Backup.Retention, logger)
	}

	return pipeline.New(cfg, artists, venues, placesResolver,
		artistStore, geocodeStore, placesStore, sink, logger), nil
}

func runValidate(cfg *config.Config, logger *slog.Logger) error {
	overrides, err := validate.LoadOverrides(cfg.Data.KeyOverrides)
	if err != nil {
		return err
	}
	v := validate.New(overrides, logger)

	issues := v.ValidateArtistMetadata(cfg.Data.ArtistMetadata)

	doc, err := catalog.Load(cfg.Data.Catalog)
	if err != nil {
		return err
	}
	issues = append(issues, v.ValidateCatalog(doc.Concerts)...)

	errors := v.Report(issues)
	fmt.Printf("validation: %d issues (%d errors)\n", len(issues), errors)
	if errors > 0 {
		return fmt.Errorf("%d validation errors", errors)
	}
	return nil
}

func runList(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	j, err := journal.Open(cfg.Data.JournalDB, logger)
	if err != nil {
		return err
	}
	defer j.Close() //nolint:errcheck

	runs, err := j.List(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-7s  dry=%-5v  +%d ~%d =%d  enriched=%d skipped=%d failed=%d  %s\n",
			r.StartedAt.Format(time.RFC3339), r.Command, r.DryRun,
			r.Added, r.Updated, r.Unchanged,
			r.Enriched, r.Skipped, r.Failed,
			r.Duration.Round(time.Millisecond))
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	w := watcher.New(cfg.Data.InputCSV, cfg.Watch.Debounce, func(ctx context.Context) error {
		opts := pipeline.Options{}
		p, err := buildPipeline(cfg, logger, opts)
		if err != nil {
			return err
		}
		started := time.Now()
		summary, err := p.Import(ctx, opts)
		if err != nil {
			return err
		}
		printSummary("import", summary)
		recordRun(ctx, cfg, logger, journal.Run{
			Command:   "import",
			Added:     summary.Added,
			Updated:   summary.Updated,
			Unchanged: summary.Unchanged,
			Enriched:  summary.Enriched,
			Skipped:   summary.Skipped,
			Failed:    summary.Failed,
			StartedAt: started,
			Duration:  summary.Duration,
		})
		return nil
	}, logger)
	return w.Start(ctx)
}

// recordRun journals a completed run. Journal failures are logged, not
// fatal: the artifacts are already written.
func recordRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, run journal.Run) {
	j, err := journal.Open(cfg.Data.JournalDB, logger)
	if err != nil {
		logger.Warn("could not open run journal", slog.Any("error", err))
		return
	}
	defer j.Close() //nolint:errcheck
	if _, err := j.Record(ctx, run); err != nil {
		logger.Warn("could not record run", slog.Any("error", err))
	}
}

func printSummary(command string, s *pipeline.Summary) {
	fmt.Printf("%s: ingested=%d added=%d updated=%d unchanged=%d enriched=%d skipped=%d failed=%d in %s\n",
		command, s.Ingested, s.Added, s.Updated, s.Unchanged,
		s.Enriched, s.Skipped, s.Failed, s.Duration.Round(time.Millisecond))
}
