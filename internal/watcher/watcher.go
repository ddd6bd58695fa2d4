// Package watcher re-runs the import pipeline whenever the input CSV
// changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Service watches a single input file and invokes a run function after
// changes settle.
type Service struct {
	path     string
	runFn    func(ctx context.Context) error
	logger   *slog.Logger
	debounce time.Duration
}

// New creates a watcher for path. runFn is invoked once per burst of
// changes, after the debounce interval passes without further events.
func New(path string, debounce time.Duration, runFn func(ctx context.Context) error, logger *slog.Logger) *Service {
	return &Service{
		path:     path,
		runFn:    runFn,
		logger:   logger.With(slog.String("component", "watcher")),
		debounce: debounce,
	}
}

// Start blocks until ctx is canceled. The watch is on the parent
// directory: editors that write via rename replace the inode, and a
// watch on the file itself would silently die on the first save.
func (s *Service) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	s.logger.Info("watching input file",
		slog.String("path", s.path),
		slog.Duration("debounce", s.debounce))

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	runPending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher stopping")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("input changed", slog.String("op", ev.Op.String()))
			if runPending && !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			runPending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", slog.Any("error", err))

		case <-debounceTimer.C:
			runPending = false
			s.logger.Info("input settled, running import")
			if err := s.runFn(ctx); err != nil {
				s.logger.Error("import run failed", slog.Any("error", err))
			}
		}
	}
}
