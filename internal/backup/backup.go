// Package backup implements the rotating-backup guard that wraps every
// overwrite of a persisted artifact.
package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/fsutil"
)

// backupInfix separates the artifact name from the snapshot timestamp.
const backupInfix = ".backup."

// timestampLayout is sortable and filesystem-safe.
const timestampLayout = "2006-01-02T15-04-05"

// DefaultRetention is how many snapshots of one artifact survive.
const DefaultRetention = 10

// Info describes one backup snapshot.
type Info struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Guard wraps artifact writes with a rotating timestamped backup.
// It satisfies catalog.Sink.
type Guard struct {
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewGuard creates a guard keeping the given number of snapshots per
// artifact. A non-positive retention falls back to the default.
func NewGuard(retention int, logger *slog.Logger) *Guard {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Guard{
		retention: retention,
		logger:    logger.With(slog.String("component", "backup")),
		now:       time.Now,
	}
}

// SetClock overrides the time source (for tests).
func (g *Guard) SetClock(now func() time.Time) { g.now = now }

// Write snapshots the current content of path, atomically replaces it
// with data, then prunes old snapshots. A failed snapshot or write is
// a hard error that leaves the prior artifact untouched; a failed
// prune is logged only.
func (g *Guard) Write(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		dest := g.backupPath(path)
		if err := fsutil.CopyFile(path, dest); err != nil {
			return fmt.Errorf("creating backup of %s: %w", path, err)
		}
		g.logger.Info("backup created", slog.String("path", dest))
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s before write: %w", path, err)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := g.Prune(path); err != nil {
		g.logger.Warn("pruning backups failed",
			slog.String("path", path),
			slog.Any("error", err))
	}
	return nil
}

func (g *Guard) backupPath(path string) string {
	return path + backupInfix + g.now().UTC().Format(timestampLayout)
}

// List returns the snapshots of one artifact, newest first. Ordering
// is by modification time with the filename timestamp as tiebreaker.
func List(path string) ([]Info, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + backupInfix

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(dir, entry.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Path > backups[j].Path
	})
	return backups, nil
}

// Prune deletes the oldest snapshots of one artifact beyond the
// retention bound. Individual deletion failures are logged and
// skipped.
func (g *Guard) Prune(path string) error {
	backups, err := List(path)
	if err != nil {
		return err
	}
	if len(backups) <= g.retention {
		return nil
	}
	for _, b := range backups[g.retention:] {
		if err := os.Remove(b.Path); err != nil {
			g.logger.Warn("could not remove old backup",
				slog.String("path", b.Path),
				slog.Any("error", err))
			continue
		}
		g.logger.Info("pruned old backup", slog.String("path", b.Path))
	}
	return nil
}

// PruneDir enforces retention for every backed-up artifact found in a
// directory tree. Used by the prune command.
func (g *Guard) PruneDir(root string) error {
	artifacts := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if i := strings.Index(d.Name(), backupInfix); i > 0 {
			original := filepath.Join(filepath.Dir(path), d.Name()[:i])
			artifacts[original] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	for artifact := range artifacts {
		if err := g.Prune(artifact); err != nil {
			g.logger.Warn("pruning artifact backups failed",
				slog.String("artifact", artifact),
				slog.Any("error", err))
		}
	}
	return nil
}

// DryRunSink implements catalog.Sink without touching the filesystem.
type DryRunSink struct {
	Logger *slog.Logger

	// Writes records what would have been written.
	Writes map[string][]byte
}

// NewDryRunSink creates a sink that records writes instead of
// performing them.
func NewDryRunSink(logger *slog.Logger) *DryRunSink {
	return &DryRunSink{
		Logger: logger.With(slog.String("component", "dry-run")),
		Writes: make(map[string][]byte),
	}
}

// Write logs and records the write without performing it.
func (s *DryRunSink) Write(path string, data []byte) error {
	s.Writes[path] = data
	s.Logger.Info("dry run, skipping write",
		slog.String("path", path),
		slog.Int("bytes", len(data)))
	return nil
}
