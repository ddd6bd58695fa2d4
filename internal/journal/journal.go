// Package journal records one row per pipeline run in a SQLite
// database, so past imports and enrichments can be inspected later.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run is one journal row.
type Run struct {
	ID        string
	Command   string
	DryRun    bool
	Added     int
	Updated   int
	Unchanged int
	Enriched  int
	Skipped   int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Journal persists runs.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal database at path, with
// WAL mode and a single writer connection, and applies migrations.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging journal database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{
		db:     db,
		logger: logger.With(slog.String("component", "journal")),
	}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running journal migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Record inserts a run, minting its id.
func (j *Journal) Record(ctx context.Context, run Run) (string, error) {
	run.ID = uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, command, dry_run, added, updated, unchanged, enriched, skipped, failed, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.DryRun,
		run.Added, run.Updated, run.Unchanged,
		run.Enriched, run.Skipped, run.Failed,
		run.StartedAt.UTC().Format(time.RFC3339), run.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	j.logger.Debug("run recorded",
		slog.String("id", run.ID),
		slog.String("command", run.Command))
	return run.ID, nil
}

// List returns the most recent runs, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, command, dry_run, added, updated, unchanged, enriched, skipped, failed, started_at, duration_ms
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.DryRun,
			&r.Added, &r.Updated, &r.Unchanged,
			&r.Enriched, &r.Skipped, &r.Failed,
			&startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing run timestamp %q: %w", startedAt, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
