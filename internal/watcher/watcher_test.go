package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcherRunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user-concerts.csv")
	if err := os.WriteFile(path, []byte("Date\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	s := New(path, 50*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Give the watch time to establish, then rewrite the file twice in
	// one burst.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("Date\n2023-06-15\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("Date\n2023-06-15\n2023-06-16\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("run function never invoked")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Let the debounce window drain fully, then confirm the burst
	// collapsed into a single run.
	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 (burst should be debounced)", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(time.Second):
		t.Error("watcher did not stop on cancel")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user-concerts.csv")
	if err := os.WriteFile(path, []byte("Date\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	s := New(path, 50*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs = %d, want 0 for unrelated file", got)
	}
}
