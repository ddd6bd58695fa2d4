// Package cache implements the disk-backed key/value stores that sit in
// front of every external provider.
//
// Each store is a single JSON document mapping a composite lowercase
// key to an entry with an optional expiry. A nil payload with no expiry
// is a permanent negative entry: the lookup failed everywhere and must
// not be retried on later runs. Stores are rebuildable by design, so a
// corrupt or unwritable document degrades to an empty in-memory cache
// with a logged warning rather than failing the run.
package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/fsutil"
)

// keyDelimiter joins the fields of a composite cache key.
const keyDelimiter = "|"

// Key builds a composite cache key from identifying fields, lowercased
// and trimmed. Lookup is exact-match on this string.
func Key(fields ...string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return strings.Join(parts, keyDelimiter)
}

// Entry is one cached lookup result. Payload is nil for negative
// entries. A nil ExpiresAt means the entry never expires.
type Entry[T any] struct {
	Payload   *T         `json:"payload"`
	FetchedAt time.Time  `json:"fetched_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Negative reports whether the entry records a confirmed absence.
func (e Entry[T]) Negative() bool { return e.Payload == nil }

// Expired reports whether the entry is past its expiry. Entries with
// no expiry never expire.
func (e Entry[T]) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Store is a disk-backed map of composite key to Entry. It is loaded
// explicitly, mutated in memory, and flushed as a whole document.
// Single-writer: the pipeline owns one Store per cache domain per run.
type Store[T any] struct {
	path    string
	entries map[string]Entry[T]
	dirty   bool
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store backed by the document at path. Call Load
// before the first lookup.
func NewStore[T any](path string, logger *slog.Logger) *Store[T] {
	return &Store[T]{
		path:    path,
		entries: make(map[string]Entry[T]),
		logger:  logger.With(slog.String("component", "cache"), slog.String("path", path)),
		now:     time.Now,
	}
}

// Load reads the backing document into memory. A missing file is an
// empty cache; a corrupt or unreadable file is an empty cache with a
// logged warning. Never fatal.
func (s *Store[T]) Load() {
	s.entries = make(map[string]Entry[T])

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read cache, starting empty", slog.Any("error", err))
		}
		return
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.logger.Warn("corrupt cache document, starting empty", slog.Any("error", err))
		s.entries = make(map[string]Entry[T])
		return
	}
	s.logger.Debug("cache loaded", slog.Int("entries", len(s.entries)))
}

// Flush writes the in-memory map back to disk atomically, creating
// parent directories as needed. A failed flush is logged and reported
// but does not roll back in-memory state; callers should re-attempt
// before process exit.
func (s *Store[T]) Flush() error {
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.logger.Error("could not marshal cache", slog.Any("error", err))
		return err
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		s.logger.Error("could not flush cache", slog.Any("error", err))
		return err
	}
	s.dirty = false
	s.logger.Debug("cache flushed", slog.Int("entries", len(s.entries)))
	return nil
}

// Get returns the entry for key. The second return is false when the
// key is absent. Expired entries are returned; callers decide whether
// to honor or refresh them.
func (s *Store[T]) Get(key string) (Entry[T], bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Fresh returns the entry for key only if present and not expired.
func (s *Store[T]) Fresh(key string) (Entry[T], bool) {
	e, ok := s.entries[key]
	if !ok || e.Expired(s.now()) {
		return Entry[T]{}, false
	}
	return e, true
}

// Put stores a payload under key. A zero ttl means the entry never
// expires. Any existing entry is overwritten.
func (s *Store[T]) Put(key string, payload *T, ttl time.Duration) {
	now := s.now()
	e := Entry[T]{Payload: payload, FetchedAt: now}
	if ttl > 0 {
		expires := now.Add(ttl)
		e.ExpiresAt = &expires
	}
	s.entries[key] = e
	s.dirty = true
}

// PutNegative records a confirmed absence under key. A zero ttl makes
// the negative entry permanent.
func (s *Store[T]) PutNegative(key string, ttl time.Duration) {
	s.Put(key, nil, ttl)
}

// Delete removes an entry, marking the store dirty when one existed.
func (s *Store[T]) Delete(key string) {
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.dirty = true
	}
}

// Len returns the number of entries currently in memory.
func (s *Store[T]) Len() int { return len(s.entries) }

// SetClock overrides the time source (for tests).
func (s *Store[T]) SetClock(now func() time.Time) { s.now = now }
