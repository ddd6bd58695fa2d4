package catalog

import (
	"log/slog"
	"reflect"
	"sort"

	"github.com/sydlexius/gigbook/internal/normalize"
)

// StableKey derives the content key used to match a fresh row to its
// prior record: ISO date plus normalized headliner. Recomputed every
// run; distinct from the identity, which is assigned once.
func StableKey(isoDate, normalizedHeadliner string) string {
	return isoDate + "-" + normalizedHeadliner
}

// Summary counts the outcome of one reconciliation.
type Summary struct {
	Added     int
	Updated   int
	Unchanged int
}

// Reconcile merges freshly built records into the prior catalog.
// Identity is copied forward from the matching existing record and is
// never recomputed after first assignment; a row with no match mints a
// new identity equal to its stable key. Output is sorted by date.
// Existing records with no fresh counterpart are never deleted.
func Reconcile(fresh []Concert, existing []Concert, logger *slog.Logger) ([]Concert, Summary) {
	prior := make(map[string]Concert, len(existing))
	for _, c := range existing {
		key := c.Date + "-" + headlinerKey(c)
		prior[key] = c
	}

	var summary Summary
	merged := make([]Concert, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))

	for _, f := range fresh {
		key := StableKey(f.Date, f.HeadlinerNormalized)
		if _, dup := seen[key]; dup {
			logger.Warn("duplicate stable key in fresh input, keeping first",
				slog.String("key", key))
			continue
		}
		seen[key] = struct{}{}

		old, ok := prior[key]
		if !ok {
			merged = append(merged, f)
			summary.Added++
			continue
		}

		m := overlay(old, f)
		if reflect.DeepEqual(m, old) {
			summary.Unchanged++
		} else {
			summary.Updated++
		}
		merged = append(merged, m)
	}

	// Prior records the fresh input no longer mentions survive.
	for key, old := range prior {
		if _, ok := seen[key]; !ok {
			merged = append(merged, old)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Date != merged[j].Date {
			return merged[i].Date < merged[j].Date
		}
		return merged[i].ID < merged[j].ID
	})
	return merged, summary
}

// headlinerKey returns the record's normalized headliner, recomputing
// it when the stored copy is absent (legacy records).
func headlinerKey(c Concert) string {
	if c.HeadlinerNormalized != "" {
		return c.HeadlinerNormalized
	}
	return normalize.Artist(c.Headliner)
}

// overlay merges a fresh record onto an existing one. Precedence:
//   - identity: always the existing record's
//   - Extra (manual document fields): always the existing record's
//   - Genre/GenreNormalized and Reference: fresh wins unless absent
//   - everything else: fresh wins (re-derived each run)
func overlay(existing, fresh Concert) Concert {
	m := fresh
	m.ID = existing.ID
	m.Extra = existing.Extra
	if m.Genre == "" && existing.Genre != "" {
		m.Genre = existing.Genre
		m.GenreNormalized = existing.GenreNormalized
	}
	if m.Reference == "" {
		m.Reference = existing.Reference
	}
	return m
}
