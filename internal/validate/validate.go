// Package validate audits the persisted artifacts for normalization
// drift: stored keys that no longer match the canonical rules,
// duplicate entries collapsing to one canonical key, and stale
// denormalized fields on catalog records.
package validate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/catalog"
	"github.com/sydlexius/gigbook/internal/enrich"
	"github.com/sydlexius/gigbook/internal/normalize"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
)

// Kind classifies an issue.
type Kind string

// Issue kinds.
const (
	KindDuplicate Kind = "duplicate"
	KindMismatch  Kind = "mismatch"
	KindMissing   Kind = "missing"
)

// Severity of an issue. Errors fail a CI-style run; warnings do not.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validator finding.
type Issue struct {
	Kind     Kind              `json:"kind"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// HasErrors reports whether any issue is error severity.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator checks artifacts against the normalization rules, modulo
// an explicit artist override table.
type Validator struct {
	overrides Overrides
	logger    *slog.Logger
}

// New creates a validator. nil overrides means the built-in table.
func New(overrides Overrides, logger *slog.Logger) *Validator {
	if overrides == nil {
		overrides = DefaultArtistOverrides()
	}
	return &Validator{
		overrides: overrides,
		logger:    logger.With(slog.String("component", "validator")),
	}
}

// ValidateArtistMetadata audits the artist metadata document: every
// stored key must equal override[canonical] ?? canonical of its
// display name, and no two keys may collapse to one canonical key.
// Negative entries carry no display name and are skipped.
func (v *Validator) ValidateArtistMetadata(path string) []Issue {
	var issues []Issue

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Issue{{
				Kind:     KindMissing,
				Severity: SeverityError,
				Message:  fmt.Sprintf("artist metadata document not found: %s", path),
			}}
		}
		return []Issue{{
			Kind:     KindMissing,
			Severity: SeverityError,
			Message:  fmt.Sprintf("reading artist metadata: %v", err),
		}}
	}

	entries := make(map[string]cache.Entry[enrich.ArtistResult])
	if err := json.Unmarshal(data, &entries); err != nil {
		return []Issue{{
			Kind:     KindMissing,
			Severity: SeverityError,
			Message:  fmt.Sprintf("parsing artist metadata %s: %v", path, err),
		}}
	}

	canonicalToKeys := make(map[string][]string)
	keys := sortedKeys(entries)
	for _, key := range keys {
		entry := entries[key]
		if entry.Negative() {
			continue
		}
		name := entry.Payload.Info.Name
		if name == "" {
			issues = append(issues, Issue{
				Kind:     KindMissing,
				Severity: SeverityError,
				Message:  fmt.Sprintf("artist entry %q has no display name", key),
				Details:  map[string]string{"key": key},
			})
			continue
		}

		canonical := normalize.Artist(name)
		canonicalToKeys[canonical] = append(canonicalToKeys[canonical], key)

		if expected := v.overrides.Resolve(canonical); key != expected {
			issues = append(issues, Issue{
				Kind:     KindMismatch,
				Severity: SeverityError,
				Message:  fmt.Sprintf("artist key %q does not match canonical normalization %q", key, canonical),
				Details: map[string]string{
					"artist":   name,
					"actual":   key,
					"expected": expected,
				},
			})
		}
	}

	for _, canonical := range sortedKeys(canonicalToKeys) {
		dup := canonicalToKeys[canonical]
		if len(dup) > 1 {
			issues = append(issues, Issue{
				Kind:     KindDuplicate,
				Severity: SeverityError,
				Message:  fmt.Sprintf("canonical key %q has %d entries", canonical, len(dup)),
				Details: map[string]string{
					"canonical": canonical,
					"keys":      fmt.Sprintf("%v", dup),
				},
			})
		}
	}
	return issues
}

// ValidateCatalog audits the denormalized fields of every catalog
// record against a fresh normalization, catching stale caches after a
// rule change, and adds warning-severity data quality findings.
func (v *Validator) ValidateCatalog(concerts []catalog.Concert) []Issue {
	var issues []Issue
	defaultCoords := geocode.DefaultCoordinates()

	for _, c := range concerts {
		if expected := normalize.Artist(c.Headliner); c.HeadlinerNormalized != expected {
			issues = append(issues, mismatch(c.ID, "headliner", c.Headliner, c.HeadlinerNormalized, expected))
		}
		if expected := normalize.Venue(c.Venue); c.VenueNormalized != expected {
			issues = append(issues, mismatch(c.ID, "venue", c.Venue, c.VenueNormalized, expected))
		}
		if expected := normalize.Genre(c.Genre); c.GenreNormalized != expected {
			issues = append(issues, mismatch(c.ID, "genre", c.Genre, c.GenreNormalized, expected))
		}

		if c.Genre == "" {
			issues = append(issues, Issue{
				Kind:     KindMissing,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("concert %s has no genre", c.ID),
				Details:  map[string]string{"headliner": c.Headliner},
			})
		}
		if c.Location == defaultCoords && c.CityState != "Denver, CO" {
			issues = append(issues, Issue{
				Kind:     KindMissing,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("concert %s outside Denver carries the default coordinates", c.ID),
				Details: map[string]string{
					"venue":     c.Venue,
					"cityState": c.CityState,
				},
			})
		}
	}
	return issues
}

// Report logs every issue at a level matching its severity, each error
// carrying a suggested remediation command, and returns the error count.
func (v *Validator) Report(issues []Issue) int {
	errors := 0
	for _, issue := range issues {
		attrs := []any{
			slog.String("kind", string(issue.Kind)),
		}
		for _, k := range sortedKeys(issue.Details) {
			attrs = append(attrs, slog.String(k, issue.Details[k]))
		}
		if issue.Severity == SeverityError {
			errors++
			if fix := Remediation(issue.Kind); fix != "" {
				attrs = append(attrs, slog.String("fix", fix))
			}
			v.logger.Error(issue.Message, attrs...)
		} else {
			v.logger.Warn(issue.Message, attrs...)
		}
	}
	return errors
}

// Remediation suggests the command that clears issues of the given
// kind.
func Remediation(kind Kind) string {
	switch kind {
	case KindDuplicate:
		return "remove the stale entries, then run: gigbook enrich --force-refresh"
	case KindMismatch:
		return "re-derive keys with: gigbook import --force-refresh"
	case KindMissing:
		return "rebuild the artifact with: gigbook import"
	default:
		return ""
	}
}

func mismatch(id, field, raw, actual, expected string) Issue {
	return Issue{
		Kind:     KindMismatch,
		Severity: SeverityError,
		Message:  fmt.Sprintf("concert %s %s normalization mismatch", id, field),
		Details: map[string]string{
			field:      raw,
			"actual":   actual,
			"expected": expected,
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
