// Package normalize derives canonical keys from display names.
//
// The transformation is the single source of truth for every derived
// key in the catalog and its side files: lowercase the input, collapse
// every run of characters outside [a-z0-9] into one hyphen, and strip
// leading/trailing hyphens. It is pure, total and idempotent.
package normalize

import "strings"

// Kind selects which normalization entry point produced a key. All
// kinds currently share the same transformation; they are kept as
// distinct entry points so the rules can diverge later without
// breaking callers.
type Kind string

// Normalization kinds.
const (
	KindArtist Kind = "artist"
	KindVenue  Kind = "venue"
	KindGenre  Kind = "genre"
)

// Artist normalizes an artist display name.
//
//	Artist("Duran Duran")       // "duran-duran"
//	Artist("Run-D.M.C.")        // "run-d-m-c"
//	Artist("The Art of Noise")  // "the-art-of-noise"
func Artist(name string) string { return slug(name) }

// Venue normalizes a venue display name.
//
//	Venue("9:30 Club") // "9-30-club"
func Venue(name string) string { return slug(name) }

// Genre normalizes a genre label.
//
//	Genre("New Wave/Synth-pop") // "new-wave-synth-pop"
func Genre(name string) string { return slug(name) }

// Name normalizes by kind. Unknown kinds use the shared rule.
func Name(kind Kind, raw string) string {
	switch kind {
	case KindArtist:
		return Artist(raw)
	case KindVenue:
		return Venue(raw)
	case KindGenre:
		return Genre(raw)
	default:
		return slug(raw)
	}
}

// slug lowercases ASCII letters and replaces every maximal run of
// non-alphanumeric bytes with a single hyphen. Byte-oriented on
// purpose: multi-byte runes are outside [a-z0-9] and fold into the
// surrounding hyphen run, which keeps the result locale-independent.
func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
			fallthrough
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteByte(c)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
