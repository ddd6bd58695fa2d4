// Package enrich implements the cache-first provider waterfalls that
// resolve artist metadata, venue coordinates and venue place details.
package enrich

import "strings"

// strip lowercases and removes every non-alphanumeric byte, the loosest
// comparable form of a name.
func strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 'a' - 'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return b.String()
}

// nameConfidence scores how well a provider's returned name matches the
// queried name: 1.0 for an exact match after stripping, 0.8 for
// substring containment in either direction, 0 otherwise. Zero means
// the result is implausible and the waterfall moves on.
func nameConfidence(query, result string) float64 {
	q, r := strip(query), strip(result)
	if q == "" || r == "" {
		return 0
	}
	if q == r {
		return 1.0
	}
	if strings.Contains(q, r) || strings.Contains(r, q) {
		return 0.8
	}
	return 0
}
