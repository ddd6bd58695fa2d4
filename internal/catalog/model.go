// Package catalog defines the concert catalog document, its CSV
// ingestion, and the stable-identity reconciliation merge.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sydlexius/gigbook/internal/provider/geocode"
)

// Concert is one catalog record. Derived fields (normalized keys,
// calendar breakdown, decade) are recomputed on every import; Extra
// holds fields added by hand to the document so a re-import never
// destroys them.
type Concert struct {
	ID                  string              `json:"id"`
	Date                string              `json:"date"`
	Headliner           string              `json:"headliner"`
	HeadlinerNormalized string              `json:"headlinerNormalized"`
	Genre               string              `json:"genre"`
	GenreNormalized     string              `json:"genreNormalized"`
	Openers             []string            `json:"openers"`
	Venue               string              `json:"venue"`
	VenueNormalized     string              `json:"venueNormalized"`
	City                string              `json:"city"`
	State               string              `json:"state"`
	CityState           string              `json:"cityState"`
	Reference           string              `json:"reference,omitempty"`
	IsFestival          bool                `json:"isFestival"`
	Year                int                 `json:"year"`
	Month               int                 `json:"month"`
	Day                 int                 `json:"day"`
	DayOfWeek           string              `json:"dayOfWeek"`
	Decade              string              `json:"decade"`
	Location            geocode.Coordinates `json:"location"`

	// Extra carries unknown document fields through a merge.
	Extra map[string]json.RawMessage `json:"-"`
}

// concertAlias avoids marshal recursion.
type concertAlias Concert

// UnmarshalJSON decodes the known fields and collects everything else
// into Extra, so manual additions to the document round-trip.
func (c *Concert) UnmarshalJSON(data []byte) error {
	var alias concertAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range concertFieldNames {
		delete(raw, known)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}

	*c = Concert(alias)
	return nil
}

// MarshalJSON emits the known fields plus any Extra fields. Key order
// is lexicographic, which keeps repeated writes byte-identical.
func (c Concert) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(concertAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, taken := merged[k]; taken {
			return nil, fmt.Errorf("extra field %q collides with a catalog field", k)
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// concertFieldNames lists the JSON keys owned by the Concert struct.
var concertFieldNames = []string{
	"id", "date", "headliner", "headlinerNormalized",
	"genre", "genreNormalized", "openers",
	"venue", "venueNormalized", "city", "state", "cityState",
	"reference", "isFestival",
	"year", "month", "day", "dayOfWeek", "decade", "location",
}

// Metadata is the document's recomputed summary block. It is derived
// on every write, never hand-edited.
type Metadata struct {
	LastUpdated   string    `json:"lastUpdated"`
	TotalConcerts int       `json:"totalConcerts"`
	DateRange     DateRange `json:"dateRange"`
	UniqueArtists int       `json:"uniqueArtists"`
	UniqueVenues  int       `json:"uniqueVenues"`
	UniqueCities  int       `json:"uniqueCities"`
}

// DateRange spans the catalog's earliest and latest event dates.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// Document is the persisted catalog artifact.
type Document struct {
	Concerts []Concert `json:"concerts"`
	Metadata Metadata  `json:"metadata"`
}

// ComputeMetadata derives the summary block from the concert list.
// Assumes the list is already sorted by date.
func ComputeMetadata(concerts []Concert, now time.Time) Metadata {
	artists := make(map[string]struct{})
	venues := make(map[string]struct{})
	cities := make(map[string]struct{})
	for _, c := range concerts {
		artists[c.Headliner] = struct{}{}
		venues[c.Venue] = struct{}{}
		cities[c.CityState] = struct{}{}
	}

	m := Metadata{
		LastUpdated:   now.UTC().Format(time.RFC3339),
		TotalConcerts: len(concerts),
		UniqueArtists: len(artists),
		UniqueVenues:  len(venues),
		UniqueCities:  len(cities),
	}
	if len(concerts) > 0 {
		m.DateRange = DateRange{
			Earliest: concerts[0].Date,
			Latest:   concerts[len(concerts)-1].Date,
		}
	}
	return m
}
