package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sydlexius/gigbook/internal/normalize"
	"github.com/sydlexius/gigbook/internal/provider/geocode"
)

// CSV column headers of the ingestion input.
const (
	colDate      = "Date"
	colHeadliner = "Artist Name - Headliner"
	colOpeners   = "Artist Name - Opener(s)"
	colVenue     = "Venue"
	colCityState = "City/State"
	colFestival  = "Festival"
)

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"1/2/2006",
	"2006/01/02",
}

// SourceRow is one freshly ingested concert row. It lives only until
// the merge; identity belongs to the reconciler.
type SourceRow struct {
	Date       time.Time
	Headliner  string
	Openers    []string
	Venue      string
	City       string
	State      string
	CityState  string
	IsFestival bool
}

// ISODate returns the row's date as yyyy-mm-dd.
func (r SourceRow) ISODate() string { return r.Date.Format("2006-01-02") }

// ReadCSV parses the headered concert CSV. Rows with unparsable dates
// are dropped with a warning; a missing required column is an error.
func ReadCSV(r io.Reader, logger *slog.Logger) ([]SourceRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colDate, colHeadliner, colVenue} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []SourceRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", line, err)
		}

		rawDate := field(record, colDate)
		date, err := parseEventDate(rawDate)
		if err != nil {
			logger.Warn("dropping row with unparsable date",
				slog.Int("row", line),
				slog.String("date", rawDate))
			continue
		}

		city, state := splitCityState(field(record, colCityState))
		rows = append(rows, SourceRow{
			Date:       date,
			Headliner:  field(record, colHeadliner),
			Openers:    splitOpeners(field(record, colOpeners)),
			Venue:      field(record, colVenue),
			City:       city,
			State:      state,
			CityState:  field(record, colCityState),
			IsFestival: strings.Contains(strings.ToLower(field(record, colFestival)), "yes"),
		})
	}
	return rows, nil
}

// parseEventDate parses a date cell. Range cells ("a – b" or "a - b")
// collapse to their start date.
func parseEventDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "–"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	} else if len(s) > 10 {
		if i := strings.Index(s, " - "); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func splitCityState(cityState string) (city, state string) {
	parts := strings.SplitN(cityState, ",", 2)
	city = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		state = strings.TrimSpace(parts[1])
	}
	return city, state
}

func splitOpeners(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	openers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			openers = append(openers, p)
		}
	}
	if len(openers) == 0 {
		return nil
	}
	return openers
}

// BuildConcert derives a full catalog record from an ingested row plus
// the resolved genre and coordinates. The ID is the stable key; the
// reconciler replaces it with an existing identity when one matches.
func BuildConcert(row SourceRow, genre string, coords geocode.Coordinates) Concert {
	headlinerNormalized := normalize.Artist(row.Headliner)
	return Concert{
		ID:                  StableKey(row.ISODate(), headlinerNormalized),
		Date:                row.ISODate(),
		Headliner:           row.Headliner,
		HeadlinerNormalized: headlinerNormalized,
		Genre:               genre,
		GenreNormalized:     normalize.Genre(genre),
		Openers:             row.Openers,
		Venue:               row.Venue,
		VenueNormalized:     normalize.Venue(row.Venue),
		City:                row.City,
		State:               row.State,
		CityState:           row.CityState,
		IsFestival:          row.IsFestival,
		Year:                row.Date.Year(),
		Month:               int(row.Date.Month()),
		Day:                 row.Date.Day(),
		DayOfWeek:           row.Date.Weekday().String(),
		Decade:              fmt.Sprintf("%d0s", row.Date.Year()/10),
		Location:            coords,
	}
}
