// Package rules holds the deterministic checks applied to extracted
// certificate facts: calendar-date validity, policy number presence and
// insured-person name matching. Every function is pure.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical wire format for dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a string matches no supported date format.
var ErrInvalidDate = errors.New("invalid date")

var numericLayouts = []string{
	DateLayout,
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
}

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var longDate = regexp.MustCompile(`^(\d{1,2})\s+de\s+([a-z]+)\s+(?:de|del)\s+(\d{4})$`)

// ParseDate parses ISO, day-first numeric (dd/mm/yyyy, dd-mm-yyyy,
// dd.mm.yyyy) and Spanish long-form dates ("31 de enero de 2024").
// The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	m := longDate.FindStringSubmatch(strings.ToLower(Fold(s)))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	month, ok := months[m[2]]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown month %q", ErrInvalidDate, m[2])
	}

	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Day truncates t to its calendar date in t's own location, expressed as
// midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date.
func Today() time.Time {
	return Day(time.Now().UTC())
}
