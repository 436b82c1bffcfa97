package sendtime

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is used by FormatInTimezone when no locale is given.
const DefaultLocale = "en-US"

// LoadLocation resolves an IANA zone name. Unlike time.LoadLocation it
// rejects "" and "Local", whose meaning depends on the host.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" || tz == "Local" {
		return nil, fmt.Errorf("unrecognized timezone %q", tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unrecognized timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ConvertTime reinterprets an instant in toTz. The instant itself never
// changes. An unrecognized toTz returns t unchanged.
func ConvertTime(t time.Time, fromTz, toTz string) time.Time {
	if fromTz == toTz {
		return t
	}
	loc, err := LoadLocation(toTz)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// IsWithinBusinessHours reports whether t, in its own location, falls on one
// of businessDays and inside [startTime, endTime). The end is exclusive.
// Malformed time strings are reported as errors.
func IsWithinBusinessHours(t time.Time, startTime, endTime string, businessDays []int) (bool, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return false, fmt.Errorf("business hours start: %w", err)
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return false, fmt.Errorf("business hours end: %w", err)
	}
	if start >= end {
		return false, errors.New("business hours start must be before end")
	}
	return withinHours(t, start, end, newDaySet(businessDays)), nil
}

func withinHours(t time.Time, start, end Clock, days daySet) bool {
	if !days.has(t.Weekday()) {
		return false
	}
	c := ClockOf(t)
	return c >= start && c < end
}

// FormatInTimezone renders t for reasoning strings, in tz and the given
// BCP 47 locale. An unrecognized tz falls back to RFC 3339 in UTC.
func FormatInTimezone(t time.Time, tz, locale string) string {
	loc, err := LoadLocation(tz)
	if err != nil {
		return t.UTC().Format(time.RFC3339)
	}
	return t.In(loc).Format(layoutFor(locale))
}

const (
	layoutUS    = "Mon, Jan 2, 2006 3:04 PM MST"
	layoutWorld = "Mon, 2 Jan 2006 15:04 MST"
)

// layoutFor picks a month-first 12-hour layout for US English and a
// day-first 24-hour layout everywhere else.
func layoutFor(locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return layoutUS
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	if base.String() == "en" && (region.String() == "US" || region.String() == "PH") {
		return layoutUS
	}
	return layoutWorld
}
