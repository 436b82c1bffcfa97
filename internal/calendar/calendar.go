// Package calendar answers "is this local date a holiday" for the holiday
// stage of the scheduler. Dates are always interpreted in the location of
// the time value passed in.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of holiday list entries.
const DateLayout = "2006-01-02"

// Calendar reports whether a local date is a holiday and its name.
type Calendar interface {
	Holiday(t time.Time) (string, bool)
}

// List is a set of explicit "YYYY-MM-DD" dates.
type List map[string]struct{}

// ParseList builds a List, rejecting malformed dates.
func ParseList(dates []string) (List, error) {
	l := make(List, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", d, err)
		}
		l[d] = struct{}{}
	}
	return l, nil
}

// Holiday implements Calendar.
func (l List) Holiday(t time.Time) (string, bool) {
	if _, ok := l[t.Format(DateLayout)]; ok {
		return "listed", true
	}
	return "", false
}

// Multi checks each calendar in order; the first match wins.
type Multi []Calendar

// Holiday implements Calendar.
func (m Multi) Holiday(t time.Time) (string, bool) {
	for _, c := range m {
		if c == nil {
			continue
		}
		if name, ok := c.Holiday(t); ok {
			return name, true
		}
	}
	return "", false
}
