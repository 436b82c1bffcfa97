package sendtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Clock is a local time of day in minutes after midnight.
type Clock int

// ParseClock parses a strict "HH:MM" string with HH in 00-23 and MM in 00-59.
func ParseClock(s string) (Clock, error) {
	if !clockPattern.MatchString(s) {
		return 0, fmt.Errorf("%q is not in HH:MM format", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 {
		return 0, fmt.Errorf("%q has hour %d (must be 00-23)", s, h)
	}
	if m > 59 {
		return 0, fmt.Errorf("%q has minute %d (must be 00-59)", s, m)
	}
	return Clock(h*60 + m), nil
}

// ClockOf returns the time of day of t in t's location. Seconds are dropped,
// so 16:59:59 is still 16:59.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant at clock c on the calendar day of t, in t's location.
// Times skipped by a DST transition are normalized forward by time.Date.
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, t.Location())
}

// daySet is a set of weekdays, indexed by time.Weekday (0 = Sunday).
type daySet [7]bool

func newDaySet(days []int) daySet {
	var s daySet
	for _, d := range days {
		if d >= 0 && d <= 6 {
			s[d] = true
		}
	}
	return s
}

func (s daySet) has(wd time.Weekday) bool { return s[wd] }

func (s daySet) empty() bool { return s == daySet{} }

// startOfDay returns midnight of t's calendar day in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays moves t's calendar day forward by n days, keeping the location.
func addDays(t time.Time, n int) time.Time {
	return startOfDay(t).AddDate(0, 0, n)
}
