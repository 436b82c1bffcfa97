package sendtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/sendtime-scheduler/internal/calendar"
	"github.com/ignite/sendtime-scheduler/internal/domain"
)

// ErrInvalidPolicy is wrapped by every PolicyError.
var ErrInvalidPolicy = errors.New("invalid campaign settings")

// PolicyError carries the full validator output for rejected settings.
type PolicyError struct {
	Errors []string
}

func (e *PolicyError) Error() string {
	return ErrInvalidPolicy.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// Policy is the closed, validated form of domain.CampaignSettings. It is only
// built by CompilePolicy and is never mutated afterwards, so one Policy can
// be shared by every goroutine of a batch.
type Policy struct {
	TimezoneDetection bool
	BusinessHoursOnly bool
	AvoidWeekends     bool
	AvoidHolidays     bool

	Start        Clock
	End          Clock
	BusinessDays daySet
	Holidays     calendar.Calendar
	Windows      []Window
	OptimalSlots []Slot
}

// Window is a compiled custom time window. A nil Location means the
// recipient's timezone.
type Window struct {
	ID       string
	Name     string
	Start    Clock
	End      Clock
	Days     daySet
	Timezone string
	Location *time.Location
}

// Slot is a compiled optimal send time.
type Slot struct {
	Day      time.Weekday
	At       Clock
	Score    float64
	Timezone string
	Location *time.Location
}

// CompilePolicy fills defaults, validates, and parses settings. Invalid
// settings return a *PolicyError. Window and slot timezones that are not
// recognized degrade to the recipient's timezone.
func CompilePolicy(s domain.CampaignSettings) (*Policy, error) {
	s = s.WithDefaults()
	if res := ValidateSettings(s); !res.Valid {
		return nil, &PolicyError{Errors: res.Errors}
	}

	// Validation guarantees these parse.
	start, _ := ParseClock(s.BusinessHoursStart)
	end, _ := ParseClock(s.BusinessHoursEnd)
	listed, _ := calendar.ParseList(s.HolidayList)

	p := &Policy{
		TimezoneDetection: s.TimezoneDetection,
		BusinessHoursOnly: s.BusinessHoursOnly,
		AvoidWeekends:     s.AvoidWeekends,
		AvoidHolidays:     s.AvoidHolidays,
		Start:             start,
		End:               end,
		BusinessDays:      newDaySet(s.BusinessDays),
	}

	// The built-in calendar is not chosen per recipient country.
	cals := calendar.Multi{listed}
	if s.HolidayCalendar != domain.HolidayCalendarNone {
		cals = append(cals, calendar.US{})
	}
	p.Holidays = cals

	for i, w := range s.CustomTimeWindows {
		ws, _ := ParseClock(w.StartTime)
		we, _ := ParseClock(w.EndTime)
		days := newDaySet(w.DaysOfWeek)
		if days.empty() {
			days = newDaySet([]int{0, 1, 2, 3, 4, 5, 6})
		}
		name := w.Name
		if name == "" {
			name = w.ID
		}
		if name == "" {
			name = fmt.Sprintf("window %d", i+1)
		}
		p.Windows = append(p.Windows, Window{
			ID:       w.ID,
			Name:     name,
			Start:    ws,
			End:      we,
			Days:     days,
			Timezone: w.Timezone,
			Location: optionalLocation(w.Timezone),
		})
	}

	for _, o := range s.OptimalSendTimes {
		p.OptimalSlots = append(p.OptimalSlots, Slot{
			Day:      time.Weekday(o.DayOfWeek),
			At:       Clock(o.Hour*60 + o.Minute),
			Score:    o.EffectivenessScore,
			Timezone: o.Timezone,
			Location: optionalLocation(o.Timezone),
		})
	}
	return p, nil
}

func optionalLocation(tz string) *time.Location {
	if tz == "" {
		return nil
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil
	}
	return loc
}

// isBusinessDay reports whether t's local weekday is a business day.
func (p *Policy) isBusinessDay(t time.Time) bool {
	return p.BusinessDays.has(t.Weekday())
}

// holiday reports whether t's local date is a holiday.
func (p *Policy) holiday(t time.Time) (string, bool) {
	if p.Holidays == nil {
		return "", false
	}
	return p.Holidays.Holiday(t)
}
