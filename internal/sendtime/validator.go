package sendtime

import (
	"fmt"
	"time"

	"github.com/ignite/sendtime-scheduler/internal/calendar"
	"github.com/ignite/sendtime-scheduler/internal/domain"
)

// ValidateSettings statically checks a delivery policy. It collects every
// problem instead of stopping at the first one, performs no I/O and never
// panics. Empty fields are errors here; apply WithDefaults first to accept
// them.
func ValidateSettings(s domain.CampaignSettings) domain.ValidationResult {
	var errs []string
	addf := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	start, startErr := ParseClock(s.BusinessHoursStart)
	if startErr != nil {
		addf("business_hours_start: %v", startErr)
	}
	end, endErr := ParseClock(s.BusinessHoursEnd)
	if endErr != nil {
		addf("business_hours_end: %v", endErr)
	}
	if startErr == nil && endErr == nil && start >= end {
		addf("business_hours_start %s must be before business_hours_end %s", start, end)
	}

	for _, d := range s.BusinessDays {
		if d < 0 || d > 6 {
			addf("business_days: %d is not a day of week (must be 0-6)", d)
		}
	}

	for i, w := range s.CustomTimeWindows {
		label := windowLabel(i, w)
		ws, wsErr := ParseClock(w.StartTime)
		if wsErr != nil {
			addf("%s start_time: %v", label, wsErr)
		}
		we, weErr := ParseClock(w.EndTime)
		if weErr != nil {
			addf("%s end_time: %v", label, weErr)
		}
		if wsErr == nil && weErr == nil && ws >= we {
			addf("%s start_time %s must be before end_time %s", label, ws, we)
		}
		for _, d := range w.DaysOfWeek {
			if d < 0 || d > 6 {
				addf("%s days_of_week: %d is not a day of week (must be 0-6)", label, d)
			}
		}
	}

	for _, h := range s.HolidayList {
		if _, err := time.Parse(calendar.DateLayout, h); err != nil {
			addf("holiday_list: %q is not a YYYY-MM-DD date", h)
		}
	}
	switch s.HolidayCalendar {
	case "", domain.HolidayCalendarUS, domain.HolidayCalendarNone:
	default:
		addf("holiday_calendar: unknown calendar %q", s.HolidayCalendar)
	}

	for i, o := range s.OptimalSendTimes {
		if o.DayOfWeek < 0 || o.DayOfWeek > 6 {
			addf("optimal_send_times[%d]: day_of_week %d must be 0-6", i, o.DayOfWeek)
		}
		if o.Hour < 0 || o.Hour > 23 || o.Minute < 0 || o.Minute > 59 {
			addf("optimal_send_times[%d]: %02d:%02d is not a valid time of day", i, o.Hour, o.Minute)
		}
	}

	return domain.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func windowLabel(i int, w domain.CustomTimeWindow) string {
	if w.Name != "" {
		return fmt.Sprintf("custom_time_windows[%d] (%s)", i, w.Name)
	}
	return fmt.Sprintf("custom_time_windows[%d]", i)
}
