package calendar

import "time"

type fixedHoliday struct {
	Name  string
	Month time.Month
	Day   int
}

var usFixedHolidays = []fixedHoliday{
	{"New Year's Day", time.January, 1},
	{"Juneteenth", time.June, 19},
	{"Independence Day", time.July, 4},
	{"Veterans Day", time.November, 11},
	{"Christmas Eve", time.December, 24},
	{"Christmas", time.December, 25},
	{"New Year's Eve", time.December, 31},
}

// US is the built-in United States holiday calendar: federal holidays plus
// the days around Christmas and New Year when business mail performs poorly.
type US struct{}

// Holiday implements Calendar.
func (US) Holiday(t time.Time) (string, bool) {
	month, day := t.Month(), t.Day()
	for _, h := range usFixedHolidays {
		if month == h.Month && day == h.Day {
			return h.Name, true
		}
	}

	wd := t.Weekday()
	switch {
	// MLK Day: 3rd Monday in January
	case month == time.January && wd == time.Monday && nthWeekday(day) == 3:
		return "MLK Day", true
	// Presidents' Day: 3rd Monday in February
	case month == time.February && wd == time.Monday && nthWeekday(day) == 3:
		return "Presidents' Day", true
	// Memorial Day: last Monday in May
	case month == time.May && wd == time.Monday && day > 24:
		return "Memorial Day", true
	// Labor Day: 1st Monday in September
	case month == time.September && wd == time.Monday && nthWeekday(day) == 1:
		return "Labor Day", true
	// Columbus Day: 2nd Monday in October
	case month == time.October && wd == time.Monday && nthWeekday(day) == 2:
		return "Columbus Day", true
	// Thanksgiving: 4th Thursday in November
	case month == time.November && wd == time.Thursday && nthWeekday(day) == 4:
		return "Thanksgiving", true
	}

	if month == time.November && wd == time.Friday {
		thanksgiving := findNthWeekdayInMonth(t.Year(), time.November, time.Thursday, 4)
		if thanksgiving.Day()+1 == day {
			return "Day after Thanksgiving", true
		}
	}
	return "", false
}

func nthWeekday(dayOfMonth int) int {
	return (dayOfMonth-1)/7 + 1
}

func findNthWeekdayInMonth(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	count := 0
	for d := 1; d <= 31; d++ {
		candidate := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		if candidate.Month() != month {
			break
		}
		if candidate.Weekday() == weekday {
			count++
			if count == n {
				return candidate
			}
		}
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}
