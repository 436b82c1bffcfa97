package sendtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/sendtime-scheduler/internal/domain"
)

func TestValidateSettings_Defaults(t *testing.T) {
	res := ValidateSettings(domain.DefaultCampaignSettings())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateSettings_InvalidStartTime(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.BusinessHoursStart = "25:00"

	res := ValidateSettings(s)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "business_hours_start")
}

func TestValidateSettings_CollectsEveryError(t *testing.T) {
	s := domain.CampaignSettings{
		BusinessHoursStart: "17:00",
		BusinessHoursEnd:   "09:00",
		BusinessDays:       []int{1, 7, -1},
		HolidayList:        []string{"2024-01-15", "01/16/2024"},
		HolidayCalendar:    "MARS",
		CustomTimeWindows: []domain.CustomTimeWindow{
			{Name: "lunch", StartTime: "12:00", EndTime: "1pm", DaysOfWeek: []int{9}},
			{StartTime: "14:00", EndTime: "13:00"},
		},
		OptimalSendTimes: []domain.OptimalSendTime{
			{DayOfWeek: 8, Hour: 10},
			{DayOfWeek: 1, Hour: 24, Minute: 0},
		},
	}

	res := ValidateSettings(s)
	assert.False(t, res.Valid)

	joined := strings.Join(res.Errors, "\n")
	for _, want := range []string{
		"must be before business_hours_end",
		"business_days: 7",
		"business_days: -1",
		`"01/16/2024"`,
		`unknown calendar "MARS"`,
		"custom_time_windows[0] (lunch) end_time",
		"custom_time_windows[0] (lunch) days_of_week: 9",
		"custom_time_windows[1] start_time 14:00 must be before end_time 13:00",
		"optimal_send_times[0]: day_of_week 8",
		"optimal_send_times[1]: 24:00",
	} {
		assert.Contains(t, joined, want)
	}
	assert.Len(t, res.Errors, 10)
}

func TestValidateSettings_EmptyFieldsNeedDefaults(t *testing.T) {
	res := ValidateSettings(domain.CampaignSettings{})
	assert.False(t, res.Valid)

	res = ValidateSettings(domain.CampaignSettings{}.WithDefaults())
	assert.True(t, res.Valid)
}

func TestValidateSettings_HolidayCalendars(t *testing.T) {
	for _, cal := range []string{"", domain.HolidayCalendarUS, domain.HolidayCalendarNone} {
		s := domain.DefaultCampaignSettings()
		s.HolidayCalendar = cal
		assert.True(t, ValidateSettings(s).Valid, cal)
	}
}
