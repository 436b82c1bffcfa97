package domain

// Defaults applied to campaign settings that leave a field empty.
const (
	DefaultBusinessHoursStart = "09:00"
	DefaultBusinessHoursEnd   = "17:00"
)

// DefaultBusinessDays is Monday through Friday (0 = Sunday).
var DefaultBusinessDays = []int{1, 2, 3, 4, 5}

// Holiday calendars. The empty value selects the built-in US calendar;
// HolidayCalendarNone limits the holiday stage to HolidayList.
const (
	HolidayCalendarUS   = "US"
	HolidayCalendarNone = "none"
)

// CampaignSettings is the delivery policy of a campaign. It is owned by
// campaign configuration and is read-only to the scheduler; a single value is
// shared by every contact of a batch.
type CampaignSettings struct {
	TimezoneDetection  bool     `json:"timezone_detection" yaml:"timezone_detection"`
	BusinessHoursOnly  bool     `json:"business_hours_only" yaml:"business_hours_only"`
	BusinessHoursStart string   `json:"business_hours_start" yaml:"business_hours_start"`
	BusinessHoursEnd   string   `json:"business_hours_end" yaml:"business_hours_end"`
	BusinessDays       []int    `json:"business_days" yaml:"business_days"`
	AvoidWeekends      bool     `json:"avoid_weekends" yaml:"avoid_weekends"`
	AvoidHolidays      bool     `json:"avoid_holidays" yaml:"avoid_holidays"`
	HolidayList        []string `json:"holiday_list" yaml:"holiday_list"`
	// HolidayCalendar selects the built-in calendar merged with HolidayList.
	// The default ("" or "US") applies the US federal calendar to every
	// recipient regardless of country; "none" disables it.
	HolidayCalendar   string             `json:"holiday_calendar,omitempty" yaml:"holiday_calendar"`
	CustomTimeWindows []CustomTimeWindow `json:"custom_time_windows" yaml:"custom_time_windows"`
	OptimalSendTimes  []OptimalSendTime  `json:"optimal_send_times" yaml:"optimal_send_times"`
}

// CustomTimeWindow is a campaign-defined send window, e.g. 10:00-12:00 on
// weekdays. An empty Timezone means the recipient's resolved timezone.
type CustomTimeWindow struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	StartTime  string `json:"start_time" yaml:"start_time"`
	EndTime    string `json:"end_time" yaml:"end_time"`
	DaysOfWeek []int  `json:"days_of_week" yaml:"days_of_week"`
	Timezone   string `json:"timezone,omitempty" yaml:"timezone"`
}

// OptimalSendTime is a learned send slot supplied by the analytics process.
// EffectivenessScore is in [0, 1].
type OptimalSendTime struct {
	DayOfWeek          int     `json:"day_of_week" yaml:"day_of_week"`
	Hour               int     `json:"hour" yaml:"hour"`
	Minute             int     `json:"minute" yaml:"minute"`
	EffectivenessScore float64 `json:"effectiveness_score" yaml:"effectiveness_score"`
	Timezone           string  `json:"timezone,omitempty" yaml:"timezone"`
}

// DefaultCampaignSettings returns the policy used when a campaign has no
// delivery settings of its own.
func DefaultCampaignSettings() CampaignSettings {
	return CampaignSettings{
		TimezoneDetection:  true,
		BusinessHoursOnly:  true,
		BusinessHoursStart: DefaultBusinessHoursStart,
		BusinessHoursEnd:   DefaultBusinessHoursEnd,
		BusinessDays:       append([]int(nil), DefaultBusinessDays...),
		AvoidWeekends:      true,
	}
}

// WithDefaults returns a copy of s with empty business hours and business
// days filled in. Slices of the receiver are never modified.
func (s CampaignSettings) WithDefaults() CampaignSettings {
	if s.BusinessHoursStart == "" {
		s.BusinessHoursStart = DefaultBusinessHoursStart
	}
	if s.BusinessHoursEnd == "" {
		s.BusinessHoursEnd = DefaultBusinessHoursEnd
	}
	if len(s.BusinessDays) == 0 {
		s.BusinessDays = append([]int(nil), DefaultBusinessDays...)
	}
	return s
}

// ValidationResult is the outcome of statically validating campaign settings.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
