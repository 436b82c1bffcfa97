package sendtime_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
	"github.com/ignite/sendtime-scheduler/internal/timezone"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

// assertSameInstant compares instants regardless of location.
func assertSameInstant(t *testing.T, want, got time.Time, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, want.Equal(got), append([]interface{}{"want %s, got %s", want.UTC(), got.UTC()}, msgAndArgs...)...)
}

func newEngine(opts ...sendtime.Option) *sendtime.Engine {
	return sendtime.NewEngine(timezone.NewResolver(timezone.NewMemoryCache()), opts...)
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestSchedule_NoAdjustments(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	sc := domain.SchedulingContext{
		Contact:     domain.Contact{ID: "c-1", CountryCode: "GB"},
		Settings:    &s,
		CurrentTime: mustTime(t, "2024-01-09T10:00:00Z"),
	}

	res := newEngine().Schedule(context.Background(), sc)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "Europe/London", res.TimezoneUsed)
	assertSameInstant(t, sc.CurrentTime, res.ScheduledAt)
	assert.Empty(t, res.AdjustmentsMade)
	assert.Equal(t, sendtime.BaseConfidence, res.ConfidenceScore)
	assert.NotEmpty(t, res.Reasoning)
}

func TestSchedule_TimezonePrecedence(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	now := mustTime(t, "2024-01-09T10:00:00Z")
	e := newEngine()

	for _, c := range []domain.Contact{
		{ID: "country", CountryCode: "GB", Email: "x@firma.de"},
		{ID: "email", Email: "x@firm.co.uk"},
	} {
		res := e.Schedule(context.Background(), domain.SchedulingContext{Contact: c, Settings: &s, CurrentTime: now})
		assert.Equal(t, "Europe/London", res.TimezoneUsed, c.ID)
	}

	s.TimezoneDetection = false
	res := e.Schedule(context.Background(), domain.SchedulingContext{
		Contact:     domain.Contact{CountryCode: "JP"},
		Settings:    &s,
		CurrentTime: now,
	})
	assert.Equal(t, "UTC", res.TimezoneUsed)
}

func TestSchedule_WeekendMovesToMonday(t *testing.T) {
	for _, businessHoursOnly := range []bool{true, false} {
		s := domain.DefaultCampaignSettings()
		s.BusinessHoursOnly = businessHoursOnly
		sc := domain.SchedulingContext{
			Contact:     domain.Contact{ID: "c-1"},
			Settings:    &s,
			CurrentTime: mustTime(t, "2024-01-13T14:00:00Z"),
		}

		res := newEngine().Schedule(context.Background(), sc)
		assert.Equal(t, time.Monday, res.ScheduledAt.Weekday())
		assertSameInstant(t, mustTime(t, "2024-01-15T09:00:00Z"), res.ScheduledAt)
		assert.True(t, containsSubstring(res.AdjustmentsMade, "Monday"), "%v", res.AdjustmentsMade)
	}
}

func TestSchedule_HolidayAvoidance(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.AvoidHolidays = true
	s.HolidayList = []string{"2024-01-15"}
	sc := domain.SchedulingContext{
		Contact:     domain.Contact{ID: "c-1"},
		Settings:    &s,
		CurrentTime: mustTime(t, "2024-01-15T10:00:00Z"),
	}

	res := newEngine().Schedule(context.Background(), sc)
	assert.True(t, containsSubstring(res.AdjustmentsMade, "holiday"))
	assert.NotEqual(t, "2024-01-15", res.ScheduledAt.Format("2006-01-02"))
	assertSameInstant(t, mustTime(t, "2024-01-16T09:00:00Z"), res.ScheduledAt)
}

func TestSchedule_DefaultCalendarIgnoresRecipientCountry(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.AvoidHolidays = true
	sc := domain.SchedulingContext{
		Contact:     domain.Contact{ID: "c-gb", Timezone: "Europe/London", CountryCode: "GB"},
		Settings:    &s,
		CurrentTime: mustTime(t, "2024-11-28T10:00:00Z"), // Thanksgiving
	}

	res := newEngine().Schedule(context.Background(), sc)
	assert.Equal(t, "Europe/London", res.TimezoneUsed)
	assert.True(t, containsSubstring(res.AdjustmentsMade, "Thanksgiving"))
	// Friday is the day after Thanksgiving, then the weekend.
	assertSameInstant(t, mustTime(t, "2024-12-02T09:00:00Z"), res.ScheduledAt)

	s.HolidayCalendar = domain.HolidayCalendarNone
	res = newEngine().Schedule(context.Background(), sc)
	assert.Empty(t, res.AdjustmentsMade)
	assertSameInstant(t, sc.CurrentTime, res.ScheduledAt)
}

func TestSchedule_HighPriorityBypass(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.AvoidHolidays = true
	s.HolidayList = []string{"2024-01-13"}
	now := mustTime(t, "2024-01-13T22:00:00Z")
	sc := domain.SchedulingContext{
		Contact:     domain.Contact{ID: "c-1"},
		Settings:    &s,
		CurrentTime: now,
		Priority:    domain.PriorityHigh,
	}

	res := newEngine().Schedule(context.Background(), sc)
	assert.Contains(t, res.Reasoning, "High priority - relaxed constraints")
	assertSameInstant(t, now, res.ScheduledAt)
	for _, sub := range []string{"business", "weekend", "holiday", "Monday"} {
		assert.False(t, containsSubstring(res.AdjustmentsMade, sub), sub)
	}
}

func TestSchedule_LowPriority(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	sc := domain.SchedulingContext{
		Contact:     domain.Contact{ID: "c-1"},
		Settings:    &s,
		CurrentTime: mustTime(t, "2024-01-09T10:00:00Z"),
		Priority:    domain.PriorityLow,
	}

	res := newEngine().Schedule(context.Background(), sc)
	assertSameInstant(t, mustTime(t, "2024-01-09T16:00:00Z"), res.ScheduledAt)
	assert.True(t, containsSubstring(res.AdjustmentsMade, "Low priority"))
}

func TestSchedule_FallbackOnInvalidSettings(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.BusinessHoursStart = "25:00"
	now := mustTime(t, "2024-01-09T10:00:00Z")
	sc := domain.SchedulingContext{
		Contact:        domain.Contact{ID: "c-1", CountryCode: "GB"},
		Settings:       &s,
		CurrentTime:    now,
		StepDelayHours: 2,
	}

	e := newEngine()
	for i := 0; i < 3; i++ {
		res := e.Schedule(context.Background(), sc)
		assert.True(t, res.FallbackUsed)
		assert.Less(t, res.ConfidenceScore, 50)
		assert.Equal(t, "UTC", res.TimezoneUsed)
		assertSameInstant(t, now.Add(2*time.Hour), res.ScheduledAt)
		assert.True(t, containsSubstring(res.Reasoning, "Fallback scheduling due to error"))
		assert.True(t, containsSubstring(res.Reasoning, "business_hours_start"))
	}
}

func TestSchedule_FallbackCauses(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	now := mustTime(t, "2024-01-09T10:00:00Z")

	tests := []struct {
		name string
		sc   domain.SchedulingContext
	}{
		{"missing settings", domain.SchedulingContext{CurrentTime: now}},
		{"unknown priority", domain.SchedulingContext{Settings: &s, CurrentTime: now, Priority: "urgent"}},
		{"missing current time", domain.SchedulingContext{Settings: &s}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newEngine().Schedule(context.Background(), tt.sc)
			assert.True(t, res.FallbackUsed)
			assert.Equal(t, sendtime.FallbackConfidence, res.ConfidenceScore)
			require.Len(t, res.Reasoning, 1)
			assert.True(t, strings.HasPrefix(res.Reasoning[0], sendtime.FallbackReasonPrefix))
		})
	}
}

type panicStage struct{}

func (panicStage) Name() string { return "panic" }

func (panicStage) Apply(time.Time, *sendtime.StageContext) sendtime.Step {
	panic("boom")
}

func TestSchedule_RecoversFromPanic(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	now := mustTime(t, "2024-01-09T10:00:00Z")
	e := newEngine(sendtime.WithPipeline(sendtime.NewPipeline(panicStage{})))

	res := e.Schedule(context.Background(), domain.SchedulingContext{Settings: &s, CurrentTime: now, StepDelayHours: 1})
	assert.True(t, res.FallbackUsed)
	assertSameInstant(t, now.Add(time.Hour), res.ScheduledAt)
	assert.True(t, containsSubstring(res.Reasoning, "boom"))
}

func TestSchedule_CappedAtSevenDays(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	now := mustTime(t, "2024-01-09T10:00:00Z")
	sc := domain.SchedulingContext{Settings: &s, CurrentTime: now, StepDelayDays: 10}

	res := newEngine().Schedule(context.Background(), sc)
	assertSameInstant(t, now.Add(sendtime.MaxHorizon), res.ScheduledAt)
	assert.Contains(t, res.AdjustmentsMade, "Capped at maximum 7 days in future")

	s.BusinessHoursEnd = "nope"
	res = newEngine().Schedule(context.Background(), sc)
	assert.True(t, res.FallbackUsed)
	assertSameInstant(t, now.Add(sendtime.MaxHorizon), res.ScheduledAt)
}

func TestSchedule_HugeStepDelayIsCapped(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	now := mustTime(t, "2024-01-09T10:00:00Z")

	tests := []struct {
		name  string
		hours int
		days  int
	}{
		{"hours past int64 nanoseconds", 3000000, 0},
		{"hours near max int", 1 << 40, 0},
		{"days past int64 nanoseconds", 0, 200000},
		{"both huge", 1 << 40, 1 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := domain.SchedulingContext{
				Settings:       &s,
				CurrentTime:    now,
				StepDelayHours: tt.hours,
				StepDelayDays:  tt.days,
			}
			res := newEngine().Schedule(context.Background(), sc)
			assert.False(t, res.FallbackUsed)
			assert.False(t, res.ScheduledAt.Before(now))
			assertSameInstant(t, now.Add(sendtime.MaxHorizon), res.ScheduledAt)
			assert.Contains(t, res.AdjustmentsMade, sendtime.CapAdjustment)

			// The fallback path adds the same delay.
			sc.Priority = "urgent"
			res = newEngine().Schedule(context.Background(), sc)
			assert.True(t, res.FallbackUsed)
			assertSameInstant(t, now.Add(sendtime.MaxHorizon), res.ScheduledAt)
			assert.Contains(t, res.AdjustmentsMade, sendtime.CapAdjustment)
		})
	}
}

func TestSchedule_EndToEnd(t *testing.T) {
	s := domain.DefaultCampaignSettings()
	s.AvoidHolidays = true
	s.HolidayList = []string{"2024-01-16"}
	s.CustomTimeWindows = []domain.CustomTimeWindow{{
		ID:         "morning",
		StartTime:  "10:00",
		EndTime:    "12:00",
		DaysOfWeek: []int{1, 2, 3, 4, 5},
		Timezone:   "Europe/London",
	}}
	london, err := sendtime.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name  string
		now   string
		hours int
		days  int
	}{
		// 2024-01-15 is MLK Day in the built-in calendar.
		{name: "hour delay onto a holiday", now: "2024-01-15T08:00:00Z", hours: 2},
		{name: "day delay", now: "2024-01-15T08:00:00Z", days: 2},
		{name: "evening hour delay", now: "2024-01-15T16:00:00Z", hours: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := domain.SchedulingContext{
				Contact:        domain.Contact{ID: "c-1", CountryCode: "GB"},
				Settings:       &s,
				CurrentTime:    mustTime(t, tt.now),
				StepDelayHours: tt.hours,
				StepDelayDays:  tt.days,
			}

			res := newEngine().Schedule(context.Background(), sc)
			require.False(t, res.FallbackUsed, "%v", res.Reasoning)
			assert.Equal(t, "Europe/London", res.TimezoneUsed)

			local := res.ScheduledAt.In(london)
			assert.Equal(t, time.Wednesday, local.Weekday())
			assert.Equal(t, "2024-01-17", local.Format("2006-01-02"))
			assert.GreaterOrEqual(t, local.Hour(), 10)
			assert.Less(t, local.Hour(), 12)
			assert.NotEmpty(t, res.AdjustmentsMade)
			assert.Greater(t, res.ConfidenceScore, 0)
		})
	}
}

func TestSchedule_Bounds(t *testing.T) {
	base := mustTime(t, "2024-12-20T00:00:00Z")
	e := newEngine()
	contacts := []domain.Contact{
		{ID: "utc"},
		{ID: "ny", CountryCode: "US"},
		{ID: "tokyo", Timezone: "Asia/Tokyo"},
		{ID: "sydney", CountryCode: "AU"},
	}
	variants := []func(*domain.CampaignSettings){
		func(*domain.CampaignSettings) {},
		func(s *domain.CampaignSettings) { s.AvoidHolidays = true },
		func(s *domain.CampaignSettings) {
			s.CustomTimeWindows = []domain.CustomTimeWindow{{StartTime: "13:00", EndTime: "14:00", DaysOfWeek: []int{3}}}
		},
		func(s *domain.CampaignSettings) {
			s.OptimalSendTimes = []domain.OptimalSendTime{{DayOfWeek: 2, Hour: 10, EffectivenessScore: 0.9}}
		},
	}

	for h := 0; h < 24*8; h += 5 {
		now := base.Add(time.Duration(h) * time.Hour)
		for vi, v := range variants {
			s := domain.DefaultCampaignSettings()
			v(&s)
			for _, c := range contacts {
				for _, p := range []domain.Priority{domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh} {
					sc := domain.SchedulingContext{Contact: c, Settings: &s, CurrentTime: now, StepDelayHours: h % 30, Priority: p}
					res := e.Schedule(context.Background(), sc)
					name := fmt.Sprintf("h=%d variant=%d contact=%s priority=%s", h, vi, c.ID, p)

					require.False(t, res.FallbackUsed, name)
					assert.False(t, res.ScheduledAt.Before(now.Add(sc.StepDelay())), name)
					assert.False(t, res.ScheduledAt.After(now.Add(sendtime.MaxHorizon)), name)
					assert.GreaterOrEqual(t, res.ConfidenceScore, 0, name)
					assert.LessOrEqual(t, res.ConfidenceScore, 100, name)
				}
			}
		}
	}
}
