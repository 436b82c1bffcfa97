package domain

import "time"

// Priority controls which delivery constraints are relaxed for a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority. The empty priority is valid
// and means normal.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// OrNormal maps the empty priority to PriorityNormal.
func (p Priority) OrNormal() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}

// SchedulingContext is the immutable input of one scheduling call.
// CurrentTime is always injected by the caller; the engine never reads the
// wall clock.
type SchedulingContext struct {
	Contact        Contact           `json:"contact"`
	Settings       *CampaignSettings `json:"campaign_settings"`
	CurrentTime    time.Time         `json:"current_time"`
	StepDelayHours int               `json:"step_delay_hours,omitempty"`
	StepDelayDays  int               `json:"step_delay_days,omitempty"`
	Priority       Priority          `json:"priority,omitempty"`
}

// MaxStepDelay is where StepDelay saturates. It lies far beyond any
// schedulable horizon, so a saturated delay is always capped downstream.
const MaxStepDelay = 1000 * 24 * time.Hour

// StepDelay returns the total minimum offset applied before any business
// rule. Negative components are ignored.
func (c SchedulingContext) StepDelay() time.Duration {
	return StepDelayOf(c.StepDelayDays, c.StepDelayHours)
}

// StepDelayOf converts a days + hours step delay to a duration. Negative
// components count as zero and the result never exceeds MaxStepDelay, so
// arbitrarily large inputs cannot overflow.
func StepDelayOf(days, hours int) time.Duration {
	const (
		maxDays  = int(MaxStepDelay / (24 * time.Hour))
		maxHours = int(MaxStepDelay / time.Hour)
	)
	var d time.Duration
	if days > 0 {
		d += time.Duration(min(days, maxDays)) * 24 * time.Hour
	}
	if hours > 0 {
		d += time.Duration(min(hours, maxHours)) * time.Hour
	}
	return min(d, MaxStepDelay)
}

// ScheduleResult is the output of one scheduling call. It is freshly built per
// call and never persisted by the engine.
type ScheduleResult struct {
	ScheduledAt     time.Time `json:"scheduled_at"`
	TimezoneUsed    string    `json:"timezone_used"`
	ConfidenceScore int       `json:"confidence_score"`
	Reasoning       []string  `json:"reasoning"`
	AdjustmentsMade []string  `json:"adjustments_made"`
	FallbackUsed    bool      `json:"fallback_used"`
}
