package domain

import "time"

// QueueItem is a pending send in a campaign queue: one contact at one step
// of the campaign sequence.
type QueueItem struct {
	ID             string   `json:"id" db:"id"`
	CampaignID     string   `json:"campaign_id" db:"campaign_id"`
	Contact        Contact  `json:"contact"`
	StepDelayHours int      `json:"step_delay_hours" db:"step_delay_hours"`
	StepDelayDays  int      `json:"step_delay_days" db:"step_delay_days"`
	Priority       Priority `json:"priority" db:"priority"`
}

// SchedulingContext builds the engine input for the item.
func (q QueueItem) SchedulingContext(settings *CampaignSettings, now time.Time) SchedulingContext {
	return SchedulingContext{
		Contact:        q.Contact,
		Settings:       settings,
		CurrentTime:    now,
		StepDelayHours: q.StepDelayHours,
		StepDelayDays:  q.StepDelayDays,
		Priority:       q.Priority,
	}
}

// ItemSchedule is the persisted outcome of scheduling one queue item.
type ItemSchedule struct {
	ItemID          string    `json:"item_id" db:"id"`
	ScheduledAt     time.Time `json:"scheduled_at" db:"scheduled_at"`
	TimezoneUsed    string    `json:"timezone_used" db:"timezone_used"`
	ConfidenceScore int       `json:"confidence_score" db:"schedule_confidence"`
	FallbackUsed    bool      `json:"fallback_used" db:"schedule_fallback"`
}

// NewItemSchedule pairs a queue item with its engine result.
func NewItemSchedule(itemID string, r ScheduleResult) ItemSchedule {
	return ItemSchedule{
		ItemID:          itemID,
		ScheduledAt:     r.ScheduledAt,
		TimezoneUsed:    r.TimezoneUsed,
		ConfidenceScore: r.ConfidenceScore,
		FallbackUsed:    r.FallbackUsed,
	}
}
