package scheduling

import (
	"context"

	"github.com/ignite/sendtime-scheduler/internal/domain"
)

// Repository defines the data access contract for campaign rescheduling.
type Repository interface {
	// LoadCampaignSettings returns the delivery settings of a campaign,
	// including its learned optimal send times. Returns ErrCampaignNotFound
	// if the campaign has no settings row.
	LoadCampaignSettings(ctx context.Context, campaignID string) (*domain.CampaignSettings, error)

	// PendingItems returns up to limit queued items with an ID greater than
	// afterID, ordered by ID. An empty afterID starts from the beginning.
	PendingItems(ctx context.Context, campaignID, afterID string, limit int) ([]domain.QueueItem, error)

	// SaveSchedules writes the computed send times back to the queue.
	SaveSchedules(ctx context.Context, schedules []domain.ItemSchedule) error

	// CampaignsNeedingReschedule returns IDs of campaigns whose settings
	// changed since their queue was last scheduled, oldest change first.
	CampaignsNeedingReschedule(ctx context.Context, limit int) ([]string, error)

	// MarkRescheduled clears the settings-changed flag of a campaign.
	MarkRescheduled(ctx context.Context, campaignID string) error
}

// Scheduler computes send times for a batch of contexts, returning results
// in input order.
type Scheduler interface {
	ScheduleMany(ctx context.Context, contexts []domain.SchedulingContext) []domain.ScheduleResult
}
