package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/metrics"
	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
)

// DefaultPageSize is how many queue items are scheduled per round trip.
const DefaultPageSize = 1000

// Service implements campaign rescheduling. It is safe for concurrent use.
type Service struct {
	repo      Repository
	scheduler Scheduler
	now       func() time.Time
	pageSize  int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPageSize sets how many queue items are loaded per page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService creates a scheduling service.
func NewService(repo Repository, scheduler Scheduler, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		scheduler: scheduler,
		now:       time.Now,
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary describes one reschedule run.
type Summary struct {
	RunID      string    `json:"run_id"`
	CampaignID string    `json:"campaign_id"`
	StartedAt  time.Time `json:"started_at"`
	Items      int       `json:"items"`
	Fallbacks  int       `json:"fallbacks"`
	Pages      int       `json:"pages"`
}

// RescheduleCampaign recomputes the send time of every pending item of a
// campaign. Invalid settings are rejected with a *sendtime.PolicyError before
// anything is written. All items of a run are scheduled against the same
// current time.
func (s *Service) RescheduleCampaign(ctx context.Context, campaignID string) (*Summary, error) {
	if _, err := uuid.Parse(campaignID); err != nil {
		return nil, ErrInvalidCampaignID
	}

	settings, err := s.repo.LoadCampaignSettings(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if res := sendtime.ValidateSettings(settings.WithDefaults()); !res.Valid {
		metrics.Reschedules.WithLabelValues("invalid").Inc()
		return nil, &sendtime.PolicyError{Errors: res.Errors}
	}

	sum := &Summary{
		RunID:      uuid.NewString(),
		CampaignID: campaignID,
		StartedAt:  s.now().UTC(),
	}

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			metrics.Reschedules.WithLabelValues("error").Inc()
			return sum, err
		}
		items, err := s.repo.PendingItems(ctx, campaignID, after, s.pageSize)
		if err != nil {
			metrics.Reschedules.WithLabelValues("error").Inc()
			return sum, fmt.Errorf("load pending items: %w", err)
		}
		if len(items) == 0 {
			break
		}

		contexts := make([]domain.SchedulingContext, len(items))
		for i, it := range items {
			contexts[i] = it.SchedulingContext(settings, sum.StartedAt)
		}
		results := s.scheduler.ScheduleMany(ctx, contexts)

		schedules := make([]domain.ItemSchedule, len(items))
		for i, it := range items {
			schedules[i] = domain.NewItemSchedule(it.ID, results[i])
			if results[i].FallbackUsed {
				sum.Fallbacks++
			}
		}
		if err := s.repo.SaveSchedules(ctx, schedules); err != nil {
			metrics.Reschedules.WithLabelValues("error").Inc()
			return sum, fmt.Errorf("save schedules: %w", err)
		}

		sum.Items += len(items)
		sum.Pages++
		metrics.RescheduledItems.Add(float64(len(items)))

		if len(items) < s.pageSize {
			break
		}
		after = items[len(items)-1].ID
	}

	if err := s.repo.MarkRescheduled(ctx, campaignID); err != nil {
		metrics.Reschedules.WithLabelValues("error").Inc()
		return sum, fmt.Errorf("mark rescheduled: %w", err)
	}

	metrics.Reschedules.WithLabelValues("ok").Inc()
	logger.Info("Campaign rescheduled",
		"run_id", sum.RunID,
		"campaign_id", campaignID,
		"items", sum.Items,
		"fallbacks", sum.Fallbacks,
		"pages", sum.Pages,
	)
	return sum, nil
}

// PendingCampaigns returns campaigns whose settings changed since they were
// last rescheduled.
func (s *Service) PendingCampaigns(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.repo.CampaignsNeedingReschedule(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("campaigns needing reschedule: %w", err)
	}
	return ids, nil
}
