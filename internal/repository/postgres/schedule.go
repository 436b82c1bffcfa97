package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/service/scheduling"
)

// ScheduleRepo implements scheduling.Repository against PostgreSQL.
type ScheduleRepo struct{ db *sql.DB }

// NewScheduleRepo creates a Postgres-backed scheduling repository.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func (r *ScheduleRepo) LoadCampaignSettings(ctx context.Context, campaignID string) (*domain.CampaignSettings, error) {
	var (
		s        domain.CampaignSettings
		days     pq.Int64Array
		holidays pq.StringArray
		windows  []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT timezone_detection, business_hours_only,
		       business_hours_start, business_hours_end, business_days,
		       avoid_weekends, avoid_holidays, holiday_list,
		       COALESCE(holiday_calendar, ''), COALESCE(custom_time_windows, '[]'::jsonb)
		FROM mailing_campaign_send_settings
		WHERE campaign_id = $1
	`, campaignID).Scan(
		&s.TimezoneDetection, &s.BusinessHoursOnly,
		&s.BusinessHoursStart, &s.BusinessHoursEnd, &days,
		&s.AvoidWeekends, &s.AvoidHolidays, &holidays,
		&s.HolidayCalendar, &windows,
	)
	if err == sql.ErrNoRows {
		return nil, scheduling.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get send settings: %w", err)
	}

	for _, d := range days {
		s.BusinessDays = append(s.BusinessDays, int(d))
	}
	s.HolidayList = []string(holidays)
	if err := json.Unmarshal(windows, &s.CustomTimeWindows); err != nil {
		return nil, fmt.Errorf("decode custom time windows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT day_of_week, hour, minute, effectiveness_score, COALESCE(timezone, '')
		FROM mailing_optimal_send_times
		WHERE campaign_id = $1
		ORDER BY effectiveness_score DESC, day_of_week, hour, minute
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list optimal send times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o domain.OptimalSendTime
		if err := rows.Scan(&o.DayOfWeek, &o.Hour, &o.Minute, &o.EffectivenessScore, &o.Timezone); err != nil {
			return nil, fmt.Errorf("scan optimal send time: %w", err)
		}
		s.OptimalSendTimes = append(s.OptimalSendTimes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optimal send times: %w", err)
	}
	return &s, nil
}

func (r *ScheduleRepo) PendingItems(ctx context.Context, campaignID, afterID string, limit int) ([]domain.QueueItem, error) {
	if afterID == "" {
		afterID = uuid.Nil.String()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscriber_id, email,
		       COALESCE(timezone, ''), COALESCE(country_code, ''), COALESCE(company_domain, ''),
		       step_delay_hours, step_delay_days, COALESCE(priority, 'normal')
		FROM mailing_campaign_queue_v2
		WHERE campaign_id = $1 AND status = 'queued' AND id > $2
		ORDER BY id
		LIMIT $3
	`, campaignID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		it := domain.QueueItem{CampaignID: campaignID}
		var priority string
		if err := rows.Scan(
			&it.ID, &it.Contact.ID, &it.Contact.Email,
			&it.Contact.Timezone, &it.Contact.CountryCode, &it.Contact.CompanyDomain,
			&it.StepDelayHours, &it.StepDelayDays, &priority,
		); err != nil {
			return nil, fmt.Errorf("scan pending item: %w", err)
		}
		it.Priority = domain.Priority(priority)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending items: %w", err)
	}
	return items, nil
}

func (r *ScheduleRepo) SaveSchedules(ctx context.Context, schedules []domain.ItemSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	ids := make([]string, len(schedules))
	times := make([]string, len(schedules))
	zones := make([]string, len(schedules))
	confidences := make([]int64, len(schedules))
	fallbacks := make([]bool, len(schedules))
	for i, s := range schedules {
		ids[i] = s.ItemID
		times[i] = s.ScheduledAt.UTC().Format(time.RFC3339)
		zones[i] = s.TimezoneUsed
		confidences[i] = int64(s.ConfidenceScore)
		fallbacks[i] = s.FallbackUsed
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE mailing_campaign_queue_v2
		SET scheduled_at = data.scheduled_at,
		    timezone_used = data.timezone_used,
		    schedule_confidence = data.confidence,
		    schedule_fallback = data.fallback,
		    updated_at = NOW()
		FROM (
			SELECT UNNEST($1::uuid[]) AS id,
			       UNNEST($2::timestamptz[]) AS scheduled_at,
			       UNNEST($3::text[]) AS timezone_used,
			       UNNEST($4::int[]) AS confidence,
			       UNNEST($5::bool[]) AS fallback
		) AS data
		WHERE mailing_campaign_queue_v2.id = data.id
		  AND mailing_campaign_queue_v2.status = 'queued'
	`, pq.Array(ids), pq.Array(times), pq.Array(zones), pq.Array(confidences), pq.Array(fallbacks))
	if err != nil {
		return fmt.Errorf("save schedules: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) CampaignsNeedingReschedule(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id
		FROM mailing_campaign_send_settings
		WHERE settings_changed = true
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list changed campaigns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ScheduleRepo) MarkRescheduled(ctx context.Context, campaignID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE mailing_campaign_send_settings
		SET settings_changed = false, rescheduled_at = NOW()
		WHERE campaign_id = $1
	`, campaignID)
	if err != nil {
		return fmt.Errorf("mark rescheduled: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return scheduling.ErrCampaignNotFound
	}
	return nil
}
