package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/metrics"
	"github.com/ignite/sendtime-scheduler/internal/pkg/httputil"
	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
	"github.com/ignite/sendtime-scheduler/internal/service/scheduling"
)

// DefaultMaxBatchItems bounds POST /api/schedule/batch.
const DefaultMaxBatchItems = 10000

// CampaignRescheduler is the campaign use case behind the reschedule route.
type CampaignRescheduler interface {
	RescheduleCampaign(ctx context.Context, campaignID string) (*scheduling.Summary, error)
}

// Handlers contains the HTTP handlers
type Handlers struct {
	engine    *sendtime.Engine
	campaigns CampaignRescheduler
	maxBatch  int
}

// NewHandlers creates new handlers. campaigns may be nil when no database is
// configured; the reschedule route then answers 503.
func NewHandlers(engine *sendtime.Engine, campaigns CampaignRescheduler, maxBatch int) *Handlers {
	if engine == nil {
		engine = sendtime.NewEngine(nil)
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchItems
	}
	return &Handlers{engine: engine, campaigns: campaigns, maxBatch: maxBatch}
}

// scheduleRequest is the body of POST /api/schedule. A missing
// campaign_settings object means the default policy; an explicit null is
// passed through and yields a fallback result.
type scheduleRequest struct {
	Contact        domain.Contact           `json:"contact"`
	Settings       *domain.CampaignSettings `json:"campaign_settings"`
	CurrentTime    *time.Time               `json:"current_time"`
	StepDelayHours int                      `json:"step_delay_hours"`
	StepDelayDays  int                      `json:"step_delay_days"`
	Priority       domain.Priority          `json:"priority"`
}

func newScheduleRequest() scheduleRequest {
	defaults := domain.DefaultCampaignSettings()
	return scheduleRequest{Settings: &defaults}
}

// Schedule computes one send time.
//
//	POST /api/schedule
func (h *Handlers) Schedule(w http.ResponseWriter, r *http.Request) {
	req := newScheduleRequest()
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.CurrentTime == nil || req.CurrentTime.IsZero() {
		httputil.BadRequest(w, "current_time is required")
		return
	}

	res := h.engine.Schedule(r.Context(), domain.SchedulingContext{
		Contact:        req.Contact,
		Settings:       req.Settings,
		CurrentTime:    *req.CurrentTime,
		StepDelayHours: req.StepDelayHours,
		StepDelayDays:  req.StepDelayDays,
		Priority:       req.Priority,
	})
	httputil.OK(w, res)
}

// batchItem is one contact of a batch request.
type batchItem struct {
	Contact        domain.Contact  `json:"contact"`
	StepDelayHours int             `json:"step_delay_hours"`
	StepDelayDays  int             `json:"step_delay_days"`
	Priority       domain.Priority `json:"priority"`
}

// batchRequest schedules many contacts of one campaign against one policy
// and one current time.
type batchRequest struct {
	Settings    *domain.CampaignSettings `json:"campaign_settings"`
	CurrentTime *time.Time               `json:"current_time"`
	Items       []batchItem              `json:"items"`
}

type batchResponse struct {
	BatchID   string                  `json:"batch_id"`
	Count     int                     `json:"count"`
	Fallbacks int                     `json:"fallbacks"`
	Results   []domain.ScheduleResult `json:"results"`
}

// ScheduleBatch computes send times for many contacts. Results are in input
// order.
//
//	POST /api/schedule/batch
func (h *Handlers) ScheduleBatch(w http.ResponseWriter, r *http.Request) {
	defaults := domain.DefaultCampaignSettings()
	req := batchRequest{Settings: &defaults}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.CurrentTime == nil || req.CurrentTime.IsZero() {
		httputil.BadRequest(w, "current_time is required")
		return
	}
	if len(req.Items) > h.maxBatch {
		httputil.Error(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			"batch exceeds the maximum number of items")
		return
	}

	contexts := make([]domain.SchedulingContext, len(req.Items))
	for i, it := range req.Items {
		contexts[i] = domain.SchedulingContext{
			Contact:        it.Contact,
			Settings:       req.Settings,
			CurrentTime:    *req.CurrentTime,
			StepDelayHours: it.StepDelayHours,
			StepDelayDays:  it.StepDelayDays,
			Priority:       it.Priority,
		}
	}

	start := time.Now()
	results := h.engine.ScheduleMany(r.Context(), contexts)
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	resp := batchResponse{
		BatchID: uuid.NewString(),
		Count:   len(results),
		Results: results,
	}
	for _, res := range results {
		if res.FallbackUsed {
			resp.Fallbacks++
		}
	}

	logger.Info("Batch scheduled",
		"batch_id", resp.BatchID,
		"count", resp.Count,
		"fallbacks", resp.Fallbacks,
		"request_id", middleware.GetReqID(r.Context()),
	)
	httputil.OK(w, resp)
}

// ValidateSettings statically checks a campaign policy.
//
//	POST /api/settings/validate
func (h *Handlers) ValidateSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.CampaignSettings
	if !httputil.Decode(w, r, &s) {
		return
	}
	httputil.OK(w, sendtime.ValidateSettings(s.WithDefaults()))
}

type suggestionsResponse struct {
	Resolved    string                      `json:"resolved"`
	Suggestions []domain.TimezoneSuggestion `json:"suggestions"`
}

// TimezoneSuggestions lists candidate zones for a contact in precedence
// order, with the zone detection would pick.
//
//	POST /api/timezones/suggestions
func (h *Handlers) TimezoneSuggestions(w http.ResponseWriter, r *http.Request) {
	var c domain.Contact
	if !httputil.Decode(w, r, &c) {
		return
	}
	resolver := h.engine.Resolver()
	httputil.OK(w, suggestionsResponse{
		Resolved:    resolver.Resolve(r.Context(), c, true),
		Suggestions: resolver.Suggestions(c),
	})
}

// RescheduleCampaign recomputes send times for a campaign's pending queue.
//
//	POST /api/campaigns/{campaign_id}/reschedule
func (h *Handlers) RescheduleCampaign(w http.ResponseWriter, r *http.Request) {
	if h.campaigns == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "not_configured", "campaign storage is not configured")
		return
	}

	summary, err := h.campaigns.RescheduleCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		var perr *sendtime.PolicyError
		switch {
		case errors.Is(err, scheduling.ErrInvalidCampaignID):
			httputil.BadRequest(w, "invalid campaign id")
		case errors.As(err, &perr):
			httputil.Invalid(w, "campaign settings are invalid", perr.Errors)
		case errors.Is(err, scheduling.ErrCampaignNotFound):
			httputil.NotFound(w, "campaign not found")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, summary)
}
