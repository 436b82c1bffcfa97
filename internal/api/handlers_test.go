package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/pkg/httputil"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
	"github.com/ignite/sendtime-scheduler/internal/service/scheduling"
)

type fakeCampaigns struct {
	summary *scheduling.Summary
	err     error
	gotID   string
}

func (f *fakeCampaigns) RescheduleCampaign(_ context.Context, id string) (*scheduling.Summary, error) {
	f.gotID = id
	return f.summary, f.err
}

func setupTestRouter(t *testing.T, campaigns CampaignRescheduler, limiter *ClientRateLimiter) http.Handler {
	t.Helper()
	h := NewHandlers(sendtime.NewEngine(nil), campaigns, 3)
	return SetupRoutes(h, NewHealthChecker(nil, nil), limiter, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSchedule(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	// Saturday noon in London moves to Monday 09:00 London.
	body := `{
		"contact": {"id": "c1", "email": "jane@example.com", "timezone": "Europe/London"},
		"current_time": "2024-01-13T12:00:00Z"
	}`
	rr := doJSON(t, router, http.MethodPost, "/api/schedule", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res domain.ScheduleResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.ScheduledAt.Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)), res.ScheduledAt)
	assert.Equal(t, "Europe/London", res.TimezoneUsed)
	assert.False(t, res.FallbackUsed)
	assert.NotEmpty(t, res.AdjustmentsMade)
}

func TestSchedule_NullSettingsFallsBack(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	body := `{"contact": {"id": "c1"}, "campaign_settings": null, "current_time": "2024-01-13T12:00:00Z", "step_delay_hours": 2}`
	rr := doJSON(t, router, http.MethodPost, "/api/schedule", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res domain.ScheduleResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, "UTC", res.TimezoneUsed)
	assert.True(t, res.ScheduledAt.Equal(time.Date(2024, 1, 13, 14, 0, 0, 0, time.UTC)))
}

func TestSchedule_BadRequests(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing current time", `{"contact": {"id": "c1"}}`},
		{"malformed json", `{"contact":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/schedule", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var e httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
			assert.Equal(t, "bad_request", e.Code)
		})
	}
}

func TestScheduleBatch(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	body := `{
		"current_time": "2024-01-17T10:30:00Z",
		"campaign_settings": {"business_hours_only": true, "business_hours_start": "09:00", "business_hours_end": "17:00", "business_days": [1,2,3,4,5]},
		"items": [
			{"contact": {"id": "a", "timezone": "Europe/London"}},
			{"contact": {"id": "b", "timezone": "America/New_York"}},
			{"contact": {"id": "c", "timezone": "Asia/Tokyo"}, "priority": "bogus"}
		]
	}`
	rr := doJSON(t, router, http.MethodPost, "/api/schedule/batch", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.BatchID)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Fallbacks)

	// 10:30 in London is inside business hours; 05:30 in New York waits for 09:00.
	assert.True(t, resp.Results[0].ScheduledAt.Equal(time.Date(2024, 1, 17, 10, 30, 0, 0, time.UTC)))
	assert.True(t, resp.Results[1].ScheduledAt.Equal(time.Date(2024, 1, 17, 14, 0, 0, 0, time.UTC)))
	assert.False(t, resp.Results[1].FallbackUsed)
	assert.True(t, resp.Results[2].FallbackUsed)
}

func TestScheduleBatch_TooLarge(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	var items []string
	for i := 0; i < 4; i++ {
		items = append(items, `{"contact": {"id": "x"}}`)
	}
	body := `{"current_time": "2024-01-17T10:30:00Z", "items": [` + strings.Join(items, ",") + `]}`
	rr := doJSON(t, router, http.MethodPost, "/api/schedule/batch", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestValidateSettings(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/settings/validate",
		`{"business_hours_start": "25:00", "business_hours_end": "17:00"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var res domain.ValidationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)

	rr = doJSON(t, router, http.MethodPost, "/api/settings/validate", `{}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Valid)
}

func TestTimezoneSuggestions(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/timezones/suggestions",
		`{"id": "c1", "email": "someone@example.com", "country_code": "GB"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp suggestionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Europe/London", resp.Resolved)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, domain.SourceCountry, resp.Suggestions[0].Source)
}

func TestRescheduleCampaign(t *testing.T) {
	id := "6f1c5e1e-3c1a-4a7e-9a57-0f2a1c3d4e5f"

	tests := []struct {
		name     string
		fake     *fakeCampaigns
		wantCode int
	}{
		{"ok", &fakeCampaigns{summary: &scheduling.Summary{CampaignID: id, Items: 12}}, http.StatusOK},
		{"bad id", &fakeCampaigns{err: scheduling.ErrInvalidCampaignID}, http.StatusBadRequest},
		{"invalid policy", &fakeCampaigns{err: &sendtime.PolicyError{Errors: []string{"bad hours"}}}, http.StatusBadRequest},
		{"not found", &fakeCampaigns{err: scheduling.ErrCampaignNotFound}, http.StatusNotFound},
		{"storage failure", &fakeCampaigns{err: errors.New("connection reset")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, tt.fake, nil)
			rr := doJSON(t, router, http.MethodPost, "/api/campaigns/"+id+"/reschedule", "")
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			assert.Equal(t, id, tt.fake.gotID)
			assert.NotContains(t, rr.Body.String(), "connection reset")
		})
	}
}

func TestRescheduleCampaign_InvalidPolicyDetails(t *testing.T) {
	fake := &fakeCampaigns{err: &sendtime.PolicyError{Errors: []string{"bad hours", "bad days"}}}
	router := setupTestRouter(t, fake, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/campaigns/x/reschedule", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var e struct {
		Code    string   `json:"code"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Equal(t, "invalid_settings", e.Code)
	assert.Equal(t, []string{"bad hours", "bad days"}, e.Details)
}

func TestRescheduleCampaign_NotConfigured(t *testing.T) {
	router := setupTestRouter(t, nil, nil)
	rr := doJSON(t, router, http.MethodPost, "/api/campaigns/x/reschedule", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(t, nil, NewClientRateLimiter(0.001, 1))

	first := doJSON(t, router, http.MethodPost, "/api/settings/validate", `{}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/settings/validate", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health is outside the limited group.
	health := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestClientRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewClientRateLimiter(10, 10)
	start := time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }
	rl.lastSweep = start

	a := rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, rl.Len())

	now = start.Add(5 * time.Minute)
	assert.Same(t, a, rl.GetLimiter("10.0.0.1"))

	// 10.0.0.2 has been idle past the TTL; 10.0.0.1 has not.
	now = start.Add(DefaultLimiterIdleTTL + time.Minute)
	rl.GetLimiter("10.0.0.3")
	assert.Equal(t, 2, rl.Len())
	assert.Same(t, a, rl.GetLimiter("10.0.0.1"))

	// Many one-off clients do not accumulate once they go idle.
	for i := 0; i < 100; i++ {
		rl.GetLimiter(fmt.Sprintf("192.0.2.%d", i))
	}
	now = now.Add(2 * DefaultLimiterIdleTTL)
	rl.GetLimiter("10.0.0.1")
	assert.Equal(t, 1, rl.Len())
}

func TestNewClientRateLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewClientRateLimiter(0, 10))
}

func TestHealth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := NewHealthChecker(nil, client)
	rr := httptest.NewRecorder()
	hc.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["redis"].Status)
	assert.Equal(t, "not_configured", status.Checks["database"].Status)

	mr.Close()
	rr = httptest.NewRecorder()
	hc.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, nil, nil)

	// Record at least one schedule so the collectors have samples.
	doJSON(t, router, http.MethodPost, "/api/schedule", `{"contact": {"id": "c1"}, "current_time": "2024-01-17T10:30:00Z"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "sendtime_schedules_total")
}
