// Package sendtime computes when a message to a contact should be sent.
//
// A call compiles the campaign settings into a Policy, resolves the
// recipient's timezone and runs the candidate instant through a fixed
// constraint pipeline:
//
//	step delay -> high priority -> low priority -> business hours ->
//	weekend -> holiday -> custom window -> optimal time -> cap
//
// The engine never reads the wall clock and never fails: any error produces a
// low-confidence fallback result at CurrentTime plus the step delay.
package sendtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/metrics"
	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/ignite/sendtime-scheduler/internal/timezone"
)

const (
	DefaultChunkSize = 50
	DefaultWorkers   = 4
)

// ErrMissingSettings is reported through the fallback path when a context
// carries no campaign settings.
var ErrMissingSettings = errors.New("campaign settings are required")

// FallbackReasonPrefix starts the reasoning line of every fallback result.
const FallbackReasonPrefix = "Fallback scheduling due to error: "

// Engine schedules sends. It is safe for concurrent use.
type Engine struct {
	resolver  *timezone.Resolver
	pipeline  *Pipeline
	locale    string
	chunkSize int
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocale sets the locale used to render times in reasoning text.
func WithLocale(locale string) Option {
	return func(e *Engine) { e.locale = locale }
}

// WithChunkSize sets how many contexts one batch worker handles at a time.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithWorkers bounds the number of chunks evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPipeline replaces the default stage order.
func WithPipeline(p *Pipeline) Option {
	return func(e *Engine) {
		if p != nil {
			e.pipeline = p
		}
	}
}

// NewEngine creates an engine. A nil resolver gets an uncached one.
func NewEngine(resolver *timezone.Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = timezone.NewResolver(nil)
	}
	e := &Engine{
		resolver:  resolver,
		pipeline:  DefaultPipeline(),
		locale:    DefaultLocale,
		chunkSize: DefaultChunkSize,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns the timezone resolver used by the engine.
func (e *Engine) Resolver() *timezone.Resolver { return e.resolver }

// Schedule computes the send time for one context. It always returns a
// result.
func (e *Engine) Schedule(ctx context.Context, sc domain.SchedulingContext) domain.ScheduleResult {
	policy, err := compile(sc.Settings)
	return e.schedule(ctx, sc, policy, err)
}

func compile(s *domain.CampaignSettings) (*Policy, error) {
	if s == nil {
		return nil, ErrMissingSettings
	}
	return CompilePolicy(*s)
}

func (e *Engine) schedule(ctx context.Context, sc domain.SchedulingContext, policy *Policy, policyErr error) (res domain.ScheduleResult) {
	defer func() {
		if r := recover(); r != nil {
			res = e.fallback(sc, fmt.Errorf("panic: %v", r))
		}
	}()

	if policyErr != nil {
		return e.fallback(sc, policyErr)
	}
	if !sc.Priority.Valid() {
		return e.fallback(sc, fmt.Errorf("unknown priority %q", sc.Priority))
	}
	if sc.CurrentTime.IsZero() {
		return e.fallback(sc, errors.New("current time is required"))
	}

	tz := e.resolver.Resolve(ctx, sc.Contact, policy.TimezoneDetection)
	loc, err := LoadLocation(tz)
	if err != nil {
		return e.fallback(sc, err)
	}

	stage := &StageContext{
		Policy:         policy,
		Timezone:       tz,
		Location:       loc,
		CurrentTime:    sc.CurrentTime,
		StepDelayHours: sc.StepDelayHours,
		StepDelayDays:  sc.StepDelayDays,
		Priority:       sc.Priority.OrNormal(),
		Horizon:        sc.CurrentTime.Add(MaxHorizon),
		Locale:         e.locale,
	}
	tr := e.pipeline.Apply(sc.CurrentTime, stage)

	reasoning := make([]string, 0, len(tr.Reasoning)+2)
	reasoning = append(reasoning, fmt.Sprintf("Using timezone %s", tz))
	reasoning = append(reasoning, tr.Reasoning...)
	reasoning = append(reasoning, fmt.Sprintf("Scheduled for %s", FormatInTimezone(tr.Candidate, tz, e.locale)))

	res = domain.ScheduleResult{
		ScheduledAt:     tr.Candidate.UTC(),
		TimezoneUsed:    tz,
		ConfidenceScore: Score(tr.Adjustments, false),
		Reasoning:       reasoning,
		AdjustmentsMade: tr.Adjustments,
	}

	metrics.Schedules.WithLabelValues("normal", string(stage.Priority)).Inc()
	for _, name := range tr.Fired {
		metrics.Adjustments.WithLabelValues(name).Inc()
	}
	logger.Debug("Send time scheduled",
		"contact_id", sc.Contact.ID,
		"timezone", tz,
		"scheduled_at", res.ScheduledAt.Format("2006-01-02T15:04:05Z"),
		"adjustments", len(res.AdjustmentsMade),
		"confidence", res.ConfidenceScore,
	)
	return res
}

// fallback schedules at CurrentTime plus the step delay in UTC, capped at the
// horizon.
func (e *Engine) fallback(sc domain.SchedulingContext, cause error) domain.ScheduleResult {
	at := sc.CurrentTime.Add(sc.StepDelay())
	adjustments := []string{}
	if horizon := sc.CurrentTime.Add(MaxHorizon); at.After(horizon) {
		at = horizon
		adjustments = append(adjustments, CapAdjustment)
	}

	priority := sc.Priority
	if !priority.Valid() {
		priority = domain.PriorityNormal
	}
	metrics.Schedules.WithLabelValues("fallback", string(priority.OrNormal())).Inc()
	logger.Warn("Send time fallback used",
		"contact_id", sc.Contact.ID,
		"error", cause,
	)

	return domain.ScheduleResult{
		ScheduledAt:     at.UTC(),
		TimezoneUsed:    timezone.UTC,
		ConfidenceScore: Score(adjustments, true),
		Reasoning:       []string{FallbackReasonPrefix + cause.Error()},
		AdjustmentsMade: adjustments,
		FallbackUsed:    true,
	}
}
