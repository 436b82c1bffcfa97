package sendtime

import (
	"time"

	"github.com/ignite/sendtime-scheduler/internal/domain"
)

// MaxHorizon is the furthest ahead of CurrentTime a send may be scheduled.
const MaxHorizon = 7 * 24 * time.Hour

// StageContext is what every stage reads while evaluating one contact. It is
// created per call and never shared between goroutines.
type StageContext struct {
	Policy         *Policy
	Timezone       string
	Location       *time.Location
	CurrentTime    time.Time
	StepDelayHours int
	StepDelayDays  int
	Priority       domain.Priority
	Horizon        time.Time
	Locale         string

	relaxed bool
}

// Relaxed reports whether high priority has switched off the business-hours,
// weekend and holiday stages.
func (sc *StageContext) Relaxed() bool { return sc.relaxed }

func (sc *StageContext) format(t time.Time) string {
	return FormatInTimezone(t, sc.Timezone, sc.Locale)
}

func (sc *StageContext) local(t time.Time) time.Time {
	return t.In(sc.Location)
}

// Step is the outcome of one stage. Candidate is never earlier than the
// stage input, except for the cap stage. A non-empty Adjustment means the
// stage moved the candidate.
type Step struct {
	Candidate  time.Time
	Adjustment string
	Reason     string
}

// Stage is one ordered adjustment of the constraint pipeline.
type Stage interface {
	Name() string
	Apply(candidate time.Time, sc *StageContext) Step
}

// Relaxable is implemented by stages that high-priority mail skips.
type Relaxable interface {
	RelaxedByHighPriority() bool
}

// Pipeline runs stages in a fixed order.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline from an explicit stage order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// DefaultPipeline returns the production stage order.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		StepDelayStage{},
		HighPriorityStage{},
		LowPriorityStage{},
		BusinessHoursStage{},
		WeekendStage{},
		HolidayStage{},
		CustomWindowStage{},
		OptimalTimeStage{},
		CapStage{},
	)
}

// StageNames lists the stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Trace is the accumulated result of a pipeline run.
type Trace struct {
	Candidate   time.Time
	Adjustments []string
	Reasoning   []string
	// Fired holds the name of each stage that produced an adjustment.
	Fired []string
}

// Apply runs every stage against candidate.
func (p *Pipeline) Apply(candidate time.Time, sc *StageContext) Trace {
	tr := Trace{
		Candidate:   candidate,
		Adjustments: []string{},
		Reasoning:   []string{},
	}
	for _, s := range p.stages {
		if r, ok := s.(Relaxable); ok && sc.relaxed && r.RelaxedByHighPriority() {
			continue
		}
		step := s.Apply(tr.Candidate, sc)
		tr.Candidate = step.Candidate
		if step.Adjustment != "" {
			tr.Adjustments = append(tr.Adjustments, step.Adjustment)
			tr.Fired = append(tr.Fired, s.Name())
		}
		if step.Reason != "" {
			tr.Reasoning = append(tr.Reasoning, step.Reason)
		}
	}
	return tr
}
