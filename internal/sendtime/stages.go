package sendtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/sendtime-scheduler/internal/calendar"
	"github.com/ignite/sendtime-scheduler/internal/domain"
)

const (
	// LowPriorityOffPeakLead is how long before business hours end a
	// low-priority send is deferred to.
	LowPriorityOffPeakLead Clock = 60

	// OptimalScoreBaseline is the effectiveness a slot must exceed to be used.
	OptimalScoreBaseline = 0.6

	// OptimalNudgeWindow bounds how far forward the optimal-time stage may
	// move a candidate.
	OptimalNudgeWindow = 12 * time.Hour

	// CapAdjustment is recorded when the candidate is clamped to the horizon.
	CapAdjustment = "Capped at maximum 7 days in future"

	// HighPriorityReason is recorded when constraints are relaxed.
	HighPriorityReason = "High priority - relaxed constraints"

	// maxDayScan bounds every day-by-day search. The cap stage clamps
	// anything that runs past the horizon.
	maxDayScan = 14
)

func unchanged(t time.Time) Step { return Step{Candidate: t} }

// StepDelayStage applies the sequence step delay.
type StepDelayStage struct{}

func (StepDelayStage) Name() string { return "step_delay" }

func (StepDelayStage) Apply(c time.Time, sc *StageContext) Step {
	delay := domain.StepDelayOf(sc.StepDelayDays, sc.StepDelayHours)
	if delay == 0 {
		return unchanged(c)
	}
	var parts []string
	if sc.StepDelayDays > 0 {
		parts = append(parts, fmt.Sprintf("%dd", sc.StepDelayDays))
	}
	if sc.StepDelayHours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", sc.StepDelayHours))
	}
	return Step{
		Candidate: c.Add(delay),
		Reason:    fmt.Sprintf("Applied %s step delay", strings.Join(parts, " ")),
	}
}

// HighPriorityStage relaxes the business-hours, weekend and holiday stages.
type HighPriorityStage struct{}

func (HighPriorityStage) Name() string { return "high_priority" }

func (HighPriorityStage) Apply(c time.Time, sc *StageContext) Step {
	if sc.Priority != domain.PriorityHigh {
		return unchanged(c)
	}
	sc.relaxed = true
	return Step{Candidate: c, Reason: HighPriorityReason}
}

// LowPriorityStage defers low-priority sends that land inside business hours
// to the last hour of the business day, behind normal traffic.
type LowPriorityStage struct{}

func (LowPriorityStage) Name() string { return "low_priority" }

func (LowPriorityStage) Apply(c time.Time, sc *StageContext) Step {
	if sc.Priority != domain.PriorityLow {
		return unchanged(c)
	}
	p := sc.Policy
	local := sc.local(c)
	if !withinHours(local, p.Start, p.End, p.BusinessDays) {
		return unchanged(c)
	}
	offPeak := p.End - LowPriorityOffPeakLead
	if offPeak < p.Start {
		offPeak = p.Start
	}
	target := offPeak.On(local)
	if !target.After(c) {
		return unchanged(c)
	}
	return Step{
		Candidate:  target,
		Adjustment: fmt.Sprintf("Low priority: deferred to off-peak %s", sc.format(target)),
		Reason:     fmt.Sprintf("Low priority message deferred behind normal traffic to %s-%s local time", offPeak, p.End),
	}
}

// BusinessHoursStage moves candidates outside business hours to the next
// business-hours start.
type BusinessHoursStage struct{}

func (BusinessHoursStage) Name() string { return "business_hours" }

func (BusinessHoursStage) RelaxedByHighPriority() bool { return true }

func (BusinessHoursStage) Apply(c time.Time, sc *StageContext) Step {
	p := sc.Policy
	if !p.BusinessHoursOnly {
		return unchanged(c)
	}
	local := sc.local(c)
	if withinHours(local, p.Start, p.End, p.BusinessDays) {
		return unchanged(c)
	}

	var target time.Time
	if p.isBusinessDay(local) && ClockOf(local) < p.Start {
		target = p.Start.On(local)
	} else {
		target = nextBusinessDayStart(p, local)
	}
	if !target.After(c) {
		return unchanged(c)
	}
	return Step{
		Candidate:  target,
		Adjustment: fmt.Sprintf("Outside business hours %s-%s: moved to %s %s", p.Start, p.End, target.Weekday(), p.Start),
		Reason:     fmt.Sprintf("%s is outside business hours; next send opportunity is %s", sc.format(c), sc.format(target)),
	}
}

// WeekendStage moves candidates off non-business days.
type WeekendStage struct{}

func (WeekendStage) Name() string { return "weekend" }

func (WeekendStage) RelaxedByHighPriority() bool { return true }

func (WeekendStage) Apply(c time.Time, sc *StageContext) Step {
	p := sc.Policy
	if !p.AvoidWeekends {
		return unchanged(c)
	}
	local := sc.local(c)
	if p.isBusinessDay(local) {
		return unchanged(c)
	}
	target := nextBusinessDayStart(p, local)
	return Step{
		Candidate:  target,
		Adjustment: fmt.Sprintf("Avoided weekend: moved to %s %s", target.Weekday(), p.Start),
		Reason:     fmt.Sprintf("%s is not a business day; next send opportunity is %s", local.Weekday(), sc.format(target)),
	}
}

// HolidayStage moves candidates off holidays, one day at a time, until a
// business day that is not a holiday is found.
type HolidayStage struct{}

func (HolidayStage) Name() string { return "holiday" }

func (HolidayStage) RelaxedByHighPriority() bool { return true }

func (HolidayStage) Apply(c time.Time, sc *StageContext) Step {
	p := sc.Policy
	if !p.AvoidHolidays {
		return unchanged(c)
	}
	local := sc.local(c)
	name, ok := p.holiday(local)
	if !ok {
		return unchanged(c)
	}

	day := local
	for i := 0; i < maxDayScan; i++ {
		day = addDays(day, 1)
		if day.After(sc.Horizon) {
			break
		}
		if !p.isBusinessDay(day) {
			continue
		}
		if _, hol := p.holiday(day); hol {
			continue
		}
		break
	}
	target := p.Start.On(day)
	return Step{
		Candidate:  target,
		Adjustment: fmt.Sprintf("Skipped holiday %s (%s): moved to %s %s", local.Format(calendar.DateLayout), name, target.Weekday(), p.Start),
		Reason:     fmt.Sprintf("%s is a holiday (%s); next send opportunity is %s", local.Format(calendar.DateLayout), name, sc.format(target)),
	}
}

// CustomWindowStage moves candidates that sit outside every custom window to
// the start of the nearest following window. Windows are checked in the
// configured order and the first one wins a tie.
type CustomWindowStage struct{}

func (CustomWindowStage) Name() string { return "custom_window" }

func (CustomWindowStage) Apply(c time.Time, sc *StageContext) Step {
	p := sc.Policy
	if len(p.Windows) == 0 {
		return unchanged(c)
	}
	for _, w := range p.Windows {
		if w.contains(c, sc.Location) {
			return unchanged(c)
		}
	}

	best, bestIdx := time.Time{}, -1
	for i, w := range p.Windows {
		next, ok := nextWindowStart(w, c, sc)
		if ok && (bestIdx < 0 || next.Before(best)) {
			best, bestIdx = next, i
		}
	}
	if bestIdx < 0 {
		return Step{Candidate: c, Reason: "No custom time window opens within the scheduling horizon"}
	}

	w := p.Windows[bestIdx]
	tz := w.Timezone
	if w.Location == nil {
		tz = sc.Timezone
	}
	return Step{
		Candidate:  best,
		Adjustment: fmt.Sprintf("Moved to custom time window %q (%s-%s): %s", w.Name, w.Start, w.End, FormatInTimezone(best, tz, sc.Locale)),
		Reason:     fmt.Sprintf("%s is outside every custom time window", sc.format(c)),
	}
}

func (w Window) location(fallback *time.Location) *time.Location {
	if w.Location != nil {
		return w.Location
	}
	return fallback
}

func (w Window) contains(t time.Time, fallback *time.Location) bool {
	local := t.In(w.location(fallback))
	if !w.Days.has(local.Weekday()) {
		return false
	}
	c := ClockOf(local)
	return c >= w.Start && c < w.End
}

// nextWindowStart finds the first start of w at or after c. Unless high
// priority relaxed them, occurrences on holidays or non-business days are
// skipped when the policy avoids those.
func nextWindowStart(w Window, c time.Time, sc *StageContext) (time.Time, bool) {
	p := sc.Policy
	local := c.In(w.location(sc.Location))
	for d := 0; d <= maxDayScan; d++ {
		day := addDays(local, d)
		if !w.Days.has(day.Weekday()) {
			continue
		}
		start := w.Start.On(day)
		if start.Before(c) {
			continue
		}
		if start.After(sc.Horizon) {
			return time.Time{}, false
		}
		if !sc.relaxed {
			recipient := sc.local(start)
			if p.AvoidWeekends && !p.isBusinessDay(recipient) {
				continue
			}
			if _, hol := p.holiday(recipient); p.AvoidHolidays && hol {
				continue
			}
		}
		return start, true
	}
	return time.Time{}, false
}

// OptimalTimeStage nudges the candidate forward to a learned high-performing
// slot, as long as the slot keeps every constraint satisfied.
type OptimalTimeStage struct{}

func (OptimalTimeStage) Name() string { return "optimal_time" }

func (OptimalTimeStage) Apply(c time.Time, sc *StageContext) Step {
	p := sc.Policy
	if len(p.OptimalSlots) == 0 {
		return unchanged(c)
	}

	var (
		best      time.Time
		bestScore float64
		found     bool
	)
	for _, s := range p.OptimalSlots {
		if s.Score <= OptimalScoreBaseline {
			continue
		}
		loc := sc.Location
		if s.Location != nil {
			loc = s.Location
		}
		local := c.In(loc)
		for d := 0; d <= 1; d++ {
			day := addDays(local, d)
			if day.Weekday() != s.Day {
				continue
			}
			t := s.At.On(day)
			if t.Before(c) || t.Sub(c) > OptimalNudgeWindow || !satisfiesPolicy(t, sc) {
				continue
			}
			if !found || s.Score > bestScore || (s.Score == bestScore && t.Before(best)) {
				best, bestScore, found = t, s.Score, true
			}
		}
	}

	if !found {
		return Step{Candidate: c, Reason: fmt.Sprintf("No optimal send time above %.2f effectiveness fits the current slot", OptimalScoreBaseline)}
	}
	if best.Equal(c) {
		return Step{Candidate: c, Reason: fmt.Sprintf("Already at optimal send time (effectiveness %.2f)", bestScore)}
	}
	return Step{
		Candidate:  best,
		Adjustment: fmt.Sprintf("Aligned with optimal send time %s (effectiveness %.2f)", sc.format(best), bestScore),
		Reason:     fmt.Sprintf("Nudged forward %s to an optimal send time", best.Sub(c).Round(time.Minute)),
	}
}

// satisfiesPolicy reports whether t passes every constraint still in force.
func satisfiesPolicy(t time.Time, sc *StageContext) bool {
	p := sc.Policy
	if t.After(sc.Horizon) {
		return false
	}
	local := sc.local(t)
	if !sc.relaxed {
		if p.BusinessHoursOnly && !withinHours(local, p.Start, p.End, p.BusinessDays) {
			return false
		}
		if p.AvoidWeekends && !p.isBusinessDay(local) {
			return false
		}
		if _, hol := p.holiday(local); p.AvoidHolidays && hol {
			return false
		}
	}
	if len(p.Windows) == 0 {
		return true
	}
	for _, w := range p.Windows {
		if w.contains(t, sc.Location) {
			return true
		}
	}
	return false
}

// CapStage clamps the candidate to the scheduling horizon.
type CapStage struct{}

func (CapStage) Name() string { return "cap" }

func (CapStage) Apply(c time.Time, sc *StageContext) Step {
	if !c.After(sc.Horizon) {
		return unchanged(c)
	}
	return Step{
		Candidate:  sc.Horizon,
		Adjustment: CapAdjustment,
		Reason:     fmt.Sprintf("%s is beyond the 7 day horizon; capped at %s", sc.format(c), sc.format(sc.Horizon)),
	}
}

// nextBusinessDayStart returns business-hours start on the first business
// day after local's calendar day.
func nextBusinessDayStart(p *Policy, local time.Time) time.Time {
	for d := 1; d <= 7; d++ {
		day := addDays(local, d)
		if p.isBusinessDay(day) {
			return p.Start.On(day)
		}
	}
	return p.Start.On(addDays(local, 1))
}
