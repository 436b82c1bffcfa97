package sendtime

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/sendtime-scheduler/internal/domain"
	"github.com/ignite/sendtime-scheduler/internal/metrics"
)

type compiled struct {
	policy *Policy
	err    error
}

// ScheduleMany schedules every context and returns results in input order.
// Contexts are split into chunks evaluated by a bounded set of goroutines.
// Settings shared by pointer are compiled once for the whole batch.
func (e *Engine) ScheduleMany(ctx context.Context, contexts []domain.SchedulingContext) []domain.ScheduleResult {
	results := make([]domain.ScheduleResult, len(contexts))
	if len(contexts) == 0 {
		return results
	}
	metrics.BatchSize.Observe(float64(len(contexts)))

	policies := make(map[*domain.CampaignSettings]compiled)
	for _, sc := range contexts {
		if _, ok := policies[sc.Settings]; ok {
			continue
		}
		p, err := compile(sc.Settings)
		policies[sc.Settings] = compiled{policy: p, err: err}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for start := 0; start < len(contexts); start += e.chunkSize {
		start := start
		end := min(start+e.chunkSize, len(contexts))
		g.Go(func() error {
			for i := start; i < end; i++ {
				cp := policies[contexts[i].Settings]
				results[i] = e.schedule(ctx, contexts[i], cp.policy, cp.err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
