package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ignite/sendtime-scheduler/internal/pkg/distlock"
	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
	"github.com/ignite/sendtime-scheduler/internal/service/scheduling"
)

// =============================================================================
// RESCHEDULE WORKER
// =============================================================================
// On a cron schedule, finds campaigns whose delivery settings changed and
// recomputes the send time of every queued item. Each campaign is processed
// under a distributed lock so that several worker replicas never reschedule
// the same campaign at once.

const (
	DefaultRescheduleCron  = "@every 1m"
	DefaultLockTTL         = 5 * time.Minute
	DefaultCampaignsPerRun = 25
)

// Rescheduler is the slice of the scheduling service the worker needs.
type Rescheduler interface {
	PendingCampaigns(ctx context.Context, limit int) ([]string, error)
	RescheduleCampaign(ctx context.Context, campaignID string) (*scheduling.Summary, error)
}

// LockFactory returns a fresh lock for key.
type LockFactory func(key string, ttl time.Duration) distlock.DistLock

// RescheduleWorker runs reschedule sweeps on a cron schedule.
type RescheduleWorker struct {
	svc      Rescheduler
	newLock  LockFactory
	schedule string
	lockTTL  time.Duration
	perRun   int
	workerID string

	// Stats
	sweeps      int64
	rescheduled int64
	skipped     int64
	errors      int64

	// Control
	c       *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewRescheduleWorker creates a worker. An empty schedule, a zero TTL or a zero
// per-run limit take the defaults.
func NewRescheduleWorker(svc Rescheduler, newLock LockFactory, schedule string, lockTTL time.Duration, perRun int) (*RescheduleWorker, error) {
	if schedule == "" {
		schedule = DefaultRescheduleCron
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid reschedule cron %q: %w", schedule, err)
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if perRun <= 0 {
		perRun = DefaultCampaignsPerRun
	}
	hostname, _ := os.Hostname()
	return &RescheduleWorker{
		svc:      svc,
		newLock:  newLock,
		schedule: schedule,
		lockTTL:  lockTTL,
		perRun:   perRun,
		workerID: fmt.Sprintf("rescheduler-%s-%s", hostname, uuid.NewString()[:8]),
	}, nil
}

// Start schedules the sweep.
func (w *RescheduleWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("reschedule worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.c = cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := w.c.AddFunc(w.schedule, func() { w.RunOnce(w.ctx) }); err != nil {
		w.cancel()
		return fmt.Errorf("schedule reschedule sweep: %w", err)
	}
	w.c.Start()
	w.running = true

	logger.Info("Reschedule worker started", "worker_id", w.workerID, "cron", w.schedule)
	return nil
}

// Stop cancels any running sweep and waits for it to finish.
func (w *RescheduleWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.cancel()
	<-w.c.Stop().Done()
	logger.Info("Reschedule worker stopped",
		"worker_id", w.workerID,
		"sweeps", atomic.LoadInt64(&w.sweeps),
		"rescheduled", atomic.LoadInt64(&w.rescheduled),
		"errors", atomic.LoadInt64(&w.errors),
	)
}

// RunOnce performs one sweep and returns how many campaigns were
// rescheduled. Campaigns locked by another worker are skipped.
func (w *RescheduleWorker) RunOnce(ctx context.Context) int {
	atomic.AddInt64(&w.sweeps, 1)

	ids, err := w.svc.PendingCampaigns(ctx, w.perRun)
	if err != nil {
		atomic.AddInt64(&w.errors, 1)
		logger.Error("Reschedule sweep failed", "worker_id", w.workerID, "error", err)
		return 0
	}

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if w.rescheduleOne(ctx, id) {
			done++
		}
	}
	return done
}

func (w *RescheduleWorker) rescheduleOne(ctx context.Context, campaignID string) bool {
	// The run must finish before the lock can expire.
	runCtx, cancel := context.WithTimeout(ctx, w.lockTTL)
	defer cancel()

	lock := w.newLock("reschedule:"+campaignID, w.lockTTL)
	err := distlock.WithLock(runCtx, lock, func(ctx context.Context) error {
		_, err := w.svc.RescheduleCampaign(ctx, campaignID)
		return err
	})

	switch {
	case err == nil:
		atomic.AddInt64(&w.rescheduled, 1)
		return true
	case errors.Is(err, distlock.ErrNotAcquired):
		atomic.AddInt64(&w.skipped, 1)
		logger.Debug("Campaign locked by another worker", "campaign_id", campaignID)
	case errors.Is(err, sendtime.ErrInvalidPolicy):
		atomic.AddInt64(&w.errors, 1)
		logger.Warn("Campaign has invalid send settings", "campaign_id", campaignID, "error", err)
	default:
		atomic.AddInt64(&w.errors, 1)
		logger.Error("Campaign reschedule failed", "campaign_id", campaignID, "error", err)
	}
	return false
}

// Stats returns sweep counters.
func (w *RescheduleWorker) Stats() map[string]int64 {
	return map[string]int64{
		"sweeps":      atomic.LoadInt64(&w.sweeps),
		"rescheduled": atomic.LoadInt64(&w.rescheduled),
		"skipped":     atomic.LoadInt64(&w.skipped),
		"errors":      atomic.LoadInt64(&w.errors),
	}
}

// cronLogger routes cron's own logging into the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
