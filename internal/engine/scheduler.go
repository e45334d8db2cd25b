package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/marketplace-sync/internal/metrics"
	"github.com/donaldgifford/marketplace-sync/internal/store"
)

// Scheduled job names.
const (
	JobTokenCheck = "token-check"
	JobOrderSync  = "order-sync"
)

const staleJobAge = 2 * time.Hour

// Schedule configures the periodic jobs. A zero OrderSync disables the
// order sync job.
type Schedule struct {
	TokenCheck  time.Duration
	OrderSync   time.Duration
	OrderStatus string
	OrderDays   int
	// LockTTL bounds how long a replica may hold a job lock.
	LockTTL time.Duration
}

// Scheduler runs token validation and order syncs on a cron schedule. When a
// job store is configured, each run is recorded and guarded by a lock so only
// one replica runs a job at a time.
type Scheduler struct {
	cron     *cron.Cron
	engine   *Engine
	jobs     store.JobStore
	schedule Schedule
	holder   string
	log      *slog.Logger

	tokenEntryID cron.EntryID
	orderEntryID cron.EntryID
}

// NewScheduler creates a Scheduler that runs engine jobs on sched. jobs may
// be nil.
func NewScheduler(
	eng *Engine,
	jobs store.JobStore,
	sched Schedule,
	log *slog.Logger,
) (*Scheduler, error) {
	if sched.TokenCheck <= 0 {
		return nil, fmt.Errorf("token check interval must be positive, got %s", sched.TokenCheck)
	}
	if sched.LockTTL <= 0 {
		sched.LockTTL = 30 * time.Minute
	}

	s := &Scheduler{
		cron:     cron.New(),
		engine:   eng,
		jobs:     jobs,
		schedule: sched,
		holder:   lockHolder(),
		log:      log,
	}

	id, err := s.cron.AddFunc("@every "+sched.TokenCheck.String(), s.runTokenCheck)
	if err != nil {
		return nil, fmt.Errorf("scheduling %s: %w", JobTokenCheck, err)
	}
	s.tokenEntryID = id

	if sched.OrderSync > 0 {
		id, err := s.cron.AddFunc("@every "+sched.OrderSync.String(), s.runOrderSync)
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", JobOrderSync, err)
		}
		s.orderEntryID = id
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "holder", s.holder)
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamps publishes the next run time of every job.
func (s *Scheduler) SyncNextRunTimestamps() {
	set := func(job string, id cron.EntryID) {
		if id == 0 {
			return
		}
		if next := s.cron.Entry(id).Next; !next.IsZero() {
			metrics.SchedulerNextRunTimestamp.WithLabelValues(job).Set(float64(next.Unix()))
		}
	}
	set(JobTokenCheck, s.tokenEntryID)
	set(JobOrderSync, s.orderEntryID)
}

// RecoverStaleJobRuns marks runs left "running" by a crashed process.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	if s.jobs == nil {
		return
	}
	n, err := s.jobs.RecoverStaleJobRuns(ctx, staleJobAge)
	if err != nil {
		s.log.Error("recovering stale job runs", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("marked stale job runs as crashed", "count", n)
	}
}

func (s *Scheduler) runTokenCheck() {
	ctx := context.Background()
	defer s.SyncNextRunTimestamps()
	if err := s.runJob(ctx, JobTokenCheck, s.schedule.LockTTL, s.engine.ValidateTokens); err != nil {
		s.log.Error("scheduled token check failed", "error", err)
	}
}

func (s *Scheduler) runOrderSync() {
	ctx := context.Background()
	defer s.SyncNextRunTimestamps()
	err := s.runJob(ctx, JobOrderSync, s.schedule.LockTTL, func(ctx context.Context) error {
		_, err := s.engine.SyncAllOrders(ctx, s.schedule.OrderStatus, s.schedule.OrderDays)
		return err
	})
	if err != nil {
		s.log.Error("scheduled order sync failed", "error", err)
	}
}

// runJob runs fn under the job's lock and records the run. A lock held by
// another replica skips the run without error.
func (s *Scheduler) runJob(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if s.jobs == nil {
		return fn(ctx)
	}

	ok, err := s.jobs.AcquireSchedulerLock(ctx, name, s.holder, ttl)
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", name, err)
	}
	if !ok {
		metrics.SchedulerLockSkipsTotal.WithLabelValues(name).Inc()
		s.log.Info("job locked by another holder, skipping", "job", name)
		return nil
	}
	defer func() {
		if err := s.jobs.ReleaseSchedulerLock(ctx, name, s.holder); err != nil {
			s.log.Warn("releasing scheduler lock", "job", name, "error", err)
		}
	}()

	runID, err := s.jobs.InsertJobRun(ctx, name)
	if err != nil {
		return fmt.Errorf("recording start of %s: %w", name, err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	jobErr := fn(jobCtx)

	status, errText := store.JobSucceeded, ""
	if jobErr != nil {
		status, errText = store.JobFailed, jobErr.Error()
	}
	if err := s.jobs.CompleteJobRun(ctx, runID, status, errText, 0); err != nil {
		s.log.Warn("recording end of job", "job", name, "run_id", runID, "error", err)
	}
	return jobErr
}

func lockHolder() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}
