// Package store defines the database abstraction for marketplace-sync:
// platform credentials for multi-host deployments, plus the job run history
// and scheduler locks used by the cron scheduler. Business logic depends on
// the interfaces here, never on the Postgres implementation.
package store

import (
	"context"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// Job run statuses.
const (
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobCrashed   = "crashed"
)

// JobRun is one execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

// JobStore records scheduled job runs and arbitrates which replica runs a job.
type JobStore interface {
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, q *JobRunQuery) ([]JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error
}

// Store is the full database surface.
type Store interface {
	credential.Store
	JobStore

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
