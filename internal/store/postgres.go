package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

const defaultPoolSize = 5

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// Its methods are exercised by the integration tests against a real database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// Load returns the credential for p, inserting an empty one when absent.
func (s *PostgresStore) Load(ctx context.Context, p credential.Platform) (credential.Credential, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, queryGetCredential, string(p)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		c := credential.New(p)
		if err := s.Save(ctx, c); err != nil {
			return credential.Credential{}, fmt.Errorf("initializing %s credential: %w", p, err)
		}
		return c, nil
	}
	if err != nil {
		return credential.Credential{}, fmt.Errorf("getting %s credential: %w", p, err)
	}

	var c credential.Credential
	if err := json.Unmarshal(payload, &c); err != nil {
		return credential.Credential{}, fmt.Errorf("parsing %s credential: %w", p, err)
	}
	if c.Platform == "" {
		c.Platform = p
	}
	return c, nil
}

// Save upserts c by platform.
func (s *PostgresStore) Save(ctx context.Context, c credential.Credential) error {
	if c.Platform == "" {
		return errors.New("saving credential: platform is empty")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding %s credential: %w", c.Platform, err)
	}
	args := pgx.NamedArgs{
		"platform": string(c.Platform),
		"payload":  payload,
	}
	if _, err := s.pool.Exec(ctx, queryUpsertCredential, args); err != nil {
		return fmt.Errorf("saving %s credential: %w", c.Platform, err)
	}
	return nil
}

// Delete removes the credential for p. Deleting a missing row is not an error.
func (s *PostgresStore) Delete(ctx context.Context, p credential.Platform) error {
	if _, err := s.pool.Exec(ctx, queryDeleteCredential, string(p)); err != nil {
		return fmt.Errorf("deleting %s credential: %w", p, err)
	}
	return nil
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns job runs matching q, newest first.
func (s *PostgresStore) ListJobRuns(ctx context.Context, q *JobRunQuery) ([]JobRun, error) {
	if q == nil {
		q = &JobRunQuery{}
	}
	sql, args := q.ToSQL()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as 'crashed',
// then deletes all rows older than 30 days. Returns the number of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(ctx context.Context, jobName, holder string) error {
	if _, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder); err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]JobRun, error) {
	var runs []JobRun
	for rows.Next() {
		var r JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job runs: %w", err)
	}
	return runs, nil
}
