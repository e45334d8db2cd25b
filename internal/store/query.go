package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

const baseJobRunsSelect = `SELECT id, job_name, started_at, completed_at, status,
	COALESCE(error_text, ''), rows_affected
FROM job_runs`

// JobRunQuery defines optional filters for job run listings.
type JobRunQuery struct {
	JobName *string
	Status  *string
	// LatestOnly keeps the newest run per job name.
	LatestOnly bool
	Limit      int // default 50
}

// ToSQL builds the query and its positional parameters.
func (q *JobRunQuery) ToSQL() (string, []any) {
	var (
		conditions []string
		args       []any
	)
	paramIdx := 1

	if q.JobName != nil {
		conditions = append(conditions, fmt.Sprintf("job_name = $%d", paramIdx))
		args = append(args, *q.JobName)
		paramIdx++
	}

	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", paramIdx))
		args = append(args, *q.Status)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if q.LatestOnly {
		latest := strings.Replace(baseJobRunsSelect, "SELECT ", "SELECT DISTINCT ON (job_name) ", 1)
		return fmt.Sprintf(
			"SELECT * FROM (%s%s ORDER BY job_name, started_at DESC) latest ORDER BY started_at DESC LIMIT %d",
			latest, whereClause, limit,
		), args
	}

	return fmt.Sprintf(
		"%s%s ORDER BY started_at DESC LIMIT %d",
		baseJobRunsSelect, whereClause, limit,
	), args
}
