package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/marketplace-sync/internal/store"
)

// JobsProvider defines the store methods required by the jobs handler.
type JobsProvider interface {
	ListJobRuns(ctx context.Context, q *store.JobRunQuery) ([]store.JobRun, error)
}

// JobsHandler handles scheduler job history requests.
type JobsHandler struct {
	store JobsProvider
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(s JobsProvider) *JobsHandler {
	return &JobsHandler{store: s}
}

// ListJobsOutput is the response body for listing the latest job runs.
type ListJobsOutput struct {
	Body []store.JobRun
}

// GetJobHistoryInput selects one job's history.
type GetJobHistoryInput struct {
	JobName string `path:"job_name" doc:"Scheduled job name (token-check or order-sync)"`
	Status  string `query:"status" enum:"running,succeeded,failed,crashed" doc:"Only runs in this status"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"500" doc:"Maximum runs to return"`
}

// GetJobHistoryOutput is the response body for a single job's history.
type GetJobHistoryOutput struct {
	Body []store.JobRun
}

// ListJobs returns the most recent run for each distinct scheduler job.
func (h *JobsHandler) ListJobs(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("job history requires a database")
	}
	runs, err := h.store.ListJobRuns(ctx, &store.JobRunQuery{LatestOnly: true})
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs failed: " + err.Error())
	}
	if runs == nil {
		runs = []store.JobRun{}
	}
	return &ListJobsOutput{Body: runs}, nil
}

// GetJobHistory returns the run history of one scheduler job, newest first.
func (h *JobsHandler) GetJobHistory(
	ctx context.Context,
	input *GetJobHistoryInput,
) (*GetJobHistoryOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("job history requires a database")
	}
	q := &store.JobRunQuery{JobName: &input.JobName, Limit: input.Limit}
	if input.Status != "" {
		q.Status = &input.Status
	}
	runs, err := h.store.ListJobRuns(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching job history failed: " + err.Error())
	}
	if runs == nil {
		runs = []store.JobRun{}
	}
	return &GetJobHistoryOutput{Body: runs}, nil
}

// RegisterJobRoutes registers scheduler job endpoints with the Huma API.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List latest scheduler job runs",
		Description: "Returns the most recent run record for each scheduled job.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError, http.StatusServiceUnavailable},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{job_name}",
		Summary:     "Get scheduler job history",
		Description: "Returns the run history of a scheduled job, newest first.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError, http.StatusServiceUnavailable},
	}, h.GetJobHistory)
}
