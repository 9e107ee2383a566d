package medprice

import (
	"context"
	"time"
)

// DefaultJobCooldown is how long a completed job keeps suppressing new jobs
// for an equivalent query.
const DefaultJobCooldown = time.Hour

// JobSimilarityThreshold is the trigram similarity at which two job queries
// are considered the same request.
const JobSimilarityThreshold = 0.5

// JobStatus is the state of an enrichment job.
type JobStatus string

// Job states. Completed and failed are terminal.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether a job may move from s to next.
// Transitions only ever move forward: pending -> processing -> completed,
// with failed reachable from any non-terminal state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch next {
	case JobProcessing:
		return s == JobPending
	case JobCompleted:
		return s == JobProcessing
	case JobFailed:
		return s == JobPending || s == JobProcessing
	}
	return false
}

// Sources returns the statuses a job may move to s from.
func (s JobStatus) Sources() []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{JobPending, JobProcessing, JobCompleted, JobFailed} {
		if from.CanTransition(s) {
			out = append(out, from)
		}
	}
	return out
}

// Job is an asynchronous enrichment request for one query.
type Job struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Status      JobStatus `json:"status"`
	ResultCount int       `json:"resultCount"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// JobReport is the progress view of a job exposed to pollers.
type JobReport struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Status      JobStatus `json:"status"`
	ResultCount int       `json:"resultCount"`
	Error       string    `json:"error,omitempty"`
}

// Report returns the poller view of the job.
func (j *Job) Report() *JobReport {
	return &JobReport{
		ID:          j.ID,
		Query:       j.Query,
		Status:      j.Status,
		ResultCount: j.ResultCount,
		Error:       j.Error,
	}
}

// QueryMatches reports whether a stored job query answers query: the stored
// query contains query ignoring case, or they are trigram-similar. A stored
// query that is merely part of query does not match by itself.
func QueryMatches(stored, query string) bool {
	if ContainsFold(stored, query) {
		return true
	}
	return Similarity(stored, query) >= JobSimilarityThreshold
}

// JobReader reads job progress. It never mutates jobs.
type JobReader interface {
	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if the job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, newest first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
}

// JobService represents the ledger of enrichment jobs.
type JobService interface {
	JobReader

	// FindReusableJob returns the newest job for an equivalent query that is
	// pending or processing, or completed no longer than cooldown ago.
	// Returns ENOTFOUND if there is none.
	FindReusableJob(ctx context.Context, query string, cooldown time.Duration) (*Job, error)

	// CreateJob creates a new pending job for query.
	CreateJob(ctx context.Context, query string) (*Job, error)

	// MarkProcessing moves a pending job to processing.
	// Returns ENOTFOUND for unknown jobs and ECONFLICT if the job is not pending.
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted moves a processing job to completed with its result count.
	MarkCompleted(ctx context.Context, id string, resultCount int) error

	// MarkFailed moves a pending or processing job to failed.
	MarkFailed(ctx context.Context, id string, message string) error
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	Status *JobStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
