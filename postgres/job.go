package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ medprice.JobService = (*JobService)(nil)

// JobService implements medprice.JobService using PostgreSQL.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

const jobColumns = "id, query, status, result_count, error, created_at, updated_at"

// CreateJob creates a new pending job.
func (s *JobService) CreateJob(ctx context.Context, query string) (*medprice.Job, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "job query required")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &medprice.Job{
		ID:        uuid.New().String(),
		Query:     query,
		Status:    medprice.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO jobs (id, query, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, job.ID, job.Query, string(job.Status), now)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*medprice.Job, error) {
	job, err := scanJob(s.db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, medprice.Errorf(medprice.ENOTFOUND, "job not found")
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobService) FindJobs(ctx context.Context, filter medprice.JobFilter) ([]*medprice.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + jobColumns + " FROM jobs WHERE 1=1")

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		fmt.Fprintf(&query, " AND status = $%d", len(args))
	}

	query.WriteString(" ORDER BY created_at DESC, seq DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&query, " OFFSET $%d", len(args))
	}

	rows, err := s.db.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*medprice.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// FindReusableJob returns the newest job for an equivalent query that is
// still active or completed within cooldown.
func (s *JobService) FindReusableJob(ctx context.Context, query string, cooldown time.Duration) (*medprice.Job, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "job query required")
	}

	job, err := scanJob(s.db.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE (strpos(lower(query), lower($1)) > 0
				OR similarity(query, $1) >= $2)
			AND (status IN ($3, $4) OR (status = $5 AND created_at >= $6))
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, query, medprice.JobSimilarityThreshold,
		string(medprice.JobPending), string(medprice.JobProcessing),
		string(medprice.JobCompleted), time.Now().Add(-cooldown).UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, medprice.Errorf(medprice.ENOTFOUND, "no reusable job")
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (s *JobService) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, medprice.JobProcessing, "", nil)
}

// MarkCompleted moves a processing job to completed.
func (s *JobService) MarkCompleted(ctx context.Context, id string, resultCount int) error {
	return s.transition(ctx, id, medprice.JobCompleted, "result_count", resultCount)
}

// MarkFailed moves a pending or processing job to failed.
func (s *JobService) MarkFailed(ctx context.Context, id string, message string) error {
	return s.transition(ctx, id, medprice.JobFailed, "error", message)
}

// transition moves a job to next only if its current status allows it.
func (s *JobService) transition(ctx context.Context, id string, next medprice.JobStatus, column string, value any) error {
	sources := make([]string, 0, 2)
	for _, st := range next.Sources() {
		sources = append(sources, string(st))
	}

	set := "status = $3, updated_at = $4"
	args := []any{id, sources, string(next), time.Now().UTC()}
	if column != "" {
		args = append(args, value)
		set += fmt.Sprintf(", %s = $%d", column, len(args))
	}

	tag, err := s.db.pool.Exec(ctx, `UPDATE jobs SET `+set+` WHERE id = $1 AND status = ANY($2)`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	job, err := s.FindJobByID(ctx, id)
	if err != nil {
		return err
	}
	return medprice.Errorf(medprice.ECONFLICT, "job is %s, cannot move to %s", job.Status, next)
}

func scanJob(row pgx.Row) (*medprice.Job, error) {
	var job medprice.Job
	var status string

	if err := row.Scan(&job.ID, &job.Query, &status, &job.ResultCount, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = medprice.JobStatus(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}
