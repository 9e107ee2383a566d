package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ medprice.JobService = (*JobService)(nil)

// JobService implements medprice.JobService using SQLite.
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

	now := time.Now().UTC()
	job := &medprice.Job{
		ID:        uuid.New().String(),
		Query:     query,
		Status:    medprice.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, query, status, result_count, error, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', ?, ?)
	`, job.ID, job.Query, string(job.Status), formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}

	return job, nil
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*medprice.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
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
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")

	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
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
	cutoff := formatTime(time.Now().Add(-cooldown))

	job, err := scanJob(s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE (instr(lower(query), lower(?1)) > 0
				OR similarity(query, ?1) >= ?2)
			AND (status IN (?3, ?4) OR (status = ?5 AND created_at >= ?6))
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, query, medprice.JobSimilarityThreshold,
		string(medprice.JobPending), string(medprice.JobProcessing),
		string(medprice.JobCompleted), cutoff))
	if err == sql.ErrNoRows {
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
	return s.transition(ctx, id, medprice.JobCompleted, ", result_count = ?", resultCount)
}

// MarkFailed moves a pending or processing job to failed.
func (s *JobService) MarkFailed(ctx context.Context, id string, message string) error {
	return s.transition(ctx, id, medprice.JobFailed, ", error = ?", message)
}

// transition moves a job to next only if its current status allows it.
// The check and the write are a single statement.
func (s *JobService) transition(ctx context.Context, id string, next medprice.JobStatus, set string, value any) error {
	sources := next.Sources()

	args := []any{string(next), formatTime(time.Now())}
	if set != "" {
		args = append(args, value)
	}
	args = append(args, id)
	args = append(args, statusArgs(sources)...)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?`+set+`
		WHERE id = ? AND status IN (`+placeholders(len(sources))+`)
	`, args...)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	job, err := s.FindJobByID(ctx, id)
	if err != nil {
		return err
	}
	return medprice.Errorf(medprice.ECONFLICT, "job is %s, cannot move to %s", job.Status, next)
}

func scanJob(row scanner) (*medprice.Job, error) {
	var job medprice.Job
	var status, createdAt, updatedAt string

	if err := row.Scan(&job.ID, &job.Query, &status, &job.ResultCount, &job.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.Status = medprice.JobStatus(status)

	var err error
	if job.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &job, nil
}
