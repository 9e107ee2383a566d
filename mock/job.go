package mock

import (
	"context"
	"time"

	"github.com/fwojciec/medprice"
)

var _ medprice.JobService = (*JobService)(nil)

// JobService is a mock implementation of medprice.JobService.
type JobService struct {
	FindJobByIDFn     func(ctx context.Context, id string) (*medprice.Job, error)
	FindJobsFn        func(ctx context.Context, filter medprice.JobFilter) ([]*medprice.Job, error)
	FindReusableJobFn func(ctx context.Context, query string, cooldown time.Duration) (*medprice.Job, error)
	CreateJobFn       func(ctx context.Context, query string) (*medprice.Job, error)
	MarkProcessingFn  func(ctx context.Context, id string) error
	MarkCompletedFn   func(ctx context.Context, id string, resultCount int) error
	MarkFailedFn      func(ctx context.Context, id string, message string) error
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*medprice.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter medprice.JobFilter) ([]*medprice.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobService) FindReusableJob(ctx context.Context, query string, cooldown time.Duration) (*medprice.Job, error) {
	return s.FindReusableJobFn(ctx, query, cooldown)
}

func (s *JobService) CreateJob(ctx context.Context, query string) (*medprice.Job, error) {
	return s.CreateJobFn(ctx, query)
}

func (s *JobService) MarkProcessing(ctx context.Context, id string) error {
	return s.MarkProcessingFn(ctx, id)
}

func (s *JobService) MarkCompleted(ctx context.Context, id string, resultCount int) error {
	return s.MarkCompletedFn(ctx, id, resultCount)
}

func (s *JobService) MarkFailed(ctx context.Context, id string, message string) error {
	return s.MarkFailedFn(ctx, id, message)
}
