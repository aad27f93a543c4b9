package mock

import (
	"context"

	"github.com/fwojciec/scrapejob"
)

var _ scrapejob.JobStore = (*JobStore)(nil)

// JobStore is a mock implementation of scrapejob.JobStore.
type JobStore struct {
	CreateJobFn   func(ctx context.Context, job *scrapejob.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*scrapejob.Job, error)
	FindJobsFn    func(ctx context.Context, filter scrapejob.JobFilter) ([]*scrapejob.Job, int, error)
	UpdateJobFn   func(ctx context.Context, id string, upd scrapejob.JobUpdate) (*scrapejob.Job, error)
}

func (s *JobStore) CreateJob(ctx context.Context, job *scrapejob.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobStore) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobStore) FindJobs(ctx context.Context, filter scrapejob.JobFilter) ([]*scrapejob.Job, int, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobStore) UpdateJob(ctx context.Context, id string, upd scrapejob.JobUpdate) (*scrapejob.Job, error) {
	return s.UpdateJobFn(ctx, id, upd)
}

var _ scrapejob.JobService = (*JobService)(nil)

// JobService is a mock implementation of scrapejob.JobService.
type JobService struct {
	SubmitJobFn   func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error)
	CancelJobFn   func(ctx context.Context, id string) (*scrapejob.Job, error)
	FindJobByIDFn func(ctx context.Context, id string) (*scrapejob.Job, error)
	ListJobsFn    func(ctx context.Context, page, pageSize int) (*scrapejob.JobPage, error)
}

func (s *JobService) SubmitJob(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
	return s.SubmitJobFn(ctx, url, opts)
}

func (s *JobService) CancelJob(ctx context.Context, id string) (*scrapejob.Job, error) {
	return s.CancelJobFn(ctx, id)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context, page, pageSize int) (*scrapejob.JobPage, error) {
	return s.ListJobsFn(ctx, page, pageSize)
}
