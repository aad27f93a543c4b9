package prometheus

import (
	"context"

	"github.com/fwojciec/scrapejob"
)

var _ scrapejob.JobService = (*InstrumentedJobService)(nil)

// InstrumentedJobService counts submissions and cancellations by outcome.
type InstrumentedJobService struct {
	next    scrapejob.JobService
	metrics *Metrics
}

// NewInstrumentedJobService wraps next.
func NewInstrumentedJobService(next scrapejob.JobService, metrics *Metrics) *InstrumentedJobService {
	return &InstrumentedJobService{next: next, metrics: metrics}
}

// SubmitJob delegates to the wrapped service and counts the outcome.
func (s *InstrumentedJobService) SubmitJob(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
	job, err := s.next.SubmitJob(ctx, url, opts)
	s.metrics.Submissions.WithLabelValues(outcome(err)).Inc()
	return job, err
}

// CancelJob delegates to the wrapped service and counts the outcome.
func (s *InstrumentedJobService) CancelJob(ctx context.Context, id string) (*scrapejob.Job, error) {
	job, err := s.next.CancelJob(ctx, id)
	s.metrics.Cancellations.WithLabelValues(outcome(err)).Inc()
	return job, err
}

// FindJobByID delegates to the wrapped service.
func (s *InstrumentedJobService) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	return s.next.FindJobByID(ctx, id)
}

// ListJobs delegates to the wrapped service.
func (s *InstrumentedJobService) ListJobs(ctx context.Context, page, pageSize int) (*scrapejob.JobPage, error) {
	return s.next.ListJobs(ctx, page, pageSize)
}
