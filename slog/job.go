package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/scrapejob"
)

// Ensure LoggingJobService implements scrapejob.JobService.
var _ scrapejob.JobService = (*LoggingJobService)(nil)

// LoggingJobService wraps a JobService and logs state-changing calls.
// Reads are delegated without logging.
type LoggingJobService struct {
	next   scrapejob.JobService
	logger *slog.Logger
}

// NewLoggingJobService creates a new LoggingJobService.
func NewLoggingJobService(next scrapejob.JobService, logger *slog.Logger) *LoggingJobService {
	return &LoggingJobService{next: next, logger: logger}
}

// SubmitJob delegates to the wrapped service and logs the submission.
func (s *LoggingJobService) SubmitJob(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (job *scrapejob.Job, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", url, "duration", time.Since(begin)}
		if job != nil {
			attrs = append(attrs, "id", job.ID)
		}
		if err != nil {
			attrs = append(attrs, "err", err)
			s.logger.Warn("submit job", attrs...)
			return
		}
		s.logger.Info("submit job", attrs...)
	}(time.Now())
	return s.next.SubmitJob(ctx, url, opts)
}

// CancelJob delegates to the wrapped service and logs the outcome.
func (s *LoggingJobService) CancelJob(ctx context.Context, id string) (job *scrapejob.Job, err error) {
	defer func(begin time.Time) {
		attrs := []any{"id", id, "duration", time.Since(begin)}
		if job != nil {
			attrs = append(attrs, "status", job.Status)
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		s.logger.Info("cancel job", attrs...)
	}(time.Now())
	return s.next.CancelJob(ctx, id)
}

// FindJobByID delegates to the wrapped service.
func (s *LoggingJobService) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	return s.next.FindJobByID(ctx, id)
}

// ListJobs delegates to the wrapped service.
func (s *LoggingJobService) ListJobs(ctx context.Context, page, pageSize int) (*scrapejob.JobPage, error) {
	return s.next.ListJobs(ctx, page, pageSize)
}
