// Package scrape runs fetch-and-extract jobs. It owns the job lifecycle:
// submission, background execution, cooperative cancellation and the
// terminal writes back into the job ledger.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/scrapejob"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchTimeout bounds the total time a job may spend fetching.
const DefaultFetchTimeout = 30 * time.Second

// ShutdownMessage is recorded on jobs cancelled because the orchestrator closed.
const ShutdownMessage = "Cancelled: shutting down"

var (
	errCancelledByUser = errors.New(scrapejob.CancelledByUser)
	errShutdown        = errors.New("orchestrator shutting down")
)

var _ scrapejob.JobService = (*Orchestrator)(nil)

// Orchestrator implements scrapejob.JobService. Each submitted job runs in
// its own goroutine; the caller observes progress through the job store.
type Orchestrator struct {
	store        scrapejob.JobStore
	fetcher      scrapejob.Fetcher
	extractor    scrapejob.Extractor
	logger       *slog.Logger
	fetchTimeout time.Duration
	now          func() time.Time

	// ctx is the parent of every job context; cancelling it stops all jobs.
	ctx    context.Context
	cancel context.CancelCauseFunc
	group  errgroup.Group

	// mu guards handles, active and closed, and serialises every status
	// write made on behalf of a live job so a terminal record is written
	// exactly once.
	mu      sync.Mutex
	idle    *sync.Cond
	handles map[string]context.CancelCauseFunc
	active  int
	closed  bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFetchTimeout sets the per-job fetch timeout.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.fetchTimeout = d
	}
}

// WithLogger sets the logger used for job lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator. Close must be called to stop
// in-flight jobs.
func NewOrchestrator(store scrapejob.JobStore, fetcher scrapejob.Fetcher, extractor scrapejob.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		fetcher:      fetcher,
		extractor:    extractor,
		logger:       slog.New(slog.DiscardHandler),
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		handles:      make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.idle = sync.NewCond(&o.mu)
	o.ctx, o.cancel = context.WithCancelCause(context.Background())
	return o
}

// SubmitJob validates the request, records a pending job and starts it in
// the background. It returns as soon as the job is recorded.
func (o *Orchestrator) SubmitJob(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
	if err := scrapejob.ValidateURL(url); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, scrapejob.Errorf(scrapejob.ECONFLICT, "service is shutting down")
	}

	job := &scrapejob.Job{URL: url, Options: opts}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancelCause(o.ctx)
	o.handles[job.ID] = cancel
	o.active++

	submitted := *job
	o.group.Go(func() error {
		defer cancel(nil)
		o.run(jobCtx, &submitted)
		return nil
	})

	return job, nil
}

// CancelJob signals the job's execution unit and records the cancellation.
// Callers should re-read the job afterwards: a unit already past its last
// I/O finishes extraction but its result is discarded.
//
// Terminal records are never overwritten. A cancel that arrives after the
// unit has written completed or failed returns ECONFLICT and leaves that
// record in place.
func (o *Orchestrator) CancelJob(ctx context.Context, id string) (*scrapejob.Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.store.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, scrapejob.Errorf(scrapejob.ECONFLICT, "Job is already %s", job.Status)
	}

	if cancel, ok := o.handles[id]; ok {
		cancel(errCancelledByUser)
		delete(o.handles, id)
	}

	return o.store.UpdateJob(ctx, id, o.terminal(scrapejob.JobCancelled, nil, scrapejob.CancelledByUser))
}

// FindJobByID retrieves a job by ID.
func (o *Orchestrator) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	return o.store.FindJobByID(ctx, id)
}

// ListJobs returns one page of jobs, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context, page, pageSize int) (*scrapejob.JobPage, error) {
	page, pageSize, offset := scrapejob.NormalizePage(page, pageSize)
	jobs, total, err := o.store.FindJobs(ctx, scrapejob.JobFilter{Offset: offset, Limit: pageSize})
	if err != nil {
		return nil, err
	}
	return scrapejob.NewJobPage(jobs, page, pageSize, total), nil
}

// Wait blocks until no execution unit is in flight. It is safe to call while
// other goroutines submit jobs.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.active > 0 {
		o.idle.Wait()
	}
}

// Close stops accepting submissions, cancels in-flight jobs and waits for
// their execution units to record the outcome.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel(errShutdown)
	_ = o.group.Wait()
	return nil
}

// run is the execution unit for one job. It never returns an error: every
// outcome is converted into a terminal write.
func (o *Orchestrator) run(ctx context.Context, job *scrapejob.Job) {
	begin := time.Now()
	defer o.release(job.ID)
	defer func() {
		if r := recover(); r != nil {
			o.finish(ctx, job.ID, o.terminal(scrapejob.JobFailed, nil, fmt.Sprintf("internal error: %v", r)), begin)
		}
	}()

	if !o.markRunning(ctx, job.ID) {
		o.finish(ctx, job.ID, o.terminal(scrapejob.JobCancelled, nil, cancelMessage(ctx)), begin)
		return
	}

	result, err := o.execute(ctx, job)
	switch {
	case err == nil:
		o.finish(ctx, job.ID, o.terminal(scrapejob.JobCompleted, result, ""), begin)
	case ctx.Err() != nil || scrapejob.ErrorCode(err) == scrapejob.ECANCELED:
		o.finish(ctx, job.ID, o.terminal(scrapejob.JobCancelled, nil, cancelMessage(ctx)), begin)
	default:
		o.finish(ctx, job.ID, o.terminal(scrapejob.JobFailed, nil, failureMessage(err)), begin)
	}
}

// execute fetches and extracts the job's document.
func (o *Orchestrator) execute(ctx context.Context, job *scrapejob.Job) (*scrapejob.ExtractionResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	html, err := o.fetcher.Fetch(fetchCtx, job.URL)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := o.extractor.Extract(html, job.URL, job.Options)
	if err != nil {
		return nil, err
	}
	result.ContentHash = fmt.Sprintf("%016x", xxhash.Sum64String(html))
	return result, nil
}

// markRunning records the pending to running transition. It reports false
// when the job was cancelled before its unit started.
func (o *Orchestrator) markRunning(ctx context.Context, id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.handles[id]; !ok || ctx.Err() != nil {
		return false
	}
	running := scrapejob.JobRunning
	if _, err := o.store.UpdateJob(context.Background(), id, scrapejob.JobUpdate{Status: &running}); err != nil {
		o.logger.Error("mark job running", "id", id, "err", err)
		return false
	}
	return true
}

// finish writes a terminal update unless one was already written for id.
// A missing handle means CancelJob got there first.
func (o *Orchestrator) finish(ctx context.Context, id string, upd scrapejob.JobUpdate, begin time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.handles[id]; !ok {
		o.logger.Info("job finished", "id", id, "status", scrapejob.JobCancelled, "duration", time.Since(begin))
		return
	}
	delete(o.handles, id)

	// The job context may already be cancelled; the ledger write must not be.
	if _, err := o.store.UpdateJob(context.WithoutCancel(ctx), id, upd); err != nil {
		o.logger.Error("record job outcome", "id", id, "err", err)
		return
	}
	o.logger.Info("job finished",
		"id", id,
		"status", *upd.Status,
		"duration", time.Since(begin),
	)
}

// release removes the handle for id so it can never be signalled again,
// and wakes Wait once the last unit is done.
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.handles, id)
	o.active--
	if o.active == 0 {
		o.idle.Broadcast()
	}
}

// terminal builds the update for a terminal transition.
func (o *Orchestrator) terminal(status scrapejob.JobStatus, result *scrapejob.ExtractionResult, msg string) scrapejob.JobUpdate {
	now := o.now().UTC()
	upd := scrapejob.JobUpdate{Status: &status, CompletedAt: &now}
	if result != nil {
		upd.Results = result
	}
	if msg != "" {
		upd.Error = &msg
	}
	return upd
}

// cancelMessage explains why ctx was cancelled.
func cancelMessage(ctx context.Context) string {
	if errors.Is(context.Cause(ctx), errShutdown) {
		return ShutdownMessage
	}
	return scrapejob.CancelledByUser
}

// failureMessage returns the text recorded on failed jobs. Application
// errors contribute their message; anything else its full error string.
func failureMessage(err error) string {
	if scrapejob.ErrorCode(err) != scrapejob.EINTERNAL {
		return scrapejob.ErrorMessage(err)
	}
	return err.Error()
}
