// Package inmem provides in-memory storage implementations for scrapejob services.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fwojciec/scrapejob"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ scrapejob.JobStore = (*JobStore)(nil)

// JobStore implements scrapejob.JobStore with a mutex-guarded map.
// Records are copied on the way in and out, so callers never share
// memory with the ledger.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	seq  uint64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// entry pairs a stored job with its insertion sequence, used to order jobs
// created within the same clock tick.
type entry struct {
	job *scrapejob.Job
	seq uint64
}

// NewJobStore creates an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*entry),
		Now:  time.Now,
	}
}

// CreateJob assigns an ID, pending status and creation time, then stores a copy.
func (s *JobStore) CreateJob(ctx context.Context, job *scrapejob.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	job.ID = uuid.New().String()
	job.Status = scrapejob.JobPending
	job.Results = nil
	job.Error = ""
	job.CreatedAt = s.Now().UTC()
	job.CompletedAt = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.jobs[job.ID] = &entry{job: copyJob(job), seq: s.seq}
	return nil
}

// FindJobByID retrieves a job by ID.
func (s *JobStore) FindJobByID(ctx context.Context, id string) (*scrapejob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, scrapejob.Errorf(scrapejob.ENOTFOUND, "Job not found")
	}
	return copyJob(e.job), nil
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobStore) FindJobs(ctx context.Context, filter scrapejob.JobFilter) ([]*scrapejob.Job, int, error) {
	s.mu.RLock()
	matched := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		if filter.Status != nil && e.job.Status != *filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	jobs := make([]*scrapejob.Job, 0, len(matched))
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		return a.seq > b.seq
	})
	total := len(matched)
	for _, e := range paginate(matched, filter.Offset, filter.Limit) {
		jobs = append(jobs, copyJob(e.job))
	}
	s.mu.RUnlock()

	return jobs, total, nil
}

// UpdateJob merges upd into the stored job.
func (s *JobStore) UpdateJob(ctx context.Context, id string, upd scrapejob.JobUpdate) (*scrapejob.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, scrapejob.Errorf(scrapejob.ENOTFOUND, "Job not found")
	}

	job := copyJob(e.job)
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Results != nil {
		job.Results = upd.Results
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.CompletedAt != nil {
		t := *upd.CompletedAt
		job.CompletedAt = &t
	}
	e.job = job

	return copyJob(job), nil
}

// paginate applies offset and limit to a sorted slice. A limit of zero
// means no limit.
func paginate(entries []*entry, offset, limit int) []*entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// copyJob returns a shallow copy of job with its own CompletedAt.
// Results are never mutated after they are written, so they are shared.
func copyJob(job *scrapejob.Job) *scrapejob.Job {
	other := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		other.CompletedAt = &t
	}
	return &other
}
