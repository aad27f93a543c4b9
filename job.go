package scrapejob

import (
	"context"
	"net/url"
	"time"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

// Job statuses. Pending and running are the only non-terminal states.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// CancelledByUser is the error text recorded on jobs cancelled through the API.
const CancelledByUser = "Cancelled by user"

// Job represents one fetch-and-extract request and its lifecycle record.
type Job struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Options     ExtractionOptions `json:"options"`
	Status      JobStatus         `json:"status"`
	Results     *ExtractionResult `json:"results,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// Validate returns an error if the job contains invalid fields.
func (j *Job) Validate() error {
	if err := ValidateURL(j.URL); err != nil {
		return err
	}
	return j.Options.Validate()
}

// ValidateURL returns EINVALID unless rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return Errorf(EINVALID, "URL required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Errorf(EINVALID, "Invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Errorf(EINVALID, "URL must use HTTP or HTTPS protocol")
	}
	return nil
}

// JobUpdate represents fields that can be updated on a job.
// Nil fields are left unchanged.
type JobUpdate struct {
	Status      *JobStatus        `json:"status"`
	Results     *ExtractionResult `json:"results"`
	Error       *string           `json:"error"`
	CompletedAt *time.Time        `json:"completedAt"`
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	Status *JobStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// JobPage is one page of jobs ordered newest first.
type JobPage struct {
	Jobs       []*Job `json:"jobs"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalCount int    `json:"totalCount"`
	HasNext    bool   `json:"hasNext"`
	HasPrev    bool   `json:"hasPrev"`
}

// Paging defaults for ListJobs.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps page and pageSize to usable values and returns the
// matching filter offset.
func NormalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// NewJobPage builds page metadata around a slice of jobs.
func NewJobPage(jobs []*Job, page, pageSize, total int) *JobPage {
	if jobs == nil {
		jobs = []*Job{}
	}
	return &JobPage{
		Jobs:       jobs,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasNext:    page*pageSize < total,
		HasPrev:    page > 1,
	}
}

// JobStore represents the job ledger.
// Implementations must be safe for concurrent use.
type JobStore interface {
	// CreateJob assigns an ID, pending status and creation time to job
	// and stores it.
	CreateJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, newest first, along with
	// the total number of matching jobs before pagination.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, int, error)

	// UpdateJob merges upd into the stored job. Last write wins.
	// Returns ENOTFOUND if job does not exist.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)
}

// JobService represents the job orchestration boundary used by transports.
type JobService interface {
	// SubmitJob validates the request, records a pending job and starts it
	// in the background. Returns EINVALID for bad input.
	SubmitJob(ctx context.Context, url string, opts ExtractionOptions) (*Job, error)

	// CancelJob requests cancellation of a pending or running job.
	// Returns ENOTFOUND for unknown jobs and ECONFLICT for terminal ones.
	CancelJob(ctx context.Context, id string) (*Job, error)

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// ListJobs returns one page of jobs, newest first.
	ListJobs(ctx context.Context, page, pageSize int) (*JobPage, error)
}
