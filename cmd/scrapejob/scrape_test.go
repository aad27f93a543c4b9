package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fwojciec/scrapejob"
	main "github.com/fwojciec/scrapejob/cmd/scrapejob"
	"github.com/fwojciec/scrapejob/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints completed job as JSON", func(t *testing.T) {
		t.Parallel()

		var gotOpts scrapejob.ExtractionOptions
		polls := 0
		jobs := &mock.JobService{
			SubmitJobFn: func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
				gotOpts = opts
				return &scrapejob.Job{ID: "job-1", URL: url, Status: scrapejob.JobPending}, nil
			},
			FindJobByIDFn: func(ctx context.Context, id string) (*scrapejob.Job, error) {
				polls++
				if polls < 2 {
					return &scrapejob.Job{ID: id, Status: scrapejob.JobRunning}, nil
				}
				return &scrapejob.Job{
					ID:      id,
					Status:  scrapejob.JobCompleted,
					Results: &scrapejob.ExtractionResult{URL: "https://example.com", Title: "Example"},
				}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Jobs:   jobs,
		}
		cmd := &main.ScrapeCmd{URL: "https://example.com", Title: true, Selector: " h1 ", Poll: time.Millisecond}

		err := cmd.Run(deps)

		require.NoError(t, err)
		assert.True(t, gotOpts.ExtractTitle)
		assert.True(t, gotOpts.UseCustomSelector)
		assert.Equal(t, "h1", gotOpts.CustomSelector)
		assert.False(t, gotOpts.ExtractLinks)

		var job scrapejob.Job
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &job))
		assert.Equal(t, scrapejob.JobCompleted, job.Status)
		assert.Equal(t, "Example", job.Results.Title)
	})

	t.Run("returns error for failed job", func(t *testing.T) {
		t.Parallel()

		jobs := &mock.JobService{
			SubmitJobFn: func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
				return &scrapejob.Job{ID: "job-1", Status: scrapejob.JobPending}, nil
			},
			FindJobByIDFn: func(ctx context.Context, id string) (*scrapejob.Job, error) {
				return &scrapejob.Job{ID: id, Status: scrapejob.JobFailed, Error: "HTTP 404: Not Found"}, nil
			},
		}

		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Jobs: jobs}
		err := (&main.ScrapeCmd{URL: "https://example.com", Poll: time.Millisecond}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404: Not Found")
	})

	t.Run("reports rejected submission", func(t *testing.T) {
		t.Parallel()

		jobs := &mock.JobService{
			SubmitJobFn: func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
				return nil, scrapejob.Errorf(scrapejob.EINVALID, "URL must use HTTP or HTTPS protocol")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Jobs: jobs}
		err := (&main.ScrapeCmd{URL: "ftp://example.com"}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "URL must use HTTP or HTTPS protocol")
	})

	t.Run("cancels job when interrupted", func(t *testing.T) {
		t.Parallel()

		var cancelledID string
		jobs := &mock.JobService{
			SubmitJobFn: func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
				return &scrapejob.Job{ID: "job-7", Status: scrapejob.JobRunning}, nil
			},
			CancelJobFn: func(ctx context.Context, id string) (*scrapejob.Job, error) {
				cancelledID = id
				return &scrapejob.Job{ID: id, Status: scrapejob.JobCancelled, Error: scrapejob.CancelledByUser}, nil
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: ctx, Stdout: stdout, Stderr: &bytes.Buffer{}, Jobs: jobs}
		err := (&main.ScrapeCmd{URL: "https://example.com", Poll: time.Hour}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, "job-7", cancelledID)
		assert.Contains(t, stdout.String(), `"status": "cancelled"`)
	})
}

func TestMain_Run_Scrape(t *testing.T) {
	t.Parallel()

	t.Run("runs scrape against injected job service", func(t *testing.T) {
		t.Parallel()

		var gotURL string
		m := newMain(t)
		m.JobService = &mock.JobService{
			SubmitJobFn: func(ctx context.Context, url string, opts scrapejob.ExtractionOptions) (*scrapejob.Job, error) {
				gotURL = url
				return &scrapejob.Job{ID: "job-1", Status: scrapejob.JobCompleted, Results: &scrapejob.ExtractionResult{URL: url}}, nil
			},
		}

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"scrape", "--links", "https://example.com"}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", gotURL)
		assert.Contains(t, stdout.String(), `"status": "completed"`)
	})
}

func TestServeCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("shuts down when context is done", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		deps := &main.Dependencies{Ctx: ctx, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Jobs: &mock.JobService{}}
		err := (&main.ServeCmd{Addr: "127.0.0.1:0"}).Run(deps)

		require.NoError(t, err)
	})
}
