package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/scrapejob"
)

// Run executes the scrape command. Interrupting it cancels the job.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	job, err := deps.Jobs.SubmitJob(deps.Ctx, c.URL, c.options())
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", scrapejob.ErrorMessage(err))
		return err
	}

	if job, err = c.await(deps, job); err != nil {
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return err
	}

	if job.Status != scrapejob.JobCompleted {
		return fmt.Errorf("job %s: %s", job.Status, job.Error)
	}
	return nil
}

// await polls until job is terminal, cancelling it if the context ends first.
func (c *ScrapeCmd) await(deps *Dependencies, job *scrapejob.Job) (*scrapejob.Job, error) {
	interval := c.Poll
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var err error
	for !job.Status.IsTerminal() {
		select {
		case <-deps.Ctx.Done():
			ctx := context.WithoutCancel(deps.Ctx)
			if cancelled, cerr := deps.Jobs.CancelJob(ctx, job.ID); cerr == nil {
				return cancelled, nil
			}
			return deps.Jobs.FindJobByID(ctx, job.ID)
		case <-ticker.C:
			if job, err = deps.Jobs.FindJobByID(deps.Ctx, job.ID); err != nil {
				return nil, err
			}
		}
	}
	return job, nil
}

func (c *ScrapeCmd) options() scrapejob.ExtractionOptions {
	selector := strings.TrimSpace(c.Selector)
	return scrapejob.ExtractionOptions{
		ExtractTitle:      c.Title,
		ExtractLinks:      c.Links,
		ExtractImages:     c.Images,
		ExtractHeadings:   c.Headings,
		UseCustomSelector: selector != "",
		CustomSelector:    selector,
	}
}
