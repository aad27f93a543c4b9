package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/scrapejob"
)

var _ scrapejob.Fetcher = (*InstrumentedFetcher)(nil)

// InstrumentedFetcher observes fetch durations by outcome.
type InstrumentedFetcher struct {
	next    scrapejob.Fetcher
	metrics *Metrics
}

// NewInstrumentedFetcher wraps next.
func NewInstrumentedFetcher(next scrapejob.Fetcher, metrics *Metrics) *InstrumentedFetcher {
	return &InstrumentedFetcher{next: next, metrics: metrics}
}

// Fetch delegates to the wrapped fetcher and records its duration.
func (f *InstrumentedFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.metrics.FetchDuration.WithLabelValues(outcome(err)).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *InstrumentedFetcher) Close() error {
	return f.next.Close()
}
