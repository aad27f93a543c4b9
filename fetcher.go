package scrapejob

import (
	"context"
	"time"
)

// UserAgent identifies the tool to remote servers.
const UserAgent = "Mozilla/5.0 (compatible; WebScraper/1.0)"

// Fetcher retrieves raw HTML from URLs.
type Fetcher interface {
	// Fetch retrieves the document at url.
	// The context controls timeout and cancellation: implementations return
	// ETIMEOUT when its deadline passes, ECANCELED when it is cancelled, and
	// *HTTPError for non-2xx responses.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// ClientLimiter gates submissions per client identity.
type ClientLimiter interface {
	// Allow reports whether client may submit now. When it may not,
	// retryAfter is the time until the next submission is accepted.
	Allow(client string) (ok bool, retryAfter time.Duration)
}
