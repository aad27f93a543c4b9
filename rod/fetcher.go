// Package rod provides a Fetcher that renders pages in headless Chrome.
package rod

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/scrapejob"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds a single page render.
const DefaultFetchTimeout = 30 * time.Second

// DefaultMaxPages is the number of pages rendered before Chrome is restarted.
// Chrome's memory baseline grows under sustained load and never drops back.
const DefaultMaxPages = 75

// Ensure Fetcher implements scrapejob.Fetcher at compile time.
var _ scrapejob.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	timeout   time.Duration
	userAgent string
	maxPages  int

	mu      sync.Mutex
	current *instance
	retired map[*instance]struct{}
	pages   int
	closed  bool
}

// instance is one launched Chrome process. A retired instance is closed
// once its last in-flight page finishes.
type instance struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	inflight int
	retired  bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the per-page render timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides the browser's User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxPages sets how many pages are rendered before the browser is
// recycled.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// NewFetcher launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: scrapejob.UserAgent,
		maxPages:  DefaultMaxPages,
		retired:   make(map[*instance]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	inst, err := launch()
	if err != nil {
		return nil, err
	}
	f.current = inst
	return f, nil
}

// Fetch navigates to url and returns the rendered HTML. A non-2xx status on
// the main document is reported as *scrapejob.HTTPError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", translate(ctx, err)
	}

	inst, browser, err := f.acquire()
	if err != nil {
		return "", err
	}
	defer f.release(inst)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", translate(ctx, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := (proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}).Call(page); err != nil {
		return "", translate(ctx, err)
	}

	var status int
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(url); err != nil {
		return "", translate(ctx, err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return "", translate(ctx, err)
	}
	if status != 0 && (status < 200 || status > 299) {
		return "", &scrapejob.HTTPError{StatusCode: status, Status: http.StatusText(status)}
	}

	if err := page.WaitLoad(); err != nil {
		return "", translate(ctx, err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", translate(ctx, err)
	}
	return html, nil
}

// Close shuts down every browser, including retired ones still draining.
// Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.current != nil {
		err = f.current.shutdown()
		f.current = nil
	}
	for inst := range f.retired {
		_ = inst.shutdown()
		delete(f.retired, inst)
	}
	return err
}

// LauncherPID returns the process ID of the current browser launcher, or
// zero after Close.
func (f *Fetcher) LauncherPID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.launcher == nil {
		return 0
	}
	return f.current.launcher.PID()
}

// Draining returns the number of retired browsers still finishing pages.
func (f *Fetcher) Draining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retired)
}

// acquire returns the browser for the next page and counts the page
// against the recycling budget.
func (f *Fetcher) acquire() (*instance, *rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil, scrapejob.Errorf(scrapejob.EINVALID, "fetcher is closed")
	}
	if f.maxPages > 0 && f.pages >= f.maxPages {
		f.recycle()
	}
	f.pages++
	f.current.inflight++
	return f.current, f.current.browser, nil
}

// release marks a page on inst as finished and closes inst if it was
// retired and this was its last page.
func (f *Fetcher) release(inst *instance) {
	f.mu.Lock()
	defer f.mu.Unlock()

	inst.inflight--
	if inst.retired && inst.inflight == 0 {
		if _, ok := f.retired[inst]; ok {
			delete(f.retired, inst)
			_ = inst.shutdown()
		}
	}
}

// recycle swaps in a fresh browser. The old one keeps serving the pages it
// already has and is closed by the last release. If the new browser cannot
// start the old one is kept. Must be called with mu held.
func (f *Fetcher) recycle() {
	inst, err := launch()
	if err != nil {
		return
	}

	old := f.current
	f.current = inst
	f.pages = 0

	if old == nil {
		return
	}
	if old.inflight == 0 {
		_ = old.shutdown()
		return
	}
	old.retired = true
	f.retired[old] = struct{}{}
}

// launch starts Chrome.
func launch() (*instance, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &instance{browser: browser, launcher: l}, nil
}

// shutdown closes the browser and kills its launcher.
func (inst *instance) shutdown() error {
	var err error
	if inst.browser != nil {
		err = inst.browser.Close()
		inst.browser = nil
	}
	if inst.launcher != nil {
		inst.launcher.Kill()
		inst.launcher = nil
	}
	return err
}

// translate maps context failures onto application error codes.
func translate(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return scrapejob.Errorf(scrapejob.ECANCELED, "Request cancelled")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return scrapejob.Errorf(scrapejob.ETIMEOUT, "Request timed out")
	}
	return err
}
