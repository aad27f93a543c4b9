package scrape

import (
	"sync"
	"time"

	"github.com/fwojciec/scrapejob"
	"golang.org/x/time/rate"
)

// DefaultSubmitWindow is the minimum spacing between accepted submissions
// from one client.
const DefaultSubmitWindow = 5 * time.Second

var _ scrapejob.ClientLimiter = (*ClientLimiter)(nil)

// ClientLimiter allows one submission per client per window using token
// buckets with a burst of 1. Limiters idle for longer than the window are
// full again, so they are dropped and recreated on demand.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimit
	window    time.Duration
	lastPrune time.Time

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a ClientLimiter with the given window.
func NewClientLimiter(window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*clientLimit),
		window:  window,
		Now:     time.Now,
	}
}

// Allow reports whether client may submit now. When it may not, retryAfter
// is the time until its next submission is accepted.
func (l *ClientLimiter) Allow(client string) (bool, time.Duration) {
	now := l.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimit{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.clients[client] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of clients currently tracked.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// prune drops idle clients at most once per window. Must be called with mu held.
func (l *ClientLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	for client, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.window {
			delete(l.clients, client)
		}
	}
	l.lastPrune = now
}
