package scrape_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/scrapejob"
	"github.com/fwojciec/scrapejob/scrape"
	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestClientLimiter(t *testing.T) {
	t.Parallel()

	t.Run("implements scrapejob.ClientLimiter interface", func(t *testing.T) {
		t.Parallel()
		var _ scrapejob.ClientLimiter = scrape.NewClientLimiter(time.Second)
	})

	t.Run("allows first submission", func(t *testing.T) {
		t.Parallel()

		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = newFakeClock().Now

		ok, retryAfter := limiter.Allow("10.0.0.1")

		assert.True(t, ok)
		assert.Zero(t, retryAfter)
	})

	t.Run("rejects second submission within window", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = clock.Now

		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok)

		clock.Advance(2 * time.Second)
		ok, retryAfter := limiter.Allow("10.0.0.1")

		assert.False(t, ok)
		assert.InDelta(t, float64(3*time.Second), float64(retryAfter), float64(time.Millisecond))
	})

	t.Run("allows submission after window elapses", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = clock.Now

		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok)

		clock.Advance(5 * time.Second)
		ok, _ = limiter.Allow("10.0.0.1")

		assert.True(t, ok)
	})

	t.Run("rejected attempts do not extend the wait", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = clock.Now

		limiter.Allow("10.0.0.1")
		for range 3 {
			clock.Advance(time.Second)
			ok, _ := limiter.Allow("10.0.0.1")
			assert.False(t, ok)
		}
		clock.Advance(2*time.Second + time.Millisecond)
		ok, _ := limiter.Allow("10.0.0.1")

		assert.True(t, ok)
	})

	t.Run("different clients have independent limits", func(t *testing.T) {
		t.Parallel()

		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = newFakeClock().Now

		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok)
		ok, _ = limiter.Allow("10.0.0.2")
		assert.True(t, ok)
	})

	t.Run("prunes idle clients", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		limiter := scrape.NewClientLimiter(5 * time.Second)
		limiter.Now = clock.Now

		limiter.Allow("10.0.0.1")
		limiter.Allow("10.0.0.2")
		assert.Equal(t, 2, limiter.Len())

		clock.Advance(10 * time.Second)
		limiter.Allow("10.0.0.3")

		assert.Equal(t, 1, limiter.Len())
	})

	t.Run("admits exactly one of many concurrent submissions", func(t *testing.T) {
		t.Parallel()

		limiter := scrape.NewClientLimiter(time.Minute)
		limiter.Now = newFakeClock().Now

		var wg sync.WaitGroup
		var accepted atomic.Int32
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := limiter.Allow("10.0.0.1"); ok {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), accepted.Load())
	})
}
