package mock

import (
	"time"

	"github.com/fwojciec/scrapejob"
)

var _ scrapejob.ClientLimiter = (*ClientLimiter)(nil)

// ClientLimiter is a mock implementation of scrapejob.ClientLimiter.
type ClientLimiter struct {
	AllowFn func(client string) (bool, time.Duration)
}

func (l *ClientLimiter) Allow(client string) (bool, time.Duration) {
	return l.AllowFn(client)
}
