package helpers

import (
	"sync/atomic"
	"time"
)

// Limited linear backoff for retry delays on the half-duplex adapter link.
// First Failure() yields Start, each following one adds Step, capped at Max.
// Safe for concurrent use.
type Backoff struct {
	next int64 // atomic

	Start time.Duration
	Step  time.Duration
	Max   time.Duration
}

// Returns the delay to sleep before the next attempt and increases
// the delay for the one after.
func (b *Backoff) Failure() time.Duration {
	atomic.CompareAndSwapInt64(&b.next, 0, int64(b.Start))
	d := b.limit(time.Duration(atomic.LoadInt64(&b.next)))
	atomic.StoreInt64(&b.next, int64(d+b.Step))
	return d
}

func (b *Backoff) Reset() {
	atomic.StoreInt64(&b.next, int64(b.Start))
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Start {
		d = b.Start
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return d
}
