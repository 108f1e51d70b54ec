package tasks

import (
	"context"
	"math"
	"time"
)

// leakyBucket bounds both how many searches may be outstanding and how fast
// new ones may start.
//
// The permit pool starts full at the concurrency ceiling. Workers drain it
// before each search attempt; a background refill goroutine wakes at a fixed
// short interval and releases round(rate * elapsed) permits based on wall
// clock. Refill sends are non-blocking, so the pool never grows past its
// capacity. Stop cancels and joins the refill goroutine.
type leakyBucket struct {
	permits chan struct{}
	rate    float64
	cancel  context.CancelFunc
	done    chan struct{}
}

// newLeakyBucket creates a bucket with concurrency permits refilled at
// rateLimit permits per second.
func newLeakyBucket(concurrency int, rateLimit float64) *leakyBucket {
	ctx, cancel := context.WithCancel(context.Background())

	b := &leakyBucket{
		permits: make(chan struct{}, concurrency),
		rate:    rateLimit,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for range concurrency {
		b.permits <- struct{}{}
	}

	// Waking at a quarter of the per-permit interval smooths bursts.
	interval := time.Duration(float64(concurrency) / rateLimit / 4 * float64(time.Second))
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	go b.refill(ctx, interval)

	return b
}

// Acquire takes one permit, blocking until the refill goroutine releases one
// or the context is done.
func (b *leakyBucket) Acquire(ctx context.Context) error {
	select {
	case <-b.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the refill goroutine and waits for it to exit.
func (b *leakyBucket) Stop() {
	b.cancel()
	<-b.done
}

func (b *leakyBucket) refill(ctx context.Context, interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			n := int(math.Round(b.rate * elapsed))
			for range n {
				select {
				case b.permits <- struct{}{}:
				default:
					// Pool full, drop the permit.
				}
			}
		}
	}
}
