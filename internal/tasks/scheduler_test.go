package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
	tu "github.com/lunamare/tidesync/internal/testing"
)

func TestLeakyBucket(t *testing.T) {
	t.Run("initial pool holds the concurrency ceiling", func(t *testing.T) {
		bucket := newLeakyBucket(3, 1000)
		defer bucket.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		for i := 0; i < 3; i++ {
			if err := bucket.Acquire(ctx); err != nil {
				t.Fatalf("acquire %d failed: %v", i, err)
			}
		}
	})

	t.Run("acquire blocks until refill", func(t *testing.T) {
		bucket := newLeakyBucket(1, 100)
		defer bucket.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := bucket.Acquire(ctx); err != nil {
			t.Fatalf("first acquire failed: %v", err)
		}

		// Pool drained; the next permit comes from the refill goroutine.
		start := time.Now()
		if err := bucket.Acquire(ctx); err != nil {
			t.Fatalf("second acquire failed: %v", err)
		}
		if time.Since(start) > 500*time.Millisecond {
			t.Error("refill took far longer than the configured rate allows")
		}
	})

	t.Run("release count stays under the rate bound", func(t *testing.T) {
		const rateLimit = 50.0
		const window = 300 * time.Millisecond

		bucket := newLeakyBucket(2, rateLimit)
		defer bucket.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), window)
		defer cancel()

		acquired := 0
		for {
			if err := bucket.Acquire(ctx); err != nil {
				break
			}
			acquired++
		}

		// Permits over any window are bounded by rate*T plus the initial burst.
		bound := int(rateLimit*window.Seconds()) + 2 + 5
		if acquired > bound {
			t.Errorf("acquired %d permits in %v, bound is %d", acquired, window, bound)
		}
	})

	t.Run("acquire honors context cancellation", func(t *testing.T) {
		bucket := newLeakyBucket(1, 0.001)
		defer bucket.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := bucket.Acquire(ctx); err != nil {
			t.Fatalf("first acquire failed: %v", err)
		}

		shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer shortCancel()

		if err := bucket.Acquire(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("stop joins the refill goroutine", func(t *testing.T) {
		bucket := newLeakyBucket(2, 100)
		bucket.Stop()

		select {
		case <-bucket.done:
		default:
			t.Error("expected refill goroutine to have exited after Stop")
		}
	})
}

func TestSearchWithRetry(t *testing.T) {
	track := models.SourceTrack{ID: "sp1", Name: "Alpha", Artists: []string{"Band"}, DurationMS: 200000, ISRC: "ISRC1"}

	t.Run("retries transient errors then succeeds", func(t *testing.T) {
		shortRetries(t)

		var attempts atomic.Int32
		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				if attempts.Add(1) <= 2 {
					return nil, fmt.Errorf("%w: simulated outage", shared.ErrTransient)
				}
				return []models.CatalogTrack{
					{ID: "td1", Name: "Alpha", Artists: []string{"Band"}, Duration: 200, ISRC: "ISRC1", Available: true},
				}, nil
			},
		}

		engine := newTestEngine(t, nil, catalog)
		found, err := engine.searchWithRetry(context.Background(), testBucket(t), track)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found == nil || found.ID != "td1" {
			t.Errorf("expected td1 after retries, got %v", found)
		}
		if got := attempts.Load(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("exhausts the schedule and reports a fatal error", func(t *testing.T) {
		shortRetries(t)

		var attempts atomic.Int32
		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				attempts.Add(1)
				return nil, fmt.Errorf("%w: still down", shared.ErrRateLimited)
			},
		}

		engine := newTestEngine(t, nil, catalog)
		_, err := engine.searchWithRetry(context.Background(), testBucket(t), track)
		if !errors.Is(err, shared.ErrRetriesExhausted) {
			t.Fatalf("expected ErrRetriesExhausted, got %v", err)
		}
		if got := attempts.Load(); got != int32(len(retrySchedule))+1 {
			t.Errorf("expected %d attempts, got %d", len(retrySchedule)+1, got)
		}
	})

	t.Run("every retried attempt draws a fresh permit", func(t *testing.T) {
		shortRetries(t)

		var attempts atomic.Int32
		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				attempts.Add(1)
				return nil, fmt.Errorf("%w: still down", shared.ErrTransient)
			},
		}

		// One permit and effectively no refill: the first attempt consumes
		// the pool, so the retry must block on the limiter instead of
		// burning through the schedule unthrottled.
		bucket := newLeakyBucket(1, 0.001)
		defer bucket.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		engine := newTestEngine(t, nil, catalog)
		_, err := engine.searchWithRetry(ctx, bucket, track)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected the retry to block on the limiter, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("expected a single rate-limited attempt, got %d", got)
		}
	})

	t.Run("non-transient errors fail immediately", func(t *testing.T) {
		shortRetries(t)

		var attempts atomic.Int32
		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				attempts.Add(1)
				return nil, fmt.Errorf("%w: bad request", shared.ErrAPIRequest)
			},
		}

		engine := newTestEngine(t, nil, catalog)
		_, err := engine.searchWithRetry(context.Background(), testBucket(t), track)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("expected a single attempt, got %d", got)
		}
	})
}

func TestResolveTracks(t *testing.T) {
	t.Run("caches matches and failures", func(t *testing.T) {
		library := catalogLibrary()
		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				for _, track := range library {
					if len(query) >= len(track.Name) && query[:len(track.Name)] == track.Name {
						return []models.CatalogTrack{track}, nil
					}
				}
				return nil, nil
			},
		}

		engine := newTestEngine(t, nil, catalog)

		unresolved := append(sourceLibrary(),
			models.SourceTrack{ID: "sp-void", Name: "Nothing Here", Artists: []string{"Nobody"}, DurationMS: 100000})

		matched, failed, err := engine.resolveTracks(context.Background(), nil, unresolved)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if matched != 3 || failed != 1 {
			t.Errorf("expected 3 matched 1 failed, got %d/%d", matched, failed)
		}

		if _, ok, _ := engine.cache.Match("sp1"); !ok {
			t.Error("expected sp1 to be cached as matched")
		}
		has, _ := engine.cache.HasFailure("sp-void")
		if !has {
			t.Error("expected sp-void to be cached as failed")
		}
	})

	t.Run("aborts the run on retry exhaustion", func(t *testing.T) {
		shortRetries(t)

		catalog := &tu.MockCatalogService{
			SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
				return nil, fmt.Errorf("%w: catalog down", shared.ErrTransient)
			},
		}

		engine := newTestEngine(t, nil, catalog)

		_, _, err := engine.resolveTracks(context.Background(), nil, sourceLibrary())
		if !errors.Is(err, shared.ErrRetriesExhausted) {
			t.Fatalf("expected ErrRetriesExhausted, got %v", err)
		}
	})

	t.Run("empty set needs no work", func(t *testing.T) {
		engine := newTestEngine(t, nil, nil)

		matched, failed, err := engine.resolveTracks(context.Background(), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if matched != 0 || failed != 0 {
			t.Errorf("expected zero work, got %d/%d", matched, failed)
		}
	})
}
