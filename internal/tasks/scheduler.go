package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
)

// retrySchedule is the fixed per-attempt backoff for transient search
// failures. A var so tests can shrink it.
var retrySchedule = []time.Duration{
	1 * time.Second,
	10 * time.Second,
	60 * time.Second,
	300 * time.Second,
	600 * time.Second,
}

type searchJob struct {
	index int
	track models.SourceTrack
}

type searchResult struct {
	track models.SourceTrack
	match *models.CatalogTrack
	err   error
}

// resolveTracks drives the catalog search over the unresolved set.
//
// Worker goroutines acquire a leaky-bucket permit before each catalog query,
// retried attempts included, so the number of in-flight searches never exceeds
// the concurrency ceiling and queries start no faster than the configured
// rate. Every outcome is written
// to the caches as it arrives. Any search error, including retry exhaustion,
// aborts the whole run.
func (e *Engine) resolveTracks(ctx context.Context, progress chan<- ProgressUpdate, unresolved []models.SourceTrack) (matched, failed int, err error) {
	if len(unresolved) == 0 {
		return 0, 0, nil
	}

	// Cancelling on return unblocks workers still waiting on a permit when
	// the run aborts early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := e.sync.MaxConcurrencyOrDefault()
	bucket := newLeakyBucket(concurrency, e.sync.RateLimitOrDefault())
	defer bucket.Stop()

	jobs := make(chan searchJob, len(unresolved))
	results := make(chan searchResult, len(unresolved))

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go e.searchWorker(ctx, &wg, bucket, jobs, results)
	}

	for i, track := range unresolved {
		jobs <- searchJob{index: i, track: track}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	e.sendProgress(progress, searchStartUpdate(len(unresolved)))

	completed := 0
	for res := range results {
		completed++

		if res.err != nil {
			e.logger.Error("search aborted",
				"track", res.track.Name,
				"artists", res.track.Artists,
				"album", res.track.Album,
				"err", res.err)
			return matched, failed, res.err
		}

		if res.match != nil {
			if err := e.cache.Confirm(res.track.ID, res.match.ID); err != nil {
				return matched, failed, err
			}
			matched++
			e.sendProgress(progress, trackMatchedUpdate(completed, len(unresolved), res.track))
		} else {
			if err := e.cache.Fail(res.track.ID); err != nil {
				return matched, failed, err
			}
			failed++
			e.logger.Info("no match found", "track", res.track.Name, "artists", res.track.Artists)
			e.sendProgress(progress, trackFailedUpdate(completed, len(unresolved), res.track))
		}
	}

	return matched, failed, nil
}

// searchWorker consumes jobs. Permit acquisition happens inside the search
// itself, one permit per catalog query.
func (e *Engine) searchWorker(ctx context.Context, wg *sync.WaitGroup, bucket *leakyBucket, jobs <-chan searchJob, results chan<- searchResult) {
	defer wg.Done()

	for job := range jobs {
		found, err := e.searchWithRetry(ctx, bucket, job.track)
		results <- searchResult{track: job.track, match: found, err: err}
		if err != nil {
			return
		}
	}
}

// searchWithRetry retries a single track's search on transient errors using
// the fixed backoff schedule. Non-transient errors are returned immediately;
// exhausting the schedule returns [shared.ErrRetriesExhausted].
func (e *Engine) searchWithRetry(ctx context.Context, bucket *leakyBucket, track models.SourceTrack) (*models.CatalogTrack, error) {
	var lastErr error

	for attempt := 0; attempt <= len(retrySchedule); attempt++ {
		found, err := e.searchTrack(ctx, bucket, track)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, shared.ErrTransient) {
			return nil, err
		}

		lastErr = err
		if attempt == len(retrySchedule) {
			break
		}

		delay := retrySchedule[attempt]
		e.logger.Warn("transient search failure, backing off",
			"track", track.Name, "attempt", attempt+1, "delay", delay, "err", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: search for %q failed %d times: %v",
		shared.ErrRetriesExhausted, track.Name, len(retrySchedule)+1, lastErr)
}
