// Package tasks implements the sync pipeline between a Spotify source and a
// Tidal target.
//
// The core abstraction is [Engine], which owns one sync run: fetch both
// collections, reconcile them against the persistent match/failure caches,
// resolve the remainder through rate-limited concurrent catalog searches,
// and apply the minimal mutation to the target.
//
// Pipeline stages, in order:
//   - [Engine.Prepopulate] pairs already-overlapping tracks without touching the network
//   - the search scheduler drives the two-stage catalog search over the unresolved set, bounded by a leaky-bucket limiter and a worker pool, with fixed-schedule retry on transient errors
//   - [DesiredTrackIDs] resolves the source order through the match cache and deduplicates
//   - [PlanUpdate] picks no-op, append, or full replace against the target's current order
//
// Operations emit [ProgressUpdate] values via channels for non-blocking
// status reporting to CLI/UI layers.
package tasks
