// Package repositories implements SQLite persistence for the sync caches.
//
// Two tables back the caches, both keyed by the Spotify track id:
//   - [MatchRepository] : confirmed Spotify→Tidal track matches
//   - [FailureRepository] : track ids whose catalog search found nothing
//
// [SyncCache] wraps both and maintains the invariant that a source id is
// never present in both tables at once: confirming a match deletes any
// recorded failure in the same transaction, and a failure is never recorded
// for an already-matched id.
package repositories
