package repositories

import (
	"database/sql"
	"fmt"
)

// SyncCache is the combined view of the match and failure caches used by a
// sync run.
//
// Invariant: a source id is never present in both tables. Confirm removes
// any recorded failure in the same transaction as the match insert, and
// Fail is a no-op for an already-matched id.
type SyncCache struct {
	db       *sql.DB
	Matches  *MatchRepository
	Failures *FailureRepository
}

// NewSyncCache creates a SyncCache over the given database connection.
func NewSyncCache(db *sql.DB) *SyncCache {
	return &SyncCache{
		db:       db,
		Matches:  NewMatchRepository(db),
		Failures: NewFailureRepository(db),
	}
}

// Match retrieves the cached Tidal id for a Spotify track id.
func (c *SyncCache) Match(sourceID string) (string, bool, error) {
	return c.Matches.Get(sourceID)
}

// HasFailure reports whether the Spotify track id has a cached search failure.
func (c *SyncCache) HasFailure(sourceID string) (bool, error) {
	return c.Failures.Has(sourceID)
}

// Confirm records a match and clears any cached failure for the id atomically.
func (c *SyncCache) Confirm(sourceID, catalogID string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putMatch(tx, sourceID, catalogID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM search_failures WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to clear failure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}
	return nil
}

// Fail records a search failure unless the id already has a match.
func (c *SyncCache) Fail(sourceID string) error {
	_, matched, err := c.Matches.Get(sourceID)
	if err != nil {
		return err
	}
	if matched {
		return nil
	}
	return c.Failures.Put(sourceID)
}

// CacheStats summarizes cache contents for CLI reporting.
type CacheStats struct {
	Matches  int
	Failures int
}

// Stats returns row counts for both caches.
func (c *SyncCache) Stats() (CacheStats, error) {
	matches, err := c.Matches.Count()
	if err != nil {
		return CacheStats{}, err
	}
	failures, err := c.Failures.Count()
	if err != nil {
		return CacheStats{}, err
	}
	return CacheStats{Matches: matches, Failures: failures}, nil
}
