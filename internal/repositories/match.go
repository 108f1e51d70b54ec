package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lunamare/tidesync/internal/shared"
)

// MatchRepository persists confirmed Spotify→Tidal track matches.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Get retrieves the Tidal track id matched to a Spotify track id.
// The second return value reports whether a match exists.
func (r *MatchRepository) Get(sourceID string) (string, bool, error) {
	var catalogID string
	err := r.db.QueryRow(
		"SELECT catalog_id FROM track_matches WHERE source_id = ?", sourceID,
	).Scan(&catalogID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query match: %w", err)
	}
	return catalogID, true, nil
}

// Put inserts or updates the match for a Spotify track id.
func (r *MatchRepository) Put(sourceID, catalogID string) error {
	return putMatch(r.db, sourceID, catalogID)
}

// Delete removes the match for a Spotify track id if one exists.
func (r *MatchRepository) Delete(sourceID string) error {
	if _, err := r.db.Exec("DELETE FROM track_matches WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return nil
}

// Count returns the number of cached matches.
func (r *MatchRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM track_matches").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// Clear removes all cached matches.
func (r *MatchRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM track_matches"); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}
	return nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putMatch(e execer, sourceID, catalogID string) error {
	query := `
		INSERT INTO track_matches (id, source_id, catalog_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET catalog_id = excluded.catalog_id, updated_at = excluded.updated_at
	`

	now := time.Now()
	if _, err := e.Exec(query, shared.GenerateID(), sourceID, catalogID, now, now); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}
