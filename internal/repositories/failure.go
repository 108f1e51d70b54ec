package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lunamare/tidesync/internal/shared"
)

// FailureRepository persists Spotify track ids whose catalog search found nothing.
//
// A cached failure suppresses re-searching the track on later runs until the
// failure cache is cleared.
type FailureRepository struct {
	db *sql.DB
}

// NewFailureRepository creates a new FailureRepository with the given database connection
func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Has reports whether a failure is recorded for the Spotify track id.
func (r *FailureRepository) Has(sourceID string) (bool, error) {
	var one int
	err := r.db.QueryRow(
		"SELECT 1 FROM search_failures WHERE source_id = ?", sourceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query failure: %w", err)
	}
	return true, nil
}

// Put records a failure for the Spotify track id. Recording the same id
// twice is a no-op.
func (r *FailureRepository) Put(sourceID string) error {
	query := `
		INSERT INTO search_failures (id, source_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO NOTHING
	`

	if _, err := r.db.Exec(query, shared.GenerateID(), sourceID, time.Now()); err != nil {
		return fmt.Errorf("failed to insert failure: %w", err)
	}
	return nil
}

// Delete removes the failure for a Spotify track id if one exists.
func (r *FailureRepository) Delete(sourceID string) error {
	if _, err := r.db.Exec("DELETE FROM search_failures WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete failure: %w", err)
	}
	return nil
}

// Count returns the number of cached failures.
func (r *FailureRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM search_failures").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

// Clear removes all cached failures so the next sync retries them.
func (r *FailureRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM search_failures"); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}
	return nil
}
