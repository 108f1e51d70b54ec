package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunamare/tidesync/internal/match"
	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
)

// searchTrack runs the two-stage catalog search for one source track.
//
// Stage 1 scopes the search to the source track's album: query by simplified
// album name and first album artist, and for each returned album that passes
// the similarity check, pick the entry at the source's track number. Stage 2
// falls back to a standalone track search, accepting the first candidate the
// matcher confirms. Returns nil without error when neither stage finds a
// match.
//
// Each stage acquires its own bucket permit, so the standalone fallback and
// every retried attempt count against the rate limit separately.
func (e *Engine) searchTrack(ctx context.Context, bucket *leakyBucket, track models.SourceTrack) (*models.CatalogTrack, error) {
	if track.Album != "" && len(track.AlbumArtists) > 0 {
		if err := bucket.Acquire(ctx); err != nil {
			return nil, err
		}
		found, err := e.searchByAlbum(ctx, track)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}

	if err := bucket.Acquire(ctx); err != nil {
		return nil, err
	}
	query := searchQuery(track.Name, track.Artists)
	candidates, err := e.catalog.SearchTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("track search %q: %w", query, err)
	}

	for _, candidate := range candidates {
		if match.Track(track, candidate) {
			return &candidate, nil
		}
	}
	return nil, nil
}

// searchByAlbum locates the source track at its known position inside a
// matching catalog album.
func (e *Engine) searchByAlbum(ctx context.Context, track models.SourceTrack) (*models.CatalogTrack, error) {
	query := searchQuery(track.Album, track.AlbumArtists)
	albums, err := e.catalog.SearchAlbums(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("album search %q: %w", query, err)
	}

	for _, album := range albums {
		if !match.AlbumSimilar(track.Album, track.AlbumArtists, album) {
			continue
		}
		if track.TrackNumber < 1 || album.NumTracks < track.TrackNumber {
			continue
		}

		tracks, err := e.catalog.AlbumTracks(ctx, album.ID)
		if err != nil {
			return nil, fmt.Errorf("album tracks %s: %w", album.ID, err)
		}

		// The album reported enough tracks but delivered fewer. Skip it.
		if len(tracks) < track.TrackNumber {
			e.logger.Warn("skipping album",
				"album", album.Name,
				"err", fmt.Errorf("%w: reported %d tracks, got %d",
					shared.ErrDataAnomaly, album.NumTracks, len(tracks)))
			continue
		}

		candidate := tracks[track.TrackNumber-1]
		if match.Track(track, candidate) {
			return &candidate, nil
		}
	}
	return nil, nil
}

// searchQuery builds a catalog query from a simplified title and first artist.
func searchQuery(name string, artists []string) string {
	parts := []string{match.Simplify(name)}
	if len(artists) > 0 {
		parts = append(parts, match.Simplify(artists[0]))
	}
	return strings.Join(parts, " ")
}
