// package models defines the data model for the playlist reconciliation service
package models

// SourceTrack is a track fetched from the source catalog (Spotify).
//
// An empty ID marks a track the source cannot identify (local files,
// region-removed entries); such tracks are never matched or searched.
// Immutable once fetched.
type SourceTrack struct {
	ID           string   // Source catalog identifier, empty when unmatchable
	Name         string   // Display name
	Artists      []string // Ordered artist names
	DurationMS   int      // Duration in milliseconds
	Album        string   // Parent album name
	AlbumArtists []string // Parent album artist names
	TrackNumber  int      // 1-based position within the album
	ISRC         string   // Optional ISRC code
}

// Duration returns the track length in seconds.
func (t SourceTrack) Duration() float64 {
	return float64(t.DurationMS) / 1000.0
}

// CatalogTrack is a track from the target catalog (Tidal), produced by the
// catalog's search and album endpoints. Immutable once fetched.
type CatalogTrack struct {
	ID        string   // Target catalog identifier
	Name      string   // Display name
	Version   string   // Optional version/subtitle ("Remastered", "Live at ...")
	Artists   []string // Ordered artist names
	Duration  int      // Duration in seconds
	ISRC      string   // Optional ISRC code
	Available bool     // Whether the track is currently streamable
}

// CatalogAlbum is an album candidate returned by the target catalog's album search.
type CatalogAlbum struct {
	ID        string
	Name      string
	Artists   []string
	NumTracks int
}

// Playlist represents playlist metadata on either catalog.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
}

// SyncTarget identifies the destination collection of a sync run: either a
// Tidal playlist or the user's favorites list.
type SyncTarget struct {
	PlaylistID string
	Favorites  bool
}
