// package services defines interfaces for interacting with the two catalog HTTP APIs
//
// Spotify (source), Tidal (target)
package services

import (
	"context"

	"github.com/lunamare/tidesync/internal/models"
	"golang.org/x/oauth2"
)

// SourceService is the read side of a sync run: the catalog the track list
// is reconciled from.
type SourceService interface {
	// Authenticate establishes a session with the service.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Playlists retrieves all playlists owned by the authenticated user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Playlist retrieves a specific playlist by ID.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistTracks retrieves the full ordered track list of a playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error)

	// FavoriteTracks retrieves the user's saved tracks, oldest first.
	FavoriteTracks(ctx context.Context) ([]models.SourceTrack, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// CatalogService is the write side of a sync run: the catalog searched for
// matches and mutated to mirror the source.
type CatalogService interface {
	// Authenticate establishes a session with the service.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Playlists retrieves all playlists owned by the authenticated user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates a new empty playlist.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// PlaylistTracks retrieves the full ordered track list of a playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.CatalogTrack, error)

	// FavoriteTracks retrieves the user's favorite tracks in date order.
	FavoriteTracks(ctx context.Context) ([]models.CatalogTrack, error)

	// SearchAlbums runs an album query and returns ranked candidates.
	SearchAlbums(ctx context.Context, query string) ([]models.CatalogAlbum, error)

	// SearchTracks runs a track query and returns ranked candidates.
	SearchTracks(ctx context.Context, query string) ([]models.CatalogTrack, error)

	// AlbumTracks retrieves an album's track list in album order.
	AlbumTracks(ctx context.Context, albumID string) ([]models.CatalogTrack, error)

	// AddPlaylistTracks appends tracks to the end of a playlist.
	AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// SetPlaylistTracks replaces a playlist's contents with the given tracks.
	SetPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// AddFavorites appends tracks to the user's favorites.
	AddFavorites(ctx context.Context, trackIDs []string) error

	// SetFavorites replaces the user's favorites with the given tracks.
	SetFavorites(ctx context.Context, trackIDs []string) error

	// Name returns the name of the service (e.g., "Tidal")
	Name() string
}

// OAuthService is implemented by services that authenticate through an
// OAuth2 authorization-code flow with a local callback.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
}
