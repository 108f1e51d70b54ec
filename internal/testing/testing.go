// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/lunamare/tidesync/internal/models"
)

// MockSourceService is a test double for [services.SourceService]
type MockSourceService struct {
	PlaylistsFunc      func(ctx context.Context) ([]models.Playlist, error)
	PlaylistFunc       func(ctx context.Context, playlistID string) (*models.Playlist, error)
	PlaylistTracksFunc func(ctx context.Context, playlistID string) ([]models.SourceTrack, error)
	FavoriteTracksFunc func(ctx context.Context) ([]models.SourceTrack, error)
}

func (m *MockSourceService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *MockSourceService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockSourceService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, playlistID)
	}
	return &models.Playlist{ID: playlistID, Name: "mock"}, nil
}

func (m *MockSourceService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error) {
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockSourceService) FavoriteTracks(ctx context.Context) ([]models.SourceTrack, error) {
	if m.FavoriteTracksFunc != nil {
		return m.FavoriteTracksFunc(ctx)
	}
	return nil, nil
}

func (m *MockSourceService) Name() string { return "mock-source" }

// MockCatalogService is a test double for [services.CatalogService]
type MockCatalogService struct {
	PlaylistsFunc         func(ctx context.Context) ([]models.Playlist, error)
	CreatePlaylistFunc    func(ctx context.Context, name, description string) (*models.Playlist, error)
	PlaylistTracksFunc    func(ctx context.Context, playlistID string) ([]models.CatalogTrack, error)
	FavoriteTracksFunc    func(ctx context.Context) ([]models.CatalogTrack, error)
	SearchAlbumsFunc      func(ctx context.Context, query string) ([]models.CatalogAlbum, error)
	SearchTracksFunc      func(ctx context.Context, query string) ([]models.CatalogTrack, error)
	AlbumTracksFunc       func(ctx context.Context, albumID string) ([]models.CatalogTrack, error)
	AddPlaylistTracksFunc func(ctx context.Context, playlistID string, trackIDs []string) error
	SetPlaylistTracksFunc func(ctx context.Context, playlistID string, trackIDs []string) error
	AddFavoritesFunc      func(ctx context.Context, trackIDs []string) error
	SetFavoritesFunc      func(ctx context.Context, trackIDs []string) error
}

func (m *MockCatalogService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *MockCatalogService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockCatalogService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, name, description)
	}
	return &models.Playlist{ID: "mock-created", Name: name, Description: description}, nil
}

func (m *MockCatalogService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.CatalogTrack, error) {
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockCatalogService) FavoriteTracks(ctx context.Context) ([]models.CatalogTrack, error) {
	if m.FavoriteTracksFunc != nil {
		return m.FavoriteTracksFunc(ctx)
	}
	return nil, nil
}

func (m *MockCatalogService) SearchAlbums(ctx context.Context, query string) ([]models.CatalogAlbum, error) {
	if m.SearchAlbumsFunc != nil {
		return m.SearchAlbumsFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockCatalogService) SearchTracks(ctx context.Context, query string) ([]models.CatalogTrack, error) {
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockCatalogService) AlbumTracks(ctx context.Context, albumID string) ([]models.CatalogTrack, error) {
	if m.AlbumTracksFunc != nil {
		return m.AlbumTracksFunc(ctx, albumID)
	}
	return nil, nil
}

func (m *MockCatalogService) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.AddPlaylistTracksFunc != nil {
		return m.AddPlaylistTracksFunc(ctx, playlistID, trackIDs)
	}
	return nil
}

func (m *MockCatalogService) SetPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.SetPlaylistTracksFunc != nil {
		return m.SetPlaylistTracksFunc(ctx, playlistID, trackIDs)
	}
	return nil
}

func (m *MockCatalogService) AddFavorites(ctx context.Context, trackIDs []string) error {
	if m.AddFavoritesFunc != nil {
		return m.AddFavoritesFunc(ctx, trackIDs)
	}
	return nil
}

func (m *MockCatalogService) SetFavorites(ctx context.Context, trackIDs []string) error {
	if m.SetFavoritesFunc != nil {
		return m.SetFavoritesFunc(ctx, trackIDs)
	}
	return nil
}

func (m *MockCatalogService) Name() string { return "mock-catalog" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
