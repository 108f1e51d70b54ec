package tasks

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/repositories"
	"github.com/lunamare/tidesync/internal/shared"
	tu "github.com/lunamare/tidesync/internal/testing"
)

// newTestEngine builds an Engine over an in-memory cache and the given mocks.
// Nil mocks get fresh zero-value doubles.
func newTestEngine(t *testing.T, source *tu.MockSourceService, catalog *tu.MockCatalogService) *Engine {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if source == nil {
		source = &tu.MockSourceService{}
	}
	if catalog == nil {
		catalog = &tu.MockCatalogService{}
	}

	cfg := shared.SyncConfig{MaxConcurrency: 4, RateLimit: 1000}
	return NewEngine(source, catalog, repositories.NewSyncCache(db), cfg, shared.NewLogger(io.Discard))
}

func mustConfirm(t *testing.T, engine *Engine, sourceID, catalogID string) {
	t.Helper()
	if err := engine.cache.Confirm(sourceID, catalogID); err != nil {
		t.Fatalf("failed to confirm match: %v", err)
	}
}

// shortRetries swaps the backoff schedule for test-sized delays.
func shortRetries(t *testing.T) {
	t.Helper()
	saved := retrySchedule
	retrySchedule = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retrySchedule = saved })
}

// testBucket returns a permissive bucket for tests exercising search paths
// directly, stopped on cleanup.
func testBucket(t *testing.T) *leakyBucket {
	t.Helper()
	bucket := newLeakyBucket(4, 1000)
	t.Cleanup(bucket.Stop)
	return bucket
}

func sourceLibrary() []models.SourceTrack {
	return []models.SourceTrack{
		{ID: "sp1", Name: "Alpha", Artists: []string{"Band"}, DurationMS: 200000, ISRC: "ISRC1"},
		{ID: "sp2", Name: "Beta", Artists: []string{"Band"}, DurationMS: 210000, ISRC: "ISRC2"},
		{ID: "sp3", Name: "Gamma", Artists: []string{"Band"}, DurationMS: 220000, ISRC: "ISRC3"},
	}
}

func catalogLibrary() map[string]models.CatalogTrack {
	return map[string]models.CatalogTrack{
		"ISRC1": {ID: "td1", Name: "Alpha", Artists: []string{"Band"}, Duration: 200, ISRC: "ISRC1", Available: true},
		"ISRC2": {ID: "td2", Name: "Beta", Artists: []string{"Band"}, Duration: 210, ISRC: "ISRC2", Available: true},
		"ISRC3": {ID: "td3", Name: "Gamma", Artists: []string{"Band"}, Duration: 220, ISRC: "ISRC3", Available: true},
	}
}

// searchableCatalog answers track searches from the catalog library by ISRC
// lookups against the query-embedded track name.
func searchableCatalog(targetTracks *[]models.CatalogTrack, appended *[][]string) *tu.MockCatalogService {
	library := catalogLibrary()
	byName := make(map[string]models.CatalogTrack)
	for _, track := range library {
		byName[track.Name] = track
	}

	return &tu.MockCatalogService{
		PlaylistTracksFunc: func(ctx context.Context, playlistID string) ([]models.CatalogTrack, error) {
			return *targetTracks, nil
		},
		SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
			for name, track := range byName {
				if query == "" {
					continue
				}
				if len(query) >= len(name) && query[:len(name)] == name {
					return []models.CatalogTrack{track}, nil
				}
			}
			return nil, nil
		},
		AddPlaylistTracksFunc: func(ctx context.Context, playlistID string, trackIDs []string) error {
			if appended != nil {
				*appended = append(*appended, trackIDs)
			}
			library := catalogLibrary()
			byID := make(map[string]models.CatalogTrack)
			for _, track := range library {
				byID[track.ID] = track
			}
			for _, id := range trackIDs {
				*targetTracks = append(*targetTracks, byID[id])
			}
			return nil
		},
	}
}

func TestSyncPlaylist(t *testing.T) {
	t.Run("appends resolved tracks to empty target", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistFunc: func(ctx context.Context, id string) (*models.Playlist, error) {
				return &models.Playlist{ID: id, Name: "Road Trip"}, nil
			},
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.SourceTrack, error) {
				return sourceLibrary(), nil
			},
		}

		var targetTracks []models.CatalogTrack
		var appended [][]string
		catalog := searchableCatalog(&targetTracks, &appended)

		engine := newTestEngine(t, source, catalog)

		result, err := engine.SyncPlaylist(context.Background(), nil, "splist", "tdlist")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Update != UpdateAppend {
			t.Errorf("expected append update, got %s", result.Update)
		}
		if result.Matched != 3 || result.Failed != 0 {
			t.Errorf("expected 3 matched 0 failed, got %+v", result)
		}
		if len(appended) != 1 || !slices.Equal(appended[0], []string{"td1", "td2", "td3"}) {
			t.Errorf("expected single append of td1..td3, got %v", appended)
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.SourceTrack, error) {
				return sourceLibrary(), nil
			},
		}

		var targetTracks []models.CatalogTrack
		var appended [][]string
		catalog := searchableCatalog(&targetTracks, &appended)

		searches := 0
		inner := catalog.SearchTracksFunc
		catalog.SearchTracksFunc = func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
			searches++
			return inner(ctx, query)
		}

		engine := newTestEngine(t, source, catalog)

		if _, err := engine.SyncPlaylist(context.Background(), nil, "splist", "tdlist"); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		firstSearches := searches
		if firstSearches == 0 {
			t.Fatal("expected first run to search the catalog")
		}

		result, err := engine.SyncPlaylist(context.Background(), nil, "splist", "tdlist")
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if result.Update != UpdateNone {
			t.Errorf("expected no-op update on second run, got %s", result.Update)
		}
		if searches != firstSearches {
			t.Errorf("expected no new searches on second run, got %d extra", searches-firstSearches)
		}
		if len(appended) != 1 {
			t.Errorf("expected no new mutations on second run, got %d appends", len(appended))
		}
	})

	t.Run("unmatched tracks are cached as failures", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.SourceTrack, error) {
				return []models.SourceTrack{
					{ID: "sp-void", Name: "Unreleased Demo", Artists: []string{"Nobody"}, DurationMS: 100000},
				}, nil
			},
		}
		catalog := &tu.MockCatalogService{}

		engine := newTestEngine(t, source, catalog)

		result, err := engine.SyncPlaylist(context.Background(), nil, "splist", "tdlist")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", result.Failed)
		}

		has, err := engine.cache.HasFailure("sp-void")
		if err != nil {
			t.Fatalf("failed to query failure: %v", err)
		}
		if !has {
			t.Error("expected failure to be cached")
		}
	})
}

func TestSyncFavorites(t *testing.T) {
	source := &tu.MockSourceService{
		FavoriteTracksFunc: func(ctx context.Context) ([]models.SourceTrack, error) {
			return sourceLibrary(), nil
		},
	}

	var favorites [][]string
	library := catalogLibrary()
	catalog := &tu.MockCatalogService{
		SearchTracksFunc: func(ctx context.Context, query string) ([]models.CatalogTrack, error) {
			for _, track := range library {
				if len(query) >= len(track.Name) && query[:len(track.Name)] == track.Name {
					return []models.CatalogTrack{track}, nil
				}
			}
			return nil, nil
		},
		AddFavoritesFunc: func(ctx context.Context, trackIDs []string) error {
			favorites = append(favorites, trackIDs)
			return nil
		},
	}

	engine := newTestEngine(t, source, catalog)

	result, err := engine.SyncFavorites(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Name != "favorites" {
		t.Errorf("expected result name 'favorites', got %s", result.Name)
	}
	if len(favorites) != 1 || !slices.Equal(favorites[0], []string{"td1", "td2", "td3"}) {
		t.Errorf("expected favorites appended in source order, got %v", favorites)
	}
}

func TestSyncAll(t *testing.T) {
	t.Run("creates missing target playlists and skips excluded", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistsFunc: func(ctx context.Context) ([]models.Playlist, error) {
				return []models.Playlist{
					{ID: "sp-road", Name: "Road Trip"},
					{ID: "sp-skip", Name: "Private"},
				}, nil
			},
			PlaylistFunc: func(ctx context.Context, id string) (*models.Playlist, error) {
				return &models.Playlist{ID: id, Name: "Road Trip"}, nil
			},
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.SourceTrack, error) {
				return nil, nil
			},
		}

		var created []string
		catalog := &tu.MockCatalogService{
			CreatePlaylistFunc: func(ctx context.Context, name, description string) (*models.Playlist, error) {
				created = append(created, name)
				return &models.Playlist{ID: "td-new", Name: name}, nil
			},
		}

		engine := newTestEngine(t, source, catalog)
		engine.sync.ExcludedPlaylists = []string{"sp-skip"}

		results, err := engine.SyncAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results) != 1 {
			t.Fatalf("expected 1 synced playlist, got %d", len(results))
		}
		if !slices.Equal(created, []string{"Road Trip"}) {
			t.Errorf("expected Road Trip to be created on Tidal, got %v", created)
		}
		if results[0].TargetID != "td-new" {
			t.Errorf("expected sync against created playlist, got %s", results[0].TargetID)
		}
	})

	t.Run("excluded playlists accept uri form", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistsFunc: func(ctx context.Context) ([]models.Playlist, error) {
				return []models.Playlist{{ID: "sp-skip", Name: "Private"}}, nil
			},
		}
		catalog := &tu.MockCatalogService{}

		engine := newTestEngine(t, source, catalog)
		engine.sync.ExcludedPlaylists = []string{"spotify:playlist:sp-skip"}

		results, err := engine.SyncAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected uri-form exclusion to skip the playlist, got %d syncs", len(results))
		}
	})

	t.Run("honors configured pairs before name matching", func(t *testing.T) {
		source := &tu.MockSourceService{
			PlaylistsFunc: func(ctx context.Context) ([]models.Playlist, error) {
				return []models.Playlist{{ID: "sp-road", Name: "Road Trip"}}, nil
			},
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.SourceTrack, error) {
				return nil, nil
			},
		}
		catalog := &tu.MockCatalogService{}

		engine := newTestEngine(t, source, catalog)
		engine.sync.SyncPlaylists = []shared.SyncPair{{SpotifyID: "sp-road", TidalID: "td-paired"}}

		results, err := engine.SyncAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results) != 1 {
			t.Fatalf("expected exactly 1 sync, got %d", len(results))
		}
		if results[0].TargetID != "td-paired" {
			t.Errorf("expected configured pair target, got %s", results[0].TargetID)
		}
	})
}
