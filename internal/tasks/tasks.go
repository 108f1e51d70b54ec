package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/repositories"
	"github.com/lunamare/tidesync/internal/services"
	"github.com/lunamare/tidesync/internal/shared"
)

// SyncResult summarizes one sync run for reporting.
type SyncResult struct {
	Name        string               // Playlist name, or "favorites"
	SourceID    string               // Spotify playlist id, empty for favorites
	TargetID    string               // Tidal playlist id, empty for favorites
	Total       int                  // Source tracks considered
	Matched     int                  // Tracks resolved to a Tidal id (cached or searched)
	Failed      int                  // Tracks with no Tidal match
	Duplicates  []models.SourceTrack // Source tracks dropped as duplicate resolutions
	Update      UpdateKind           // Mutation applied to the target
	Prepopulate int                  // Matches recorded without network search
	Searched    int                  // Tracks that went through catalog search
}

// Engine orchestrates sync runs between the Spotify source and Tidal target.
type Engine struct {
	source  services.SourceService
	catalog services.CatalogService
	cache   *repositories.SyncCache
	sync    shared.SyncConfig
	logger  *log.Logger
}

// NewEngine creates an Engine with the provided services, cache, and sync
// configuration.
func NewEngine(source services.SourceService, catalog services.CatalogService, cache *repositories.SyncCache, cfg shared.SyncConfig, logger *log.Logger) *Engine {
	return &Engine{
		source:  source,
		catalog: catalog,
		cache:   cache,
		sync:    cfg,
		logger:  logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SyncPlaylist syncs one Spotify playlist onto one Tidal playlist.
func (e *Engine) SyncPlaylist(ctx context.Context, progress chan<- ProgressUpdate, sourceID, targetID string) (*SyncResult, error) {
	playlist, err := e.source.Playlist(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchSourceUpdate(playlist.Name))
	sourceTracks, err := e.source.PlaylistTracks(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source playlist %s: %w", sourceID, err)
	}

	e.sendProgress(progress, fetchTargetUpdate("Tidal playlist"))
	targetTracks, err := e.catalog.PlaylistTracks(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target playlist %s: %w", targetID, err)
	}

	result, err := e.syncTracks(ctx, progress, sourceTracks, targetTracks, models.SyncTarget{PlaylistID: targetID})
	if err != nil {
		return nil, err
	}
	result.Name = playlist.Name
	result.SourceID = sourceID
	result.TargetID = targetID

	e.sendProgress(progress, syncCompleteUpdate(result))
	return result, nil
}

// SyncFavorites syncs Spotify saved tracks onto Tidal favorites, oldest
// first so favoriting order is preserved.
func (e *Engine) SyncFavorites(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	e.sendProgress(progress, fetchSourceUpdate("Spotify saved tracks"))
	sourceTracks, err := e.source.FavoriteTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tracks: %w", err)
	}

	e.sendProgress(progress, fetchTargetUpdate("Tidal favorites"))
	targetTracks, err := e.catalog.FavoriteTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch favorites: %w", err)
	}

	result, err := e.syncTracks(ctx, progress, sourceTracks, targetTracks, models.SyncTarget{Favorites: true})
	if err != nil {
		return nil, err
	}
	result.Name = "favorites"

	e.sendProgress(progress, syncCompleteUpdate(result))
	return result, nil
}

// SyncAll syncs every configured playlist pair, then every remaining Spotify
// playlist by name, creating missing Tidal playlists. Playlists listed in
// excluded_playlists are skipped.
func (e *Engine) SyncAll(ctx context.Context, progress chan<- ProgressUpdate) ([]*SyncResult, error) {
	var results []*SyncResult
	synced := make(map[string]struct{})

	for _, pair := range e.sync.SyncPlaylists {
		result, err := e.SyncPlaylist(ctx, progress, pair.SpotifyID, pair.TidalID)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		synced[pair.SpotifyID] = struct{}{}
	}

	playlists, err := e.source.Playlists(ctx)
	if err != nil {
		return results, fmt.Errorf("failed to list source playlists: %w", err)
	}

	for _, playlist := range playlists {
		if _, done := synced[playlist.ID]; done {
			continue
		}
		if e.isExcluded(playlist.ID) {
			e.logger.Info("skipping excluded playlist", "playlist", playlist.Name)
			continue
		}

		targetID, err := e.pickTargetPlaylist(ctx, playlist)
		if err != nil {
			return results, err
		}

		result, err := e.SyncPlaylist(ctx, progress, playlist.ID, targetID)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// isExcluded reports whether the playlist id is listed in excluded_playlists.
// Entries may be bare ids or spotify:playlist:<id> URIs.
func (e *Engine) isExcluded(id string) bool {
	for _, entry := range e.sync.ExcludedPlaylists {
		if entry[strings.LastIndex(entry, ":")+1:] == id {
			return true
		}
	}
	return false
}

// pickTargetPlaylist finds the Tidal playlist with the same name as the
// source playlist, creating it when absent.
func (e *Engine) pickTargetPlaylist(ctx context.Context, playlist models.Playlist) (string, error) {
	existing, err := e.catalog.Playlists(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list target playlists: %w", err)
	}

	for _, candidate := range existing {
		if candidate.Name == playlist.Name {
			return candidate.ID, nil
		}
	}

	e.logger.Info("creating target playlist", "name", playlist.Name)
	created, err := e.catalog.CreatePlaylist(ctx, playlist.Name, playlist.Description)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// syncTracks runs the shared pipeline: prepopulate, search, diff, apply.
func (e *Engine) syncTracks(ctx context.Context, progress chan<- ProgressUpdate, sourceTracks []models.SourceTrack, targetTracks []models.CatalogTrack, target models.SyncTarget) (*SyncResult, error) {
	result := &SyncResult{Total: len(sourceTracks)}

	recorded, err := e.Prepopulate(sourceTracks, targetTracks)
	if err != nil {
		return nil, err
	}
	result.Prepopulate = recorded
	e.sendProgress(progress, prepopulateUpdate(recorded, len(sourceTracks)))

	unresolved, err := e.unresolvedTracks(sourceTracks)
	if err != nil {
		return nil, err
	}
	result.Searched = len(unresolved)

	_, failed, err := e.resolveTracks(ctx, progress, unresolved)
	if err != nil {
		return nil, err
	}
	result.Failed = failed

	newIDs, duplicates, err := e.DesiredTrackIDs(sourceTracks)
	if err != nil {
		return nil, err
	}
	result.Matched = len(newIDs) + len(duplicates)
	result.Duplicates = duplicates

	oldIDs := make([]string, 0, len(targetTracks))
	for _, track := range targetTracks {
		oldIDs = append(oldIDs, track.ID)
	}

	plan := PlanUpdate(oldIDs, newIDs)
	result.Update = plan.Kind
	e.sendProgress(progress, updateTargetUpdate(plan))

	if err := e.applyPlan(ctx, target, plan); err != nil {
		return nil, fmt.Errorf("failed to update target: %w", err)
	}

	return result, nil
}
