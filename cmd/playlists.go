package main

import (
	"context"
	"fmt"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistsSpotify lists the authenticated user's Spotify playlists.
func (r *Runner) PlaylistsSpotify(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	source, err := r.ensureSource(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("listing playlists", "service", source.Name())

	playlists, err := source.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writePlaylists(cmd, source.Name(), playlists)
}

// PlaylistsTidal lists the authenticated user's Tidal playlists.
func (r *Runner) PlaylistsTidal(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	catalog, err := r.ensureCatalog(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("listing playlists", "service", catalog.Name())

	playlists, err := catalog.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writePlaylists(cmd, catalog.Name(), playlists)
}

func (r *Runner) writePlaylists(cmd *cli.Command, service string, playlists []models.Playlist) error {
	limit := cmd.Int("limit")
	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d %s playlists:\n\n", len(playlists), service)
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("\n")
	}

	return nil
}
