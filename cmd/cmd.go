// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads config.toml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database initialization and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles OAuth2 authorization for both services.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:    "spotify",
				Aliases: []string{"spot"},
				Usage:   "Authenticate with Spotify using OAuth2",
				Flags:   []cli.Flag{configFlag()},
				Action:  r.AuthSpotify,
			},
			{
				Name:   "tidal",
				Usage:  "Authenticate with Tidal using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthTidal,
			},
			{
				Name:   "status",
				Usage:  "Show saved token state for both services",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand handles sync runs from Spotify to Tidal.
func syncCommand(r *Runner) *cli.Command {
	syncFlags := func(extra ...cli.Flag) []cli.Flag {
		flags := []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Log progress lines instead of the interactive monitor",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"o"},
				Usage:   "Write a report of the run to this path",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: json, csv, or text",
				Value: "json",
			},
		}
		return append(flags, extra...)
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists and favorites from Spotify to Tidal",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Sync one Spotify playlist into a Tidal playlist",
				Flags: syncFlags(
					&cli.StringFlag{
						Name:     "source-id",
						Usage:    "Spotify playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target-id",
						Usage:    "Tidal playlist ID",
						Required: true,
					},
				),
				Action: r.SyncPlaylist,
			},
			{
				Name:    "favorites",
				Aliases: []string{"favourites", "likes"},
				Usage:   "Sync Spotify saved tracks into Tidal favorites",
				Flags:   syncFlags(),
				Action:  r.SyncFavorites,
			},
			{
				Name:   "all",
				Usage:  "Sync every Spotify playlist, creating Tidal playlists as needed",
				Flags:  syncFlags(),
				Action: r.SyncAll,
			},
		},
	}
}

// playlistsCommand lists playlists on either service.
func playlistsCommand(r *Runner) *cli.Command {
	listFlags := []cli.Flag{
		configFlag(),
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of playlists to show",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}

	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists",
		Commands: []*cli.Command{
			{
				Name:    "spotify",
				Aliases: []string{"source", "spot"},
				Usage:   "List Spotify playlists",
				Flags:   listFlags,
				Action:  r.PlaylistsSpotify,
			},
			{
				Name:    "tidal",
				Aliases: []string{"target"},
				Usage:   "List Tidal playlists",
				Flags:   listFlags,
				Action:  r.PlaylistsTidal,
			},
		},
	}
}

// cacheCommand inspects and prunes the persistent match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the track match cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cached match and failure counts",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:  "clear",
				Usage: "Clear cached search failures so they are retried next run",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Also clear confirmed matches",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
