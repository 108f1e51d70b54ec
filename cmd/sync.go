package main

import (
	"context"
	"fmt"

	"github.com/lunamare/tidesync/internal/formatter"
	"github.com/lunamare/tidesync/internal/tasks"
	"github.com/lunamare/tidesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncPlaylist syncs one Spotify playlist into a Tidal playlist.
func (r *Runner) SyncPlaylist(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.String("source-id")
	targetID := cmd.String("target-id")

	return r.runSync(ctx, cmd, func(ctx context.Context, engine *tasks.Engine, progress chan<- tasks.ProgressUpdate) ([]*tasks.SyncResult, error) {
		result, err := engine.SyncPlaylist(ctx, progress, sourceID, targetID)
		if result == nil {
			return nil, err
		}
		return []*tasks.SyncResult{result}, err
	})
}

// SyncFavorites syncs Spotify saved tracks into Tidal favorites.
func (r *Runner) SyncFavorites(ctx context.Context, cmd *cli.Command) error {
	return r.runSync(ctx, cmd, func(ctx context.Context, engine *tasks.Engine, progress chan<- tasks.ProgressUpdate) ([]*tasks.SyncResult, error) {
		result, err := engine.SyncFavorites(ctx, progress)
		if result == nil {
			return nil, err
		}
		return []*tasks.SyncResult{result}, err
	})
}

// SyncAll syncs every Spotify playlist, creating Tidal playlists as needed.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	return r.runSync(ctx, cmd, engineSyncAll)
}

func engineSyncAll(ctx context.Context, engine *tasks.Engine, progress chan<- tasks.ProgressUpdate) ([]*tasks.SyncResult, error) {
	return engine.SyncAll(ctx, progress)
}

// runSync drives a sync operation, streaming progress either to the
// interactive monitor or to plain log lines, then writes the summary and
// optional report.
func (r *Runner) runSync(ctx context.Context, cmd *cli.Command, run func(context.Context, *tasks.Engine, chan<- tasks.ProgressUpdate) ([]*tasks.SyncResult, error)) error {
	r.reloadConfig(cmd)

	reportPath := cmd.String("report")
	var reportFormat formatter.Format
	if reportPath != "" {
		var err error
		if reportFormat, err = formatter.ParseFormat(cmd.String("format")); err != nil {
			return err
		}
	}

	engine, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r.db != nil {
			r.db.Close()
			r.db = nil
			r.cache = nil
		}
	}()

	updates := make(chan tasks.ProgressUpdate, 64)
	var results []*tasks.SyncResult
	done := make(chan error, 1)

	go func() {
		defer close(updates)
		res, err := run(ctx, engine, updates)
		results = res
		done <- err
	}()

	if cmd.Bool("plain") {
		for update := range updates {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	} else {
		if err := ui.Run(updates); err != nil {
			r.logger.Warn("progress monitor failed, draining updates", "error", err)
			for range updates {
			}
		}
	}

	runErr := <-done
	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}

	r.writeSummary(results)

	if reportPath != "" {
		if err := formatter.WriteReport(results, reportFormat, reportPath); err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", reportPath)
	}

	return nil
}

// writeSummary prints a per-collection summary of a finished run.
func (r *Runner) writeSummary(results []*tasks.SyncResult) {
	var matched, failed int
	for _, res := range results {
		matched += res.Matched
		failed += res.Failed

		r.writePlain("✓ %s: %d/%d matched (%s)\n", res.Name, res.Matched, res.Total, res.Update)
		if res.Failed > 0 {
			r.writePlain("  %d tracks had no match; failures are cached and skipped next run\n", res.Failed)
		}
		if len(res.Duplicates) > 0 {
			r.writePlain("  %d duplicate resolutions dropped\n", len(res.Duplicates))
		}
	}

	if len(results) > 1 {
		r.writePlain("\nSynced %d collections: %d matched, %d failed\n", len(results), matched, failed)
	}
}
