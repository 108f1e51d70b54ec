package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CacheStats reports cached match and failure counts.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, err := r.openCache()
	if err != nil {
		return err
	}

	stats, err := cache.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlain("Match cache:\n")
	r.writePlain("  Confirmed matches: %d\n", stats.Matches)
	r.writePlain("  Cached failures:   %d\n", stats.Failures)
	return nil
}

// CacheClear clears cached search failures, and confirmed matches with --all.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, err := r.openCache()
	if err != nil {
		return err
	}

	if err := cache.Failures.Clear(); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}
	r.logger.Info("cleared cached search failures")
	r.writePlain("✓ Cached failures cleared; failed tracks will be searched again next run\n")

	if cmd.Bool("all") {
		if err := cache.Matches.Clear(); err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
		r.logger.Info("cleared confirmed matches")
		r.writePlain("✓ Confirmed matches cleared\n")
	}

	return nil
}
