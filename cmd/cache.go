package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheStatus pings the configured cache backend.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	cfg := r.cfg().Backend
	r.writePlain("Backend: %s\n", cfg.Cache)
	r.writePlain("TTL: %s\n", cfg.CacheTTL.Duration)

	if err := r.cache.Health(ctx); err != nil {
		r.writePlain("Status: ✗ %v\n", err)
		return err
	}
	return r.writePlain("Status: ✓ OK\n")
}

// CacheClear drops the cached playlist list and any playlists named on the command line.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	r.playlists.Invalidate(ctx, ids...)
	return r.writePlain("✓ Cleared playlist list and %d playlist(s)\n", len(ids))
}
