package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist client. A stored session opens on the dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file while the TUI owns the terminal
	path := r.cfg().Log.File
	if path == "" {
		path = shared.DefaultLogFile
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.connect(ctx); err != nil {
		return err
	}

	return ui.Run(ctx, ui.Options{
		Auth:        r.auth,
		Playlists:   r.playlists,
		Session:     r.session,
		Controllers: r.newController,
		Logger:      r.logger,
	})
}
