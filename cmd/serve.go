package main

import (
	"context"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the local playlist backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg().Server

	addr := cfg.Addr()
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:      addr,
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Logger:    r.logger,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
