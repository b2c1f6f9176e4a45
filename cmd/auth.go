package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthRegister creates an account on the backend.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	msg, err := r.auth.Register(ctx, models.RegisterInput{
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	if msg == "" {
		msg = "Registration successful"
	}
	return r.writePlain("✓ %s\n", msg)
}

// AuthLogin exchanges credentials for a session token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	token, err := r.auth.Login(ctx, models.LoginInput{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	if err := r.session.SetToken(ctx, token); err != nil {
		return err
	}

	r.logger.Info("session stored", "backend", r.cfg().Backend.BaseURL)
	return r.writePlain("✓ Logged in\n")
}

// AuthLogout clears the stored session token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if err := r.session.ClearToken(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports whether a session is stored and whether the backend still accepts it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	backend := r.cfg().Backend.BaseURL
	r.writePlain("Backend: %s\n", backend)

	if !r.session.Authenticated() {
		return r.writePlain("Session: ✗ Not logged in\n")
	}

	playlists, err := r.playlists.List(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return r.writePlain("Session: ✗ Expired (run 'mixtape auth login')\n")
	case err != nil:
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("Session: ✓ Logged in\n")
	return r.writePlain("Playlists: %d\n", len(playlists))
}
