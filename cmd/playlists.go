package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the session user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	playlists, err := r.playlists.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}
	if len(playlists) == 0 {
		return r.writePlain("No playlists yet. Create one with 'mixtape playlists create <name>'\n")
	}
	return r.writePlain("%s", formatter.Table(playlists))
}

// PlaylistsShow prints one playlist with its songs.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	p, err := r.playlists.Get(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	r.writePlainHeader(p.Name)
	if p.Description != "" {
		r.writePlain("%s\n", p.Description)
	}
	r.writePlain("ID: %s\nSongs: %d\n\n", p.ID, len(p.Songs))
	writeSongs(r, p.Songs)
	return nil
}

// PlaylistsCreate creates a playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	p, err := r.playlists.Create(ctx, models.PlaylistInput{Name: name, Description: cmd.String("description")})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created %q (%s)\n", p.Name, p.ID)
}

// PlaylistsEdit updates the name and/or description; flags that are not set are left alone.
func (r *Runner) PlaylistsEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	var u models.PlaylistUpdate
	if cmd.IsSet("name") {
		name := strings.TrimSpace(cmd.String("name"))
		if err := shared.ValidatePlaylist(models.PlaylistInput{Name: name}); err != nil {
			return err
		}
		u.Name = &name
	}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		u.Description = &desc
	}
	if u.Empty() {
		return fmt.Errorf("%w: --name or --description", shared.ErrMissingArgument)
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}
	p, err := r.playlists.Update(ctx, id, u)
	if err != nil {
		return err
	}
	if p == nil {
		if p, err = r.playlists.Get(ctx, id); err != nil {
			return err
		}
	}
	return r.writePlain("✓ Updated %q\n", p.Name)
}

// PlaylistsDelete deletes a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	if err := r.playlists.Remove(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// PlaylistsExport writes the playlists named on the command line to files.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("out"),
		NumWorkers: int(cmd.Int("workers")),
	}
	if cmd.Bool("covers") {
		client := resty.NewWithClient(r.httpClient)
		opts.FetchCover = func(ctx context.Context, url string) ([]byte, error) {
			return formatter.DownloadImage(ctx, client, url)
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, err := tasks.BulkExport(ctx, r.playlists, ids, opts, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("  ✗ %s: %v\n", res.PlaylistID, res.Error)
			continue
		}
		r.writePlain("  ✓ %s (%d files)\n", res.PlaylistName, len(res.Files))
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d of %d exports failed", shared.ErrAPIRequest, result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func writeSongs(r *Runner, songs []models.Song) {
	if len(songs) == 0 {
		r.writePlain("(no songs)\n")
		return
	}
	for i, s := range songs {
		r.writePlain("%2d. %s - %s (%s) [%s]\n", i+1, s.Title, s.ArtistNames(), models.FormatDuration(s.DurationMS), s.ID)
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
