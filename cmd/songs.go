package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

const searchTimeout = 30 * time.Second

type searchRow struct {
	models.Track
	Added bool `json:"added"`
}

// SongsSearch searches the catalog. With --playlist the results are marked with playlist membership.
func (r *Runner) SongsSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	var rows []searchRow
	if id := cmd.String("playlist"); id != "" {
		if err := r.requireSession(ctx); err != nil {
			return err
		}
		ctrl, err := r.newController(id)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		items, err := r.searchWith(ctx, ctrl, query)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, searchRow{Track: item.Track, Added: item.Added})
		}
	} else {
		cfg := r.cfg()
		token, err := r.catalog.AcquireToken(ctx, cfg.Catalog.ClientID, cfg.Catalog.ClientSecret)
		if err != nil {
			return err
		}
		tracks, err := r.catalog.Search(ctx, query, token)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			rows = append(rows, searchRow{Track: t})
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}
	if len(rows) == 0 {
		return r.writePlain("No results for %q\n", query)
	}
	for i, row := range rows {
		mark := ""
		if row.Added {
			mark = " ✓ Added"
		}
		r.writePlain("%2d. %s (%s) [%s]%s\n", i+1, row.Track.String(), models.FormatDuration(row.DurationMS), row.ID, mark)
	}
	return nil
}

// SongsAdd searches for --track and adds the --pick'th result to --playlist.
func (r *Runner) SongsAdd(ctx context.Context, cmd *cli.Command) error {
	id, query := cmd.String("playlist"), strings.TrimSpace(cmd.String("track"))
	pick := int(cmd.Int("pick"))
	if query == "" {
		return fmt.Errorf("%w: track", shared.ErrMissingArgument)
	}
	if pick < 1 {
		return fmt.Errorf("%w: --pick must be at least 1", shared.ErrInvalidFlag)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	ctrl, err := r.newController(id)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	items, err := r.searchWith(ctx, ctrl, query)
	if err != nil {
		return err
	}
	if pick > len(items) {
		return fmt.Errorf("%w: %d results for %q", shared.ErrTrackNotFound, len(items), query)
	}

	track := items[pick-1].Track
	if err := ctrl.Add(ctx, track.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s\n", track.String())
}

// SongsRemove removes --song from --playlist.
func (r *Runner) SongsRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	ctrl, err := r.newController(cmd.String("playlist"))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Reload(ctx); err != nil {
		return err
	}
	if err := ctrl.Remove(ctx, cmd.String("song")); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", cmd.String("song"))
}

// searchWith activates ctrl, types query and waits for the debounced search to settle.
func (r *Runner) searchWith(ctx context.Context, ctrl *tasks.SearchController, query string) ([]tasks.ResultItem, error) {
	if err := ctrl.Activate(ctx); err != nil {
		return nil, err
	}
	if err := ctrl.SetQuery(query); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: search timed out", shared.ErrSearchUnavailable)
		case e, ok := <-ctrl.Events():
			if !ok {
				return nil, shared.ErrViewClosed
			}
			switch e.Kind {
			case tasks.EventResults:
				if e.Query == query {
					return ctrl.Results(), nil
				}
			case tasks.EventSearchFailed:
				return nil, e.Err
			}
		}
	}
}
