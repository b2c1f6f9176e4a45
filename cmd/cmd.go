// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/urfave/cli/v3"
)

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, songsCommand, cacheCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the local database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles backend account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your playlist backend session",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Required: true},
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "login",
				Usage: "Log in and store the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Required: true},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Check the stored session against the backend",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand handles playlist CRUD and export
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  outputFlags(),
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its songs",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "edit",
				Usage:     "Rename a playlist or change its description",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
				},
				Action: r.PlaylistsEdit,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: mixtape_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images for markdown exports",
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// songsCommand handles searching the catalog and editing a playlist's songs
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Search Spotify and add or remove songs",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search Spotify for tracks",
				ArgsUsage: "<query>",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: "playlist", Usage: "Mark results already in this playlist"},
				),
				Action: r.SongsSearch,
			},
			{
				Name:  "add",
				Usage: "Search for a track and add a result to a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID", Required: true},
					&cli.StringFlag{Name: "track", Aliases: []string{"t"}, Usage: "Track search query", Required: true},
					&cli.IntFlag{Name: "pick", Usage: "Which result to add (1-based)", Value: 1},
				},
				Action: r.SongsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a song from a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID", Required: true},
					&cli.StringFlag{Name: "song", Aliases: []string{"s"}, Usage: "Spotify track ID", Required: true},
				},
				Action: r.SongsRemove,
			},
		},
	}
}

// cacheCommand inspects the playlist read cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the playlist read cache",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check the configured cache backend",
				Action: r.CacheStatus,
			},
			{
				Name:      "clear",
				Usage:     "Drop the cached playlist list and the given playlists",
				ArgsUsage: "[id]...",
				Action:    r.CacheClear,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive playlist client",
		Action:  r.TUI,
	}
}

// serveCommand runs the local reference backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local playlist backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port)"},
		},
		Action: r.Serve,
	}
}
