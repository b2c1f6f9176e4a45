package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/cache"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	clock      clock.Clock

	db        *sql.DB
	cache     cache.Cache
	session   *session.Store
	auth      *services.AuthClient
	playlists *services.PlaylistClient
	catalog   *services.CatalogClient
	queue     *tasks.MutationQueue
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Clock      clock.Clock
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		clock:      opts.Clock,
	}
}

// Before loads the configuration named by --config, applies environment overrides and sets the log level.
// A config passed to [NewRunner] is kept as-is.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		path := cmd.String("config")
		config, err := shared.LoadConfig(path)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", path)
			config = shared.DefaultConfig()
		case err != nil:
			return ctx, err
		}
		if err := config.ApplyEnv(); err != nil {
			return ctx, err
		}
		r.config, r.configPath = config, path
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(level))
	return ctx, nil
}

// After releases whatever the command opened.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the cache and database and drops the clients built on them.
func (r *Runner) Close() error {
	var errs []error
	if r.cache != nil {
		errs = append(errs, r.cache.Close())
		r.cache = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	r.session, r.auth, r.playlists, r.catalog, r.queue = nil, nil, nil, nil, nil
	return errors.Join(errs...)
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// database opens and migrates the local database once per run.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// connect builds the session store and backend clients. The session is scoped to the backend base URL.
func (r *Runner) connect(ctx context.Context) error {
	if r.playlists != nil {
		return nil
	}

	cfg := r.cfg()
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend.base_url is required", shared.ErrInvalidConfig)
	}
	// Missing catalog credentials only disable search
	if err := cfg.Validate(); err != nil {
		r.logger.Warn("configuration incomplete", "error", err)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	r.session = session.NewStore(repositories.NewSessionRepository(db, cfg.Backend.BaseURL), r.logger)
	if err := r.session.Load(ctx); err != nil {
		return err
	}

	c, err := cache.New(cache.Options{Backend: cfg.Backend.Cache, TTL: cfg.Backend.CacheTTL.Duration, ValkeyURL: cfg.Backend.ValkeyURL})
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	r.cache = c

	r.auth = services.NewAuthClient(services.AuthOptions{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout.Duration,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	r.playlists = services.NewPlaylistClient(services.PlaylistOptions{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout.Duration,
		Tokens:     r.session,
		Cache:      r.cache,
		CacheTTL:   cfg.Backend.CacheTTL.Duration,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	r.catalog = services.NewCatalogClient(services.CatalogOptions{
		TokenURL:   cfg.Catalog.TokenURL,
		APIURL:     cfg.Catalog.APIURL,
		Limit:      cfg.Catalog.SearchLimit,
		RateLimit:  cfg.Catalog.RateLimit,
		HTTPClient: r.httpClient,
	})
	r.queue = tasks.NewMutationQueue(r.playlists, r.logger)
	return nil
}

// requireSession fails fast when no session token is stored.
func (r *Runner) requireSession(ctx context.Context) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if !r.session.Authenticated() {
		return fmt.Errorf("%w: run 'mixtape auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// newController builds a search controller for playlistID sharing the runner's mutation queue.
func (r *Runner) newController(playlistID string) (*tasks.SearchController, error) {
	cfg := r.cfg()
	return tasks.NewSearchController(tasks.ControllerOptions{
		Catalog:      r.catalog,
		Playlists:    r.playlists,
		Queue:        r.queue,
		ClientID:     cfg.Catalog.ClientID,
		ClientSecret: cfg.Catalog.ClientSecret,
		PlaylistID:   playlistID,
		Debounce:     cfg.Catalog.Debounce.Duration,
		Clock:        r.clock,
		Logger:       r.logger,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
