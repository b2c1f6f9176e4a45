package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/repositories"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Options configures a [Server].
type Options struct {
	Addr       string
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	DB         *sql.DB
	Logger     *log.Logger
}

// Server is the local auth and playlist backend.
type Server struct {
	addr    string
	handler http.Handler
	logger  *log.Logger
}

// New wires repositories, handlers and middleware onto a [BasicRouter].
func New(opts Options) (*Server, error) {
	if opts.DB == nil {
		return nil, errors.New("server: database is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("server: jwt secret is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	tokens := NewTokenIssuer(opts.JWTSecret, opts.TokenTTL)

	router := NewBasicRouter()
	router.Use(RequestID(), Logger(opts.Logger), Recover(opts.Logger))

	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	router.Handler(NewAuthHandler(repositories.NewUserRepository(opts.DB), tokens, opts.BcryptCost, opts.Logger))
	NewPlaylistHandler(repositories.NewPlaylistRepository(opts.DB), opts.Logger).Register(router, RequireAuth(tokens))

	return &Server{addr: opts.Addr, handler: router, logger: opts.Logger}, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and shuts down gracefully when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("backend listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("backend shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
