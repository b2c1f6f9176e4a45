package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/sync/errgroup"
)

// State of a search session.
type State int

const (
	Idle State = iota
	TokenPending
	Ready
	Searching
	ResultsOpen
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TokenPending:
		return "token_pending"
	case Ready:
		return "ready"
	case Searching:
		return "searching"
	case ResultsOpen:
		return "results_open"
	case Closed:
		return "closed"
	default:
		return ""
	}
}

// ControllerOptions configures a [SearchController].
type ControllerOptions struct {
	Catalog      services.Catalog
	Playlists    services.Playlists
	Queue        *MutationQueue // shared across views; nil creates a private queue
	ClientID     string
	ClientSecret string
	PlaylistID   string
	Debounce     time.Duration
	Clock        clock.Clock
	Logger       *log.Logger
	EventBuffer  int
}

// ResultItem is a search result with its membership mark.
type ResultItem struct {
	Track models.Track
	Added bool
}

// Snapshot is a point-in-time copy of a controller's state.
type Snapshot struct {
	State       State
	Query       string
	Results     []ResultItem
	PanelOpen   bool
	Playlist    *models.Playlist
	TokenErr    error
	SearchErr   error
	MutationErr error
}

// SearchController runs search-and-add for one playlist detail view.
type SearchController struct {
	catalog    services.Catalog
	playlists  services.Playlists
	queue      *MutationQueue
	clientID   string
	secret     string
	playlistID string
	logger     *log.Logger
	debounce   *debouncer
	events     chan Event

	// lifetime of the view; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	activated    bool
	tokenPending bool
	searching    bool
	closed       bool
	token        string
	query        string
	results      []models.Track
	panelOpen    bool
	playlist     *models.Playlist
	tokenErr     error
	searchErr    error
	mutationErr  error
}

// NewSearchController creates a controller in the [Idle] state.
func NewSearchController(opts ControllerOptions) (*SearchController, error) {
	if opts.Catalog == nil || opts.Playlists == nil {
		return nil, fmt.Errorf("%w: catalog and playlists are required", shared.ErrMissingArgument)
	}
	if opts.PlaylistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Queue == nil {
		opts.Queue = NewMutationQueue(opts.Playlists, opts.Logger)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SearchController{
		catalog:    opts.Catalog,
		playlists:  opts.Playlists,
		queue:      opts.Queue,
		clientID:   opts.ClientID,
		secret:     opts.ClientSecret,
		playlistID: opts.PlaylistID,
		logger:     shared.WithLogger(opts.Logger, "playlist", opts.PlaylistID),
		debounce:   newDebouncer(opts.Clock, opts.Debounce),
		events:     make(chan Event, opts.EventBuffer),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Events returns the notification channel. It is closed by [SearchController.Close].
func (c *SearchController) Events() <-chan Event {
	return c.events
}

// Activate loads the playlist and requests a catalog token. Both run concurrently; the first error is
// returned. A failed token exchange leaves search disabled until Activate is called again. A query set
// while the token is pending is searched once the token arrives.
func (c *SearchController) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrViewClosed
	}
	if c.activated {
		c.mu.Unlock()
		return nil
	}
	c.activated = true
	c.tokenPending = true
	c.tokenErr = nil
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return c.Reload(ctx) })
	g.Go(func() error { return c.acquireToken(ctx) })
	return g.Wait()
}

func (c *SearchController) acquireToken(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	token, err := c.catalog.AcquireToken(ctx, c.clientID, c.secret)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrViewClosed
	}
	c.tokenPending = false

	if err != nil {
		c.activated = false
		c.tokenErr = err
		c.logger.Warn("catalog token exchange failed", "error", err)
		sendEvent(c.events, Event{Kind: EventTokenFailed, Err: err})
		return err
	}

	c.token = token
	c.logger.Debug("catalog token acquired")
	sendEvent(c.events, Event{Kind: EventTokenReady})

	// a query typed while the token was pending is searched now
	if strings.TrimSpace(c.query) != "" {
		c.debounce.arm(c.search)
	}
	return nil
}

// Reload reads the playlist from the server and replaces the snapshot used for membership marks.
func (c *SearchController) Reload(ctx context.Context) error {
	p, err := c.playlists.Refetch(ctx, c.playlistID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrViewClosed
	}
	if err != nil {
		c.logger.Warn("failed to load playlist", "error", err)
		return err
	}
	c.playlist = p
	sendEvent(c.events, Event{Kind: EventPlaylistUpdated, Playlist: p.Clone()})
	return nil
}

// SetQuery records a keystroke. Empty queries, and any query while no token is held, clear the results
// and close the panel without a network call. Otherwise the debounce timer is re-armed.
func (c *SearchController) SetQuery(q string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrViewClosed
	}

	c.query = q
	c.searching = false

	if strings.TrimSpace(q) == "" || c.token == "" {
		c.debounce.stop()
		c.results = nil
		c.panelOpen = false
		return nil
	}

	c.debounce.arm(c.search)
	return nil
}

// search runs when the debounce timer for gen fires.
func (c *SearchController) search(gen uint64) {
	c.mu.Lock()
	if c.closed || !c.debounce.live(gen) {
		c.mu.Unlock()
		return
	}
	query, token := c.query, c.token
	c.searching = true
	c.mu.Unlock()

	c.logger.Debug("searching catalog", "query", query)
	tracks, err := c.catalog.Search(c.ctx, query, token)

	c.mu.Lock()
	defer c.mu.Unlock()

	// superseded by a later keystroke, or the view is gone
	if c.closed || !c.debounce.live(gen) {
		return
	}
	c.searching = false

	if err != nil {
		c.searchErr = err
		c.logger.Warn("catalog search failed", "query", query, "error", err)
		sendEvent(c.events, Event{Kind: EventSearchFailed, Query: query, Err: err})
		return
	}

	c.searchErr = nil
	c.results = tracks
	c.panelOpen = true
	sendEvent(c.events, Event{Kind: EventResults, Query: query, Count: len(tracks)})
}

// Results returns the current results, marking tracks already in the playlist.
func (c *SearchController) Results() []ResultItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultItems()
}

func (c *SearchController) resultItems() []ResultItem {
	if len(c.results) == 0 {
		return nil
	}
	items := make([]ResultItem, len(c.results))
	for i, t := range c.results {
		items[i] = ResultItem{Track: t, Added: c.playlist.Contains(t.ID)}
	}
	return items
}

// Add appends the result with trackID to the playlist and closes the panel on success.
func (c *SearchController) Add(ctx context.Context, trackID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrViewClosed
	}
	idx := slices.IndexFunc(c.results, func(t models.Track) bool { return t.ID == trackID })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	if c.playlist.Contains(trackID) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrAlreadyAdded, c.results[idx].String())
	}
	song := models.NewSong(c.results[idx])
	c.mu.Unlock()

	c.logger.Info("adding song", "song", song.ID, "title", song.Title)
	return c.mutate(ctx, AppendSong(song), true)
}

// Remove drops the song with songID from the playlist.
func (c *SearchController) Remove(ctx context.Context, songID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrViewClosed
	}
	if !c.playlist.Contains(songID) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, songID)
	}
	c.mu.Unlock()

	c.logger.Info("removing song", "song", songID)
	return c.mutate(ctx, RemoveSong(songID), false)
}

func (c *SearchController) mutate(ctx context.Context, m Mutation, closePanel bool) error {
	_, err := c.queue.do(ctx, c.playlistID, m, func(p *models.Playlist, err error) {
		c.confirm(p, err, closePanel)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return shared.ErrViewClosed
	}
	return nil
}

// confirm publishes the outcome of a queued mutation. It runs on the queue goroutine, in job order.
func (c *SearchController) confirm(p *models.Playlist, err error, closePanel bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if err != nil {
		c.mutationErr = err
		sendEvent(c.events, Event{Kind: EventMutationFailed, Err: err})
		return
	}

	c.mutationErr = nil
	c.playlist = p
	if closePanel {
		c.panelOpen = false
	}
	sendEvent(c.events, Event{Kind: EventPlaylistUpdated, Playlist: p.Clone()})
}

// OpenPanel reopens the results panel when a query is present.
func (c *SearchController) OpenPanel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed && c.token != "" && strings.TrimSpace(c.query) != "" {
		c.panelOpen = true
	}
}

// ClosePanel hides the results panel, keeping the results.
func (c *SearchController) ClosePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = false
}

// State reports the current state.
func (c *SearchController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *SearchController) state() State {
	switch {
	case c.closed:
		return Closed
	case c.token == "" && c.tokenPending:
		return TokenPending
	case c.token == "":
		return Idle
	case c.searching:
		return Searching
	case c.panelOpen:
		return ResultsOpen
	default:
		return Ready
	}
}

// Snapshot copies the controller state.
func (c *SearchController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:       c.state(),
		Query:       c.query,
		Results:     c.resultItems(),
		PanelOpen:   c.panelOpen,
		TokenErr:    c.tokenErr,
		SearchErr:   c.searchErr,
		MutationErr: c.mutationErr,
	}
	if c.playlist != nil {
		s.Playlist = c.playlist.Clone()
	}
	return s
}

// Close tears the view down: the debounce timer and token request are cancelled, results of calls still
// in flight are discarded and the events channel is closed. Close is idempotent.
func (c *SearchController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.debounce.stop()
	c.cancel()
	c.results = nil
	c.panelOpen = false
	close(c.events)
	c.logger.Debug("search view closed")
}

// IsClosed reports whether err came from a torn-down view.
func IsClosed(err error) bool {
	return errors.Is(err, shared.ErrViewClosed)
}
