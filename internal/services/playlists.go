package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/cache"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	listCacheKey    = "playlists:list"
	defaultCacheTTL = 5 * time.Minute
)

func playlistCacheKey(id string) string { return "playlists:" + id }

// PlaylistOptions configures a [PlaylistClient].
type PlaylistOptions struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	Cache      cache.Cache // nil disables caching
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// PlaylistClient wraps the playlist backend.
//
// Reads of the list and of single playlists go through one cache group; every successful create, update
// or delete invalidates the list and the affected playlist so the next read goes to the server.
type PlaylistClient struct {
	client *resty.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Logger
	group  singleflight.Group

	// bumped on every invalidation; a read started under an older epoch does not repopulate the cache
	epoch atomic.Uint64
}

// NewPlaylistClient creates a playlist client. The Authorization header is read from opts.Tokens at send time.
func NewPlaylistClient(opts PlaylistOptions) *PlaylistClient {
	if opts.Cache == nil {
		opts.Cache = cache.NopCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	client := newRestClient(strings.TrimRight(opts.BaseURL, "/"), opts.Timeout, opts.HTTPClient)
	tokens := opts.Tokens
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if tokens == nil {
			return nil
		}
		if token, ok := tokens.Token(); ok && token != "" {
			r.SetHeader("Authorization", token)
		}
		return nil
	})

	return &PlaylistClient{
		client: client,
		cache:  opts.Cache,
		ttl:    opts.CacheTTL,
		logger: opts.Logger,
	}
}

// List returns the session user's playlists.
func (c *PlaylistClient) List(ctx context.Context) ([]models.Playlist, error) {
	var cached []models.Playlist
	if c.readCache(ctx, listCacheKey, &cached) {
		return cached, nil
	}

	v, err, _ := c.group.Do(listCacheKey, func() (any, error) {
		epoch := c.epoch.Load()

		resp, err := c.client.R().SetContext(ctx).Get("/playlists/")
		if err != nil {
			return nil, fmt.Errorf("%w: list playlists: %v", shared.ErrAPIRequest, err)
		}
		if !resp.IsSuccess() {
			return nil, requestError(resp, "Failed to load playlists")
		}

		playlists := []models.Playlist{}
		if err := decodeData(resp.Body(), &playlists); err != nil {
			return nil, err
		}
		for i := range playlists {
			if err := playlists[i].Validate(); err != nil {
				return nil, fmt.Errorf("%w: invalid playlist in list: %v", shared.ErrAPIRequest, err)
			}
			c.warnDuplicates(&playlists[i])
		}

		c.writeCache(ctx, epoch, listCacheKey, playlists)
		return playlists, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePlaylists(v.([]models.Playlist)), nil
}

// Get returns one playlist, served from cache when fresh. Concurrent calls for one id share a request.
func (c *PlaylistClient) Get(ctx context.Context, id string) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var cached models.Playlist
	if c.readCache(ctx, playlistCacheKey(id), &cached) {
		return &cached, nil
	}

	v, err, _ := c.group.Do(playlistCacheKey(id), func() (any, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Playlist).Clone(), nil
}

// Refetch reads a playlist from the server, bypassing the cache, and refreshes the cached copy.
func (c *PlaylistClient) Refetch(ctx context.Context, id string) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	return c.fetch(ctx, id)
}

func (c *PlaylistClient) fetch(ctx context.Context, id string) (*models.Playlist, error) {
	epoch := c.epoch.Load()

	resp, err := c.client.R().SetContext(ctx).Get("/playlists/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: get playlist: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return nil, requestError(resp, "Failed to load playlist")
	}

	p, err := c.decodePlaylist(resp.Body())
	if err != nil {
		return nil, err
	}

	c.writeCache(ctx, epoch, playlistCacheKey(id), p)
	return p, nil
}

// Create creates a playlist from a validated form.
func (c *PlaylistClient) Create(ctx context.Context, in models.PlaylistInput) (*models.Playlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidatePlaylist(in); err != nil {
		return nil, err
	}

	resp, err := c.client.R().SetContext(ctx).SetBody(in).Post("/playlists/")
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return nil, requestError(resp, "Failed to create playlist")
	}

	c.invalidate(ctx, listCacheKey)

	p, err := c.decodePlaylist(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Info("created playlist", "id", p.ID, "name", p.Name)
	return p, nil
}

// Update sends only the fields set in u. A non-nil Songs replaces the whole sequence.
// The returned playlist is nil when the backend answers without one; callers refetch when they need it.
func (c *PlaylistClient) Update(ctx context.Context, id string, u models.PlaylistUpdate) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if u.Empty() {
		return nil, fmt.Errorf("%w: empty playlist update", shared.ErrInvalidInput)
	}
	if u.Name != nil {
		if err := shared.ValidatePlaylist(models.PlaylistInput{Name: *u.Name}); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.R().SetContext(ctx).SetBody(u).Put("/playlists/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: update playlist: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return nil, requestError(resp, "Failed to update playlist")
	}

	c.invalidate(ctx, listCacheKey, playlistCacheKey(id))

	// Any 2xx means the write was applied. The body is returned only when it is a playlist.
	var p models.Playlist
	if len(resp.Body()) == 0 || decodeData(resp.Body(), &p) != nil || p.Validate() != nil {
		c.logger.Debug("update response carried no playlist", "id", id)
		return nil, nil
	}
	if p.Songs == nil {
		p.Songs = []models.Song{}
	}
	return &p, nil
}

// Remove deletes a playlist.
func (c *PlaylistClient) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	resp, err := c.client.R().SetContext(ctx).Delete("/playlists/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("%w: delete playlist: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return requestError(resp, "Failed to delete playlist")
	}

	c.invalidate(ctx, listCacheKey, playlistCacheKey(id))
	c.logger.Info("deleted playlist", "id", id)
	return nil
}

// Invalidate drops the cached list and the cached playlists in ids.
func (c *PlaylistClient) Invalidate(ctx context.Context, ids ...string) {
	keys := []string{listCacheKey}
	for _, id := range ids {
		keys = append(keys, playlistCacheKey(id))
	}
	c.invalidate(ctx, keys...)
}

func (c *PlaylistClient) invalidate(ctx context.Context, keys ...string) {
	c.epoch.Add(1)
	for _, k := range keys {
		c.group.Forget(k)
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn("failed to invalidate playlist cache", "keys", keys, "error", err)
	}
}

func (c *PlaylistClient) readCache(ctx context.Context, key string, out any) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("playlist cache read failed", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (c *PlaylistClient) writeCache(ctx context.Context, epoch uint64, key string, v any) {
	if c.epoch.Load() != epoch {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("playlist cache write failed", "key", key, "error", err)
	}
}

func (c *PlaylistClient) decodePlaylist(body []byte) (*models.Playlist, error) {
	var p models.Playlist
	if err := decodeData(body, &p); err != nil {
		return nil, err
	}
	if p.Songs == nil {
		p.Songs = []models.Song{}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid playlist: %v", shared.ErrAPIRequest, err)
	}
	c.warnDuplicates(&p)
	return &p, nil
}

// warnDuplicates logs repeated song ids. Such playlists stay readable so the extra copies can be removed.
func (c *PlaylistClient) warnDuplicates(p *models.Playlist) {
	if dups := p.DuplicateSongs(); len(dups) > 0 {
		c.logger.Warn("playlist has duplicate songs", "id", p.ID, "songs", dups)
	}
}

func clonePlaylists(in []models.Playlist) []models.Playlist {
	out := make([]models.Playlist, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}
