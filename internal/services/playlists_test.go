package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/cache"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	th "github.com/desertthunder/mixtape/internal/testing"
)

type mutableTokens struct {
	mu    sync.Mutex
	token string
}

func (m *mutableTokens) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *mutableTokens) set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func newPlaylistClient(t *testing.T, backend *th.PlaylistBackend, tokens TokenSource) *PlaylistClient {
	t.Helper()
	return NewPlaylistClient(PlaylistOptions{
		BaseURL:  backend.URL(),
		Tokens:   tokens,
		Cache:    cache.NewMemoryCache(time.Minute),
		CacheTTL: time.Minute,
	})
}

func seedPlaylist(backend *th.PlaylistBackend, id string, songIDs ...string) {
	p := models.Playlist{ID: id, Name: "Playlist " + id}
	for _, sid := range songIDs {
		p.Songs = append(p.Songs, models.NewSong(th.Track(sid)))
	}
	backend.Seed(p)
}

func TestPlaylistClientAuthorization(t *testing.T) {
	t.Run("raw token read at send time", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1")
		tokens := &mutableTokens{token: "T1"}
		client := NewPlaylistClient(PlaylistOptions{BaseURL: backend.URL(), Tokens: tokens})

		if _, err := client.List(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tokens.set("T2")
		if _, err := client.Get(context.Background(), "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		reqs := backend.Requests(http.MethodGet)
		if len(reqs) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(reqs))
		}
		if reqs[0].Authorization != "T1" || reqs[1].Authorization != "T2" {
			t.Errorf("expected raw live tokens, got %q and %q", reqs[0].Authorization, reqs[1].Authorization)
		}
	})

	t.Run("header omitted without a token", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		client := NewPlaylistClient(PlaylistOptions{BaseURL: backend.URL(), Tokens: th.StaticTokens("")})

		if _, err := client.List(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := backend.Requests(http.MethodGet)[0].Authorization; got != "" {
			t.Errorf("expected no Authorization header, got %q", got)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		backend.Token = "good"
		client := NewPlaylistClient(PlaylistOptions{BaseURL: backend.URL(), Tokens: th.StaticTokens("bad")})

		_, err := client.List(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestPlaylistClientCache(t *testing.T) {
	ctx := context.Background()

	t.Run("reads are cached", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		for range 3 {
			if _, err := client.List(ctx); err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if _, err := client.Get(ctx, "p1"); err != nil {
				t.Fatalf("get failed: %v", err)
			}
		}

		if n := backend.Count(http.MethodGet, "/playlists/"); n != 1 {
			t.Errorf("expected 1 list request, got %d", n)
		}
		if n := backend.Count(http.MethodGet, "/playlists/p1"); n != 1 {
			t.Errorf("expected 1 get request, got %d", n)
		}
	})

	t.Run("update invalidates list and playlist", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.List(ctx); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if _, err := client.Get(ctx, "p1"); err != nil {
			t.Fatalf("get failed: %v", err)
		}

		songs := []models.Song{models.NewSong(th.Track("a")), models.NewSong(th.Track("b"))}
		if _, err := client.Update(ctx, "p1", models.WithSongs(songs)); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		p, err := client.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !slices.Equal(p.SongIDs(), []string{"a", "b"}) {
			t.Errorf("expected fresh songs, got %v", p.SongIDs())
		}

		list, err := client.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list[0].Songs) != 2 {
			t.Errorf("expected fresh list, got %d songs", len(list[0].Songs))
		}

		if n := backend.Count(http.MethodGet, "/playlists/"); n != 2 {
			t.Errorf("expected list to be refetched once, got %d requests", n)
		}
	})

	t.Run("create and remove invalidate the list", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if list, _ := client.List(ctx); len(list) != 0 {
			t.Fatalf("expected empty list, got %d", len(list))
		}

		created, err := client.Create(ctx, models.PlaylistInput{Name: "Road trip", Description: "d"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if list, _ := client.List(ctx); len(list) != 1 {
			t.Fatalf("expected created playlist in list, got %d", len(list))
		}

		if err := client.Remove(ctx, created.ID); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if list, _ := client.List(ctx); len(list) != 0 {
			t.Errorf("expected removed playlist to disappear, got %d", len(list))
		}
		if _, err := client.Get(ctx, created.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("refetch bypasses the cache", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.Get(ctx, "p1"); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		seedPlaylist(backend, "p1", "a", "z")

		p, err := client.Refetch(ctx, "p1")
		if err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		if len(p.Songs) != 2 {
			t.Errorf("expected server state, got %v", p.SongIDs())
		}

		cached, _ := client.Get(ctx, "p1")
		if len(cached.Songs) != 2 {
			t.Errorf("refetch should refresh the cached copy, got %v", cached.SongIDs())
		}
	})

	t.Run("explicit invalidation", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		for range 2 {
			if _, err := client.List(ctx); err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if _, err := client.Get(ctx, "p1"); err != nil {
				t.Fatalf("get failed: %v", err)
			}
			client.Invalidate(ctx, "p1")
		}

		if n := backend.Count(http.MethodGet, "/playlists/"); n != 2 {
			t.Errorf("expected 2 list requests, got %d", n)
		}
		if n := backend.Count(http.MethodGet, "/playlists/p1"); n != 2 {
			t.Errorf("expected 2 get requests, got %d", n)
		}
	})

	t.Run("failed update keeps cache", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.Get(ctx, "p1"); err != nil {
			t.Fatalf("get failed: %v", err)
		}

		backend.FailNext(http.MethodPut, http.StatusInternalServerError)
		_, err := client.Update(ctx, "p1", models.WithSongs(nil))
		var reqErr *shared.RequestError
		if !errors.As(err, &reqErr) || reqErr.Message != "injected 500" {
			t.Fatalf("expected backend message, got %v", err)
		}

		if _, err := client.Get(ctx, "p1"); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if n := backend.Count(http.MethodGet, "/playlists/p1"); n != 1 {
			t.Errorf("expected cached read after failed update, got %d requests", n)
		}
	})
}

func TestPlaylistClientRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("update sends only supplied fields", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		name := "Renamed"
		p, err := client.Update(ctx, "p1", models.PlaylistUpdate{Name: &name})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if p.Name != "Renamed" || !slices.Equal(p.SongIDs(), []string{"a"}) {
			t.Errorf("unexpected result %+v", p)
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(backend.Requests(http.MethodPut)[0].Body, &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if _, ok := body["songs"]; ok || len(body) != 1 {
			t.Errorf("expected only name in body, got %v", body)
		}
	})

	t.Run("invalid forms send nothing", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.Create(ctx, models.PlaylistInput{Name: "  "}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		empty := ""
		if _, err := client.Update(ctx, "p1", models.PlaylistUpdate{Name: &empty}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := client.Update(ctx, "p1", models.PlaylistUpdate{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty update, got %v", err)
		}
		if n := len(backend.Requests("")); n != 0 {
			t.Errorf("expected no requests, got %d", n)
		}
	})

	t.Run("missing playlist", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.Get(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if err := client.Remove(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("playlists with duplicate songs stay readable", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		backend.Seed(models.Playlist{ID: "p1", Name: "dup", Songs: []models.Song{{ID: "a"}, {ID: "a"}}})
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		p, err := client.Get(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(p.Songs) != 2 {
			t.Errorf("expected both copies, got %d songs", len(p.Songs))
		}
		if _, err := client.Refetch(ctx, "p1"); err != nil {
			t.Errorf("refetch failed: %v", err)
		}
		if list, err := client.List(ctx); err != nil || len(list) != 1 {
			t.Errorf("expected one playlist, got %v %v", list, err)
		}
	})

	t.Run("malformed playlists from the server are rejected", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		backend.Seed(models.Playlist{ID: "p1", Name: "bad", Songs: []models.Song{{Title: "no id"}}})
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		if _, err := client.Get(ctx, "p1"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("update answered with a message succeeds", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		backend.AnswerUpdatesWith("Playlist updated")
		client := newPlaylistClient(t, backend, th.StaticTokens("T"))

		p, err := client.Update(ctx, "p1", models.WithSongs(nil))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p != nil {
			t.Errorf("expected no playlist from a message response, got %+v", p)
		}

		stored, _ := backend.Playlist("p1")
		if len(stored.Songs) != 0 {
			t.Errorf("expected the write to be applied, got %d songs", len(stored.Songs))
		}
		got, err := client.Get(ctx, "p1")
		if err != nil || len(got.Songs) != 0 {
			t.Errorf("expected refreshed empty playlist, got %v %v", got, err)
		}
	})

	t.Run("concurrent gets share a request", func(t *testing.T) {
		backend := th.NewPlaylistBackend(t)
		seedPlaylist(backend, "p1", "a")
		client := NewPlaylistClient(PlaylistOptions{BaseURL: backend.URL(), Tokens: th.StaticTokens("T")})

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := client.Get(ctx, "p1"); err != nil {
					t.Errorf("get failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if n := backend.Count(http.MethodGet, "/playlists/p1"); n < 1 || n > 10 {
			t.Errorf("unexpected request count %d", n)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		client := NewPlaylistClient(PlaylistOptions{
			BaseURL:    "http://playlists.invalid",
			HTTPClient: &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("dial failed"))},
		})

		if _, err := client.List(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
