package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	th "github.com/desertthunder/mixtape/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shared.RunMigrations(db))

	srv, err := New(Options{DB: db, JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost, Logger: log.New(io.Discard)})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type apiResponse struct {
	Status  int
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
	Header  http.Header
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) apiResponse {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode, Header: resp.Header}
	if data, _ := io.ReadAll(resp.Body); len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return out
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()

	res := call(t, ts, http.MethodPost, "/auth/register", "", models.RegisterInput{Username: "tester", Email: email, Password: "secret1"})
	require.Equal(t, http.StatusCreated, res.Status, res.Message)

	res = call(t, ts, http.MethodPost, "/auth/login", "", models.LoginInput{Email: email, Password: "secret1"})
	require.Equal(t, http.StatusOK, res.Status, res.Message)

	var data struct{ Token string }
	require.NoError(t, json.Unmarshal(res.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestRouter(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mark("outer"), mark("inner"))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	}), mark("route"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"outer", "inner", "route", "handler"}, order)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMiddleware(t *testing.T) {
	logger := log.New(io.Discard)

	t.Run("request id", func(t *testing.T) {
		var seen string
		h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = RequestIDFrom(r.Context()) }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc", seen)
	})

	t.Run("recover", func(t *testing.T) {
		h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Internal server error")
	})

	t.Run("logger keeps status", func(t *testing.T) {
		h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("auth", func(t *testing.T) {
		tokens := NewTokenIssuer("s", time.Hour)
		token, err := tokens.Issue("user-1")
		require.NoError(t, err)

		var user string
		h := RequireAuth(tokens)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { user = UserIDFrom(r.Context()) }))

		for _, header := range []string{token, "Bearer " + token} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "user-1", user)
		}

		for _, header := range []string{"", "garbage"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	sub, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, errInvalidToken)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.ErrorIs(t, err, errInvalidToken)

	assert.Equal(t, DefaultTokenTTL, NewTokenIssuer("x", 0).ttl)
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register", func(t *testing.T) {
		res := call(t, ts, http.MethodPost, "/auth/register", "", models.RegisterInput{Username: "abc", Email: "a@b.com", Password: "secret1"})
		assert.Equal(t, http.StatusCreated, res.Status)
		assert.Equal(t, "User registered successfully", res.Message)

		res = call(t, ts, http.MethodPost, "/auth/register", "", models.RegisterInput{Username: "abd", Email: "A@B.com", Password: "secret1"})
		assert.Equal(t, http.StatusConflict, res.Status)
		assert.Equal(t, "User already exists", res.Message)
	})

	t.Run("register validation", func(t *testing.T) {
		res := call(t, ts, http.MethodPost, "/auth/register", "", models.RegisterInput{Username: "ab", Email: "nope", Password: "12345"})
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Equal(t, "Password must be at least 6 characters", res.Errors["password"])
		assert.Equal(t, "Email is invalid", res.Errors["email"])
		assert.Equal(t, "Email is invalid", res.Message)
	})

	t.Run("login", func(t *testing.T) {
		res := call(t, ts, http.MethodPost, "/auth/login", "", models.LoginInput{Email: "a@b.com", Password: "secret1"})
		require.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, string(res.Data), `"token"`)

		res = call(t, ts, http.MethodPost, "/auth/login", "", models.LoginInput{Email: "a@b.com", Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, res.Status)
		assert.Equal(t, "Invalid email or password", res.Message)

		res = call(t, ts, http.MethodPost, "/auth/login", "", models.LoginInput{Email: "ghost@b.com", Password: "secret1"})
		assert.Equal(t, http.StatusUnauthorized, res.Status)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/auth/login", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPlaylistRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "owner@b.com")
	other := registerAndLogin(t, ts, "other@b.com")

	res := call(t, ts, http.MethodGet, "/playlists/", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.Status)

	res = call(t, ts, http.MethodPost, "/playlists/", token, models.PlaylistInput{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "Playlist name is required", res.Message)

	res = call(t, ts, http.MethodPost, "/playlists/", token, models.PlaylistInput{Name: "Road trip", Description: "long drive"})
	require.Equal(t, http.StatusCreated, res.Status)
	var created models.Playlist
	require.NoError(t, json.Unmarshal(res.Data, &created))
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.Songs)
	path := "/playlists/" + created.ID

	res = call(t, ts, http.MethodGet, "/playlists/", token, nil)
	var list []models.Playlist
	require.NoError(t, json.Unmarshal(res.Data, &list))
	assert.Len(t, list, 1)

	res = call(t, ts, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, res.Status, "other users cannot see the playlist")

	song := models.NewSong(th.Track("a"))
	res = call(t, ts, http.MethodPut, path, token, map[string]any{"songs": []models.Song{song}})
	require.Equal(t, http.StatusOK, res.Status, res.Message)

	res = call(t, ts, http.MethodPut, path, token, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, res.Status)
	var updated models.Playlist
	require.NoError(t, json.Unmarshal(res.Data, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "long drive", updated.Description)
	assert.Equal(t, []string{"a"}, updated.SongIDs(), "songs untouched by a name update")

	res = call(t, ts, http.MethodPut, path, token, map[string]any{"songs": []models.Song{song, song}})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = call(t, ts, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Playlist deleted", res.Message)

	res = call(t, ts, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Playlist not found", res.Message)
}

func TestClientsAgainstServer(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	logger := log.New(io.Discard)

	auth := services.NewAuthClient(services.AuthOptions{BaseURL: ts.URL, Logger: logger})
	msg, err := auth.Register(ctx, models.RegisterInput{Username: "abc", Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", msg)

	_, err = auth.Register(ctx, models.RegisterInput{Username: "abc", Email: "a@b.com", Password: "secret1"})
	var reqErr *shared.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusConflict, reqErr.Status)
	assert.Equal(t, "User already exists", reqErr.Message)

	store := session.NewStore(nil, logger)
	playlists := services.NewPlaylistClient(services.PlaylistOptions{BaseURL: ts.URL, Tokens: store, Logger: logger})

	_, err = playlists.List(ctx)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

	token, err := auth.Login(ctx, models.LoginInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, store.SetToken(ctx, token))

	p, err := playlists.Create(ctx, models.PlaylistInput{Name: "Mix"})
	require.NoError(t, err)

	_, err = playlists.Update(ctx, p.ID, models.WithSongs([]models.Song{models.NewSong(th.Track("a"))}))
	require.NoError(t, err)

	got, err := playlists.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.SongIDs())

	require.NoError(t, playlists.Remove(ctx, p.ID))
	_, err = playlists.Get(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
}

func TestServe(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, shared.RunMigrations(db))

	srv, err := New(Options{DB: db, JWTSecret: "s", Logger: log.New(io.Discard)})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{JWTSecret: "s"})
	assert.Error(t, err)

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = New(Options{DB: db})
	assert.Error(t, err)
}
