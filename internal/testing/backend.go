package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

// RecordedRequest is one request seen by [PlaylistBackend].
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// PlaylistBackend is an in-memory fake of the playlist backend's HTTP contract.
type PlaylistBackend struct {
	Server *httptest.Server
	// Token, when set, is required verbatim in the Authorization header.
	Token string

	mu        sync.Mutex
	playlists map[string]*models.Playlist
	order     []string
	requests  []RecordedRequest
	failures  map[string][]int
	nextID    int
	updateMsg string

	gate        chan struct{}
	inflightPut int
	maxPut      int
}

// NewPlaylistBackend starts a fake backend that is closed when the test ends.
func NewPlaylistBackend(t *testing.T) *PlaylistBackend {
	t.Helper()

	b := &PlaylistBackend{
		playlists: map[string]*models.Playlist{},
		failures:  map[string][]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /playlists/{$}", b.list)
	mux.HandleFunc("POST /playlists/{$}", b.create)
	mux.HandleFunc("GET /playlists/{id}", b.get)
	mux.HandleFunc("PUT /playlists/{id}", b.update)
	mux.HandleFunc("DELETE /playlists/{id}", b.remove)

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL.
func (b *PlaylistBackend) URL() string { return b.Server.URL }

// Seed stores p as-is, replacing any playlist with the same id.
func (b *PlaylistBackend) Seed(p models.Playlist) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.playlists[p.ID]; !ok {
		b.order = append(b.order, p.ID)
	}
	if p.Songs == nil {
		p.Songs = []models.Song{}
	}
	b.playlists[p.ID] = p.Clone()
}

// Playlist returns a copy of the stored playlist.
func (b *PlaylistBackend) Playlist(id string) (models.Playlist, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.playlists[id]
	if !ok {
		return models.Playlist{}, false
	}
	return *p.Clone(), true
}

// Requests returns recorded requests, filtered by method when method is non-empty.
func (b *PlaylistBackend) Requests(method string) []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	if method == "" {
		return slices.Clone(b.requests)
	}
	var out []RecordedRequest
	for _, r := range b.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many requests matched method and path.
func (b *PlaylistBackend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests(method) {
		if r.Path == path {
			n++
		}
	}
	return n
}

// AnswerUpdatesWith makes PUT answer {message: msg} instead of the stored playlist. An empty msg restores the default.
func (b *PlaylistBackend) AnswerUpdatesWith(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updateMsg = msg
}

// FailNext makes the next request with method answer status with a {message} body.
func (b *PlaylistBackend) FailNext(method string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method] = append(b.failures[method], status)
}

// HoldUpdates blocks PUT handlers until the returned release func is called.
func (b *PlaylistBackend) HoldUpdates() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gate := make(chan struct{})
	b.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// MaxConcurrentUpdates is the highest number of PUTs observed in flight at once.
func (b *PlaylistBackend) MaxConcurrentUpdates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxPut
}

func (b *PlaylistBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		var status int
		if queue := b.failures[r.Method]; len(queue) > 0 {
			status, b.failures[r.Method] = queue[0], queue[1:]
		}
		token := b.Token
		b.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": fmt.Sprintf("injected %d", status)})
			return
		}
		if token != "" && r.Header.Get("Authorization") != token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *PlaylistBackend) list(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]models.Playlist, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.playlists[id].Clone())
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (b *PlaylistBackend) create(w http.ResponseWriter, r *http.Request) {
	var in models.PlaylistInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Playlist name is required"})
		return
	}

	b.mu.Lock()
	b.nextID++
	p := &models.Playlist{ID: fmt.Sprintf("pl-%d", b.nextID), Name: in.Name, Description: in.Description, Songs: []models.Song{}}
	b.playlists[p.ID] = p
	b.order = append(b.order, p.ID)
	out := *p.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (b *PlaylistBackend) get(w http.ResponseWriter, r *http.Request) {
	p, ok := b.Playlist(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Playlist not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (b *PlaylistBackend) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	b.inflightPut++
	b.maxPut = max(b.maxPut, b.inflightPut)
	gate := b.gate
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inflightPut--
		b.mu.Unlock()
	}()

	if gate != nil {
		<-gate
	}

	var u models.PlaylistUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	p, ok := b.playlists[id]
	if !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Playlist not found"})
		return
	}
	next := u.Apply(*p)
	if next.Songs == nil {
		next.Songs = []models.Song{}
	}
	b.playlists[id] = &next
	out := *next.Clone()
	msg := b.updateMsg
	b.mu.Unlock()

	if msg != "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (b *PlaylistBackend) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	_, ok := b.playlists[id]
	if ok {
		delete(b.playlists, id)
		b.order = slices.DeleteFunc(b.order, func(s string) bool { return s == id })
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Playlist not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
