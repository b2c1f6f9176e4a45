package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Track builds a catalog track fixture with deterministic metadata.
func Track(id string) models.Track {
	preview := "https://p.scdn.co/mp3-preview/" + id
	return models.Track{
		ID:          id,
		Title:       "Title " + id,
		Artists:     []models.Artist{{Name: "Artist " + id, ID: "artist-" + id}},
		Album:       models.Album{Name: "Album " + id, CoverURL: "https://i.scdn.co/image/" + id, ID: "album-" + id},
		DurationMS:  180000,
		PreviewURL:  &preview,
		TrackNumber: 1,
		URI:         "spotify:track:" + id,
	}
}

// FakeCatalog is an in-process catalog. Results are keyed by the trimmed, lower-cased query.
type FakeCatalog struct {
	mu        sync.Mutex
	token     string
	tokenErr  error
	tokenHold chan struct{}
	results   map[string][]models.Track
	searchErr error
	queries   []string
	tokens    int
}

// NewFakeCatalog creates a catalog that issues token "catalog-token".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{token: "catalog-token", results: map[string][]models.Track{}}
}

// SetResults registers the tracks returned for query.
func (f *FakeCatalog) SetResults(query string, tracks ...models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[normalize(query)] = tracks
}

// FailToken makes AcquireToken fail with an exchange error.
func (f *FakeCatalog) FailToken(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenErr = &shared.AuthExchangeError{Status: status, Err: fmt.Errorf("token endpoint returned %d", status)}
}

// HoldToken blocks AcquireToken until release is called or the context ends.
func (f *FakeCatalog) HoldToken() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold := make(chan struct{})
	f.tokenHold = hold
	var once sync.Once
	return func() { once.Do(func() { close(hold) }) }
}

// FailSearch makes every later search fail with err; nil restores normal behaviour.
func (f *FakeCatalog) FailSearch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr = err
}

// Queries returns every query searched so far, in order.
func (f *FakeCatalog) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// TokenRequests counts AcquireToken calls.
func (f *FakeCatalog) TokenRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens
}

func (f *FakeCatalog) AcquireToken(ctx context.Context, clientID, clientSecret string) (string, error) {
	f.mu.Lock()
	f.tokens++
	hold, token, err := f.tokenHold, f.token, f.tokenErr
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return "", &shared.AuthExchangeError{Err: ctx.Err()}
		}
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (f *FakeCatalog) Search(ctx context.Context, query, token string) ([]models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, &shared.SearchError{Err: f.searchErr}
	}
	if token != f.token {
		return nil, &shared.SearchError{Status: 401, Err: fmt.Errorf("invalid token %q", token)}
	}
	return append([]models.Track(nil), f.results[normalize(query)]...), nil
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
