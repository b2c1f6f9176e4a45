package services

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/mixtape/internal/shared"
)

const searchBody = `{"tracks":{"total":2,"items":[
	{"id":"t1","name":"One More Time","duration_ms":320357,"explicit":false,"track_number":1,"uri":"spotify:track:t1",
	 "preview_url":"https://p.scdn.co/t1","artists":[{"id":"a1","name":"Daft Punk"}],
	 "album":{"id":"al1","name":"Discovery","images":[{"url":"https://i.scdn.co/large","height":640},{"url":"https://i.scdn.co/small","height":64}]}},
	{"id":"t2","name":"Aerodynamic","duration_ms":212000,"explicit":true,"track_number":2,"uri":"spotify:track:t2",
	 "preview_url":null,"artists":[{"id":"a1","name":"Daft Punk"},{"id":"a2","name":"Guest"}],
	 "album":{"id":"al1","name":"Discovery","images":[]}}
]}}`

func newCatalogServer(t *testing.T, handler http.HandlerFunc) *CatalogClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCatalogClient(CatalogOptions{
		TokenURL:   srv.URL + "/api/token",
		APIURL:     srv.URL + "/v1",
		HTTPClient: srv.Client(),
	})
}

func TestCatalogClientAcquireToken(t *testing.T) {
	t.Run("sends basic auth and client_credentials grant", func(t *testing.T) {
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/token" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			want := "Basic " + base64.StdEncoding.EncodeToString([]byte("id:secret"))
			if got := r.Header.Get("Authorization"); got != want {
				t.Errorf("expected Authorization %q, got %q", want, got)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
				t.Errorf("expected grant_type client_credentials, got %q", got)
			}
			if r.PostForm.Get("client_id") != "" {
				t.Error("credentials should only be sent in the header")
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
		})

		token, err := client.AcquireToken(context.Background(), "id", "secret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "app-token" {
			t.Errorf("expected app-token, got %s", token)
		}
	})

	t.Run("secret with reserved characters is encoded as issued", func(t *testing.T) {
		const id, secret = "app id", "s+c/r=t:x%"
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			want := "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+secret))
			if got := r.Header.Get("Authorization"); got != want {
				t.Errorf("expected Authorization %q, got %q", want, got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
		})

		token, err := client.AcquireToken(context.Background(), id, secret)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "app-token" {
			t.Errorf("expected app-token, got %s", token)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_client"}`))
		})

		_, err := client.AcquireToken(context.Background(), "id", "wrong")
		var exErr *shared.AuthExchangeError
		if !errors.As(err, &exErr) {
			t.Fatalf("expected AuthExchangeError, got %v", err)
		}
		if exErr.Status != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", exErr.Status)
		}
	})

	t.Run("missing credentials skip the request", func(t *testing.T) {
		var calls atomic.Int32
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

		_, err := client.AcquireToken(context.Background(), "", "secret")
		if !errors.Is(err, shared.ErrMissingCredentials) || !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected missing credentials exchange error, got %v", err)
		}
		if calls.Load() != 0 {
			t.Error("no request should be sent")
		}
	})
}

func TestCatalogClientSearch(t *testing.T) {
	t.Run("maps tracks", func(t *testing.T) {
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("q") != "  daft punk " || q.Get("type") != "track" || q.Get("limit") != "5" {
				t.Errorf("unexpected query %v", q)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchBody))
		})

		tracks, err := client.Search(context.Background(), "  daft punk ", "app-token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.ID != "t1" || first.Title != "One More Time" || first.DurationMS != 320357 {
			t.Errorf("unexpected first track %+v", first)
		}
		if first.Album.CoverURL != "https://i.scdn.co/large" {
			t.Errorf("expected first image as cover, got %s", first.Album.CoverURL)
		}
		if first.PreviewURL == nil || *first.PreviewURL != "https://p.scdn.co/t1" {
			t.Error("expected preview url")
		}

		second := tracks[1]
		if second.Album.CoverURL != "" || second.PreviewURL != nil || !second.Explicit {
			t.Errorf("unexpected second track %+v", second)
		}
		if second.ArtistNames() != "Daft Punk, Guest" {
			t.Errorf("expected artist order preserved, got %s", second.ArtistNames())
		}
	})

	t.Run("empty query makes no request", func(t *testing.T) {
		var calls atomic.Int32
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

		for _, q := range []string{"", "   "} {
			if _, err := client.Search(context.Background(), q, "app-token"); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for %q, got %v", q, err)
			}
		}
		if calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", calls.Load())
		}
	})

	t.Run("expired token is not refreshed", func(t *testing.T) {
		var calls atomic.Int32
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		})

		_, err := client.Search(context.Background(), "daft punk", "stale")
		var searchErr *shared.SearchError
		if !errors.As(err, &searchErr) {
			t.Fatalf("expected SearchError, got %v", err)
		}
		if searchErr.Status != http.StatusUnauthorized || searchErr.Err.Error() != "The access token expired" {
			t.Errorf("unexpected search error %+v", searchErr)
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly one request, got %d", calls.Load())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		})

		if _, err := client.Search(context.Background(), "x", "t"); !errors.Is(err, shared.ErrSearchUnavailable) {
			t.Errorf("expected ErrSearchUnavailable, got %v", err)
		}
	})

	t.Run("custom limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %s", got)
			}
			w.Write([]byte(`{"tracks":{"items":[]}}`))
		}))
		defer srv.Close()

		client := NewCatalogClient(CatalogOptions{APIURL: srv.URL, Limit: 10, RateLimit: 100})
		tracks, err := client.Search(context.Background(), "x", "t")
		if err != nil || len(tracks) != 0 {
			t.Errorf("expected empty result, got %v %v", tracks, err)
		}
	})
}
