// package services implements the HTTP clients for the Spotify catalog and the playlist backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// TokenSource yields the live session token at request time.
type TokenSource interface {
	Token() (string, bool)
}

// Catalog is the external music catalog used by the search controller.
type Catalog interface {
	AcquireToken(ctx context.Context, clientID, clientSecret string) (string, error)
	Search(ctx context.Context, query, token string) ([]models.Track, error)
}

// Playlists is the playlist backend as seen by the search controller.
type Playlists interface {
	Get(ctx context.Context, id string) (*models.Playlist, error)
	Refetch(ctx context.Context, id string) (*models.Playlist, error)
	Update(ctx context.Context, id string, u models.PlaylistUpdate) (*models.Playlist, error)
}

var (
	_ Catalog   = (*CatalogClient)(nil)
	_ Playlists = (*PlaylistClient)(nil)
)

// newRestClient builds a resty client with retries disabled. A nil httpClient uses [http.DefaultClient]'s transport.
func newRestClient(baseURL string, timeout time.Duration, httpClient *http.Client) *resty.Client {
	var c *resty.Client
	if httpClient != nil {
		c = resty.NewWithClient(httpClient)
	} else {
		c = resty.New()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return c.
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// messageBody is the backend's error and notice shape.
type messageBody struct {
	Message string `json:"message"`
}

// requestError maps a non-success response to a [shared.RequestError] using the backend message when present.
func requestError(resp *resty.Response, fallback string) error {
	var body messageBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Message == "" {
		body.Message = fallback
	}
	return &shared.RequestError{Status: resp.StatusCode(), Message: body.Message}
}

// decodeData decodes the "data" member of a {data: ...} envelope, falling back to the bare body.
func decodeData(body []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: malformed response: %v", shared.ErrAPIRequest, err)
	}

	raw := env.Data
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = body
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}
