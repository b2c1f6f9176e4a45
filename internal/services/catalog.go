// Spotify catalog client: client-credentials token exchange and track search.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultSearchLimit is the number of tracks a search returns.
	DefaultSearchLimit = 5
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track object.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	PreviewURL  *string         `json:"preview_url"`
	Explicit    bool            `json:"explicit"`
	TrackNumber int             `json:"track_number"`
	URI         string          `json:"uri"`
}

// SpotifySearchResponse is the body of GET /search?type=track.
type SpotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// ToTrack converts the Spotify representation into a [models.Track]. The cover is the first album image, or "".
func (t SpotifyTrack) ToTrack() models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.Artist{Name: a.Name, ID: a.ID})
	}

	cover := ""
	if len(t.Album.Images) > 0 {
		cover = t.Album.Images[0].URL
	}

	return models.Track{
		ID:          t.ID,
		Title:       t.Name,
		Artists:     artists,
		Album:       models.Album{Name: t.Album.Name, CoverURL: cover, ID: t.Album.ID},
		DurationMS:  t.DurationMS,
		PreviewURL:  t.PreviewURL,
		Explicit:    t.Explicit,
		TrackNumber: t.TrackNumber,
		URI:         t.URI,
	}
}

// CatalogOptions configures a [CatalogClient]. Zero values select Spotify's public endpoints.
type CatalogOptions struct {
	TokenURL   string
	APIURL     string
	Limit      int
	RateLimit  float64 // searches per second; 0 disables limiting
	HTTPClient *http.Client
}

// CatalogClient talks to the Spotify Web API. It never caches or refreshes tokens; callers own the token.
type CatalogClient struct {
	tokenURL   string
	limit      int
	httpClient *http.Client
	client     *resty.Client
	limiter    *rate.Limiter
}

// NewCatalogClient creates a catalog client.
func NewCatalogClient(opts CatalogOptions) *CatalogClient {
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = spotifyBaseURL
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CatalogClient{
		tokenURL:   opts.TokenURL,
		limit:      opts.Limit,
		httpClient: opts.HTTPClient,
		client:     newRestClient(strings.TrimRight(opts.APIURL, "/"), 0, opts.HTTPClient),
		limiter:    limiter,
	}
}

// AcquireToken exchanges client credentials for an app access token.
//
// The credentials are sent as HTTP Basic auth over the raw id and secret, with
// grant_type=client_credentials in the form body.
// Every failure is reported as a [shared.AuthExchangeError].
func (c *CatalogClient) AcquireToken(ctx context.Context, clientID, clientSecret string) (string, error) {
	if clientID == "" || clientSecret == "" {
		return "", &shared.AuthExchangeError{Err: shared.ErrMissingCredentials}
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// oauth2 form-escapes the id and secret before encoding them; Spotify expects them as issued.
	hc := *c.httpClient
	hc.Transport = &basicAuthTransport{id: clientID, secret: clientSecret, base: c.httpClient.Transport}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &hc)
	token, err := cfg.Token(ctx)
	if err != nil {
		exchangeErr := &shared.AuthExchangeError{Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			exchangeErr.Status = re.Response.StatusCode
		}
		return "", exchangeErr
	}

	return token.AccessToken, nil
}

type basicAuthTransport struct {
	id, secret string
	base       http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.id, t.secret)
	return base.RoundTrip(req)
}

// Search returns up to the configured limit of tracks matching query, in catalog order.
// The query is sent as typed; a blank one is rejected without a request.
func (c *CatalogClient) Search(ctx context.Context, query, token string) ([]models.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	if token == "" {
		return nil, &shared.SearchError{Err: shared.ErrNotAuthenticated}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &shared.SearchError{Err: err}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":     query,
			"type":  "track",
			"limit": strconv.Itoa(c.limit),
		}).
		Get("/search")
	if err != nil {
		return nil, &shared.SearchError{Err: err}
	}

	if !resp.IsSuccess() {
		var body spotifyErrorBody
		msg := http.StatusText(resp.StatusCode())
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return nil, &shared.SearchError{Status: resp.StatusCode(), Err: errors.New(msg)}
	}

	var result SpotifySearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &shared.SearchError{Status: resp.StatusCode(), Err: fmt.Errorf("malformed search response: %w", err)}
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, item := range result.Tracks.Items {
		tracks = append(tracks, item.ToTrack())
	}
	return tracks, nil
}
