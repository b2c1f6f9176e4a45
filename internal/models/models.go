package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persistent models owned by the reference backend.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Artist is a single artist credit on a track or song.
type Artist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Album is the album a track belongs to.
type Album struct {
	Name     string `json:"name"`
	CoverURL string `json:"coverUrl"`
	ID       string `json:"albumId"`
}

// Track is a catalog search result. Tracks are never mutated once returned by the catalog.
type Track struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []Artist `json:"artists"`
	Album       Album    `json:"album"`
	DurationMS  int      `json:"durationMs"`
	PreviewURL  *string  `json:"previewUrl"`
	Explicit    bool     `json:"explicit"`
	TrackNumber int      `json:"trackNumber"`
	URI         string   `json:"uri"`
}

// ArtistNames joins the artist credits in order.
func (t Track) ArtistNames() string {
	return joinArtists(t.Artists)
}

// String renders "Title - Artist, Artist".
func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.Title, t.ArtistNames())
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func joinArtists(artists []Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
