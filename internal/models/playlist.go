package models

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrMissingPlaylistID   = errors.New("playlist id is required")
	ErrMissingPlaylistName = errors.New("playlist name is required")
	ErrMissingSongID       = errors.New("song id is required")
	ErrDuplicateSong       = errors.New("duplicate song in playlist")
)

// Song is a [Track] persisted inside a playlist. The ID equals the source track ID.
type Song struct {
	ID          string   `json:"spotifyId"`
	Title       string   `json:"title"`
	Artists     []Artist `json:"artists"`
	Album       Album    `json:"album"`
	DurationMS  int      `json:"durationMs"`
	PreviewURL  *string  `json:"previewUrl"`
	Explicit    bool     `json:"explicit"`
	TrackNumber int      `json:"trackNumber"`
	URI         string   `json:"uri"`
}

// NewSong projects a catalog track into playlist storage shape.
func NewSong(t Track) Song {
	artists := make([]Artist, len(t.Artists))
	copy(artists, t.Artists)

	return Song{
		ID:          t.ID,
		Title:       t.Title,
		Artists:     artists,
		Album:       t.Album,
		DurationMS:  t.DurationMS,
		PreviewURL:  t.PreviewURL,
		Explicit:    t.Explicit,
		TrackNumber: t.TrackNumber,
		URI:         t.URI,
	}
}

// ArtistNames joins the artist credits in order.
func (s Song) ArtistNames() string {
	return joinArtists(s.Artists)
}

func (s Song) String() string {
	return fmt.Sprintf("%s - %s", s.Title, s.ArtistNames())
}

// Playlist is a named, ordered collection of songs owned by a user.
type Playlist struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Songs       []Song `json:"songs"`
}

// Contains reports whether a song with the given id is in the playlist.
func (p *Playlist) Contains(id string) bool {
	if p == nil {
		return false
	}
	return slices.ContainsFunc(p.Songs, func(s Song) bool { return s.ID == id })
}

// SongIDs returns song identifiers in playlist order.
func (p *Playlist) SongIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

// Clone returns a deep copy so callers can hold a snapshot safely.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	c := *p
	c.Songs = slices.Clone(p.Songs)
	return &c
}

// Validate checks the shape of a playlist received from the backend. Repeated song ids pass;
// see [Playlist.DuplicateSongs] and [Playlist.Unique].
func (p *Playlist) Validate() error {
	if p.ID == "" {
		return ErrMissingPlaylistID
	}
	if p.Name == "" {
		return ErrMissingPlaylistName
	}
	for _, s := range p.Songs {
		if s.ID == "" {
			return ErrMissingSongID
		}
	}
	return nil
}

// DuplicateSongs returns each song id that appears more than once, in order of its first repeat.
func (p *Playlist) DuplicateSongs() []string {
	var dups []string
	seen := make(map[string]int, len(p.Songs))
	for _, s := range p.Songs {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
	}
	return dups
}

// Unique reports [ErrDuplicateSong] when a song id repeats.
func (p *Playlist) Unique() error {
	if dups := p.DuplicateSongs(); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSong, dups[0])
	}
	return nil
}

// PlaylistUpdate is a partial update. Nil fields are left untouched; a non-nil Songs replaces the whole sequence.
type PlaylistUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Songs       *[]Song `json:"songs,omitempty"`
}

// WithSongs builds an update replacing the song sequence.
func WithSongs(songs []Song) PlaylistUpdate {
	if songs == nil {
		songs = []Song{}
	}
	return PlaylistUpdate{Songs: &songs}
}

// Empty reports whether the update carries no fields.
func (u PlaylistUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Songs == nil
}

// Apply returns a copy of p with the update applied.
func (u PlaylistUpdate) Apply(p Playlist) Playlist {
	out := *p.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Songs != nil {
		out.Songs = slices.Clone(*u.Songs)
	}
	return out
}
