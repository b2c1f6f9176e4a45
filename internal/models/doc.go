// Package models defines the domain entities shared by the mixtape client, its controller and the local reference backend.
//
// The package contains three categories of types:
//
// 1. Catalog records: read-only results of an external catalog search
//   - [Track] : Catalog track with ordered [Artist] credits and an [Album]
//
// 2. Playlist documents: the shapes exchanged with the playlist backend
//   - [Song] : A [Track] projected into playlist storage (see [NewSong])
//   - [Playlist] : Named, ordered collection of songs
//   - [PlaylistUpdate] : Partial update where every non-nil field replaces the stored value wholesale
//
// 3. Form inputs and persisted entities
//   - [RegisterInput], [LoginInput], [PlaylistInput] : Values collected by the CLI and TUI forms
//   - [User] : Backend account record implementing [Model]
//
// A song identifier appears at most once per playlist. The client enforces this at add time with [Playlist.Contains];
// [Playlist.Validate] rejects server payloads that break it.
package models
