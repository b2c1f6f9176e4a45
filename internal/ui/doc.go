// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// Screens are addressed by [Route]:
//  1. /login and /register : account forms with inline field errors
//  2. /dashboard : the user's playlists (create, edit, delete, open, logout)
//  3. /playlist/:id : a debounced Spotify search over the playlist's songs
//
// [Resolve] sends "/" to the dashboard when a session token is present and to login otherwise.
// The playlist screen owns a [tasks.SearchController]; its events arrive as [Msg] values and leaving the
// screen closes it.
package ui
