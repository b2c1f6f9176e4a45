package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoggedIn MsgKind = iota
	MsgRegistered
	MsgPlaylistsFetched
	MsgPlaylistSaved
	MsgPlaylistDeleted
	MsgActivated
	MsgControllerEvent
	MsgMutationDone
	MsgLoggedOut
)

type authResult struct {
	value string // token on login, backend message on register
	err   error
}

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

type playlistResult struct {
	playlist *models.Playlist
	err      error
}

// controllerResult carries the playlist id so messages from a torn-down detail view are ignored.
type controllerResult struct {
	playlistID string
	event      tasks.Event
	err        error
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(token string, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: authResult{token, err}}
}

// registeredMsg is the constructor for [MsgRegistered]
func registeredMsg(message string, err error) Msg {
	return Msg{kind: MsgRegistered, data: authResult{message, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: authResult{err: err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}

// playlistSavedMsg is the constructor for [MsgPlaylistSaved]
func playlistSavedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistSaved, data: playlistResult{p, err}}
}

// playlistDeletedMsg is the constructor for [MsgPlaylistDeleted]
func playlistDeletedMsg(err error) Msg {
	return Msg{kind: MsgPlaylistDeleted, data: playlistResult{err: err}}
}

// activatedMsg is the constructor for [MsgActivated]
func activatedMsg(playlistID string, err error) Msg {
	return Msg{kind: MsgActivated, data: controllerResult{playlistID: playlistID, err: err}}
}

// controllerEventMsg is the constructor for [MsgControllerEvent]
func controllerEventMsg(playlistID string, e tasks.Event) Msg {
	return Msg{kind: MsgControllerEvent, data: controllerResult{playlistID: playlistID, event: e}}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(playlistID string, err error) Msg {
	return Msg{kind: MsgMutationDone, data: controllerResult{playlistID: playlistID, err: err}}
}
