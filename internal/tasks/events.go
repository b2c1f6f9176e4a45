package tasks

import (
	"github.com/desertthunder/mixtape/internal/models"
)

// EventKind enumerates controller notifications.
type EventKind int

const (
	EventTokenReady EventKind = iota
	EventTokenFailed
	EventResults
	EventSearchFailed
	EventPlaylistUpdated
	EventMutationFailed
)

func (k EventKind) String() string {
	switch k {
	case EventTokenReady:
		return "token_ready"
	case EventTokenFailed:
		return "token_failed"
	case EventResults:
		return "results"
	case EventSearchFailed:
		return "search_failed"
	case EventPlaylistUpdated:
		return "playlist_updated"
	case EventMutationFailed:
		return "mutation_failed"
	default:
		return ""
	}
}

// Event is a notification from a [SearchController].
type Event struct {
	Kind     EventKind
	Query    string           // query that produced results, for search events
	Count    int              // number of results
	Playlist *models.Playlist // confirmed playlist, for EventPlaylistUpdated
	Err      error
}

// sendEvent delivers e without blocking; the event is dropped when the buffer is full.
func sendEvent(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
	}
}
