package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// detailView is the playlist screen: a search box feeding a [tasks.SearchController] above the song list.
type detailView struct {
	id      string
	ctrl    *tasks.SearchController
	search  textinput.Model
	cursor  int // selected search result
	song    int // selected song
	onSongs bool
	busy    bool
	status  string
	err     string
}

func newDetailView(id string, ctrl *tasks.SearchController) *detailView {
	in := textinput.New()
	in.Placeholder = "Search Spotify for tracks"
	in.CharLimit = 200
	in.Focus()
	return &detailView{id: id, ctrl: ctrl, search: in}
}

func (d *detailView) activate(ctx context.Context) tea.Cmd {
	ctrl, id := d.ctrl, d.id
	return func() tea.Msg {
		return activatedMsg(id, ctrl.Activate(ctx))
	}
}

// listen waits for the next controller event. A closed channel ends the loop.
func (d *detailView) listen() tea.Cmd {
	ch, id := d.ctrl.Events(), d.id
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return controllerEventMsg(id, e)
	}
}

func (d *detailView) add(ctx context.Context, trackID string) tea.Cmd {
	d.busy = true
	ctrl, id := d.ctrl, d.id
	return func() tea.Msg {
		return mutationDoneMsg(id, ctrl.Add(ctx, trackID))
	}
}

func (d *detailView) remove(ctx context.Context, songID string) tea.Cmd {
	d.busy = true
	ctrl, id := d.ctrl, d.id
	return func() tea.Msg {
		return mutationDoneMsg(id, ctrl.Remove(ctx, songID))
	}
}

func (d *detailView) focusSearch() {
	d.onSongs = false
	d.search.Focus()
	d.ctrl.OpenPanel()
}

func (d *detailView) focusSongs() {
	d.onSongs = true
	d.search.Blur()
	d.ctrl.ClosePanel()
}

// handle applies a controller message and reports whether the view should keep listening.
func (d *detailView) handle(r controllerResult, kind MsgKind) bool {
	switch kind {
	case MsgActivated:
		if r.err != nil && !tasks.IsClosed(r.err) {
			d.err = describe(r.err)
		}
		return false

	case MsgMutationDone:
		d.busy = false
		if r.err != nil && !tasks.IsClosed(r.err) {
			d.err = describe(r.err)
		} else {
			d.err = ""
		}
		return false
	}

	e := r.event
	switch e.Kind {
	case tasks.EventResults:
		d.cursor = 0
		d.status = fmt.Sprintf("%d results for %q", e.Count, e.Query)
	case tasks.EventSearchFailed:
		d.status = "Search failed: " + describe(e.Err)
	case tasks.EventTokenFailed:
		d.err = "Search is unavailable: " + describe(e.Err)
	case tasks.EventMutationFailed:
		d.err = describe(e.Err)
	case tasks.EventPlaylistUpdated:
		if e.Playlist != nil && d.song >= len(e.Playlist.Songs) {
			d.song = max(0, len(e.Playlist.Songs)-1)
		}
	}
	return true
}

func (d *detailView) update(ctx context.Context, msg tea.KeyMsg, keys keyMap, open func(string) error) tea.Cmd {
	snap := d.ctrl.Snapshot()

	if key.Matches(msg, keys.swap) {
		if d.onSongs {
			d.focusSearch()
		} else {
			d.focusSongs()
		}
		return nil
	}

	if d.onSongs {
		songs := songsOf(snap.Playlist)
		switch {
		case key.Matches(msg, keys.up), msg.String() == "k":
			d.song = max(0, d.song-1)
		case key.Matches(msg, keys.down), msg.String() == "j":
			d.song = min(max(0, len(songs)-1), d.song+1)
		case key.Matches(msg, keys.remove):
			if d.song < len(songs) && !d.busy {
				return d.remove(ctx, songs[d.song].ID)
			}
		case key.Matches(msg, keys.open):
			if d.song < len(songs) {
				if err := open(shared.TrackURL(songs[d.song].ID)); err != nil {
					d.err = describe(err)
				}
			}
		}
		return nil
	}

	switch {
	case key.Matches(msg, keys.up):
		d.cursor = max(0, d.cursor-1)
		return nil
	case key.Matches(msg, keys.down):
		d.cursor = min(max(0, len(snap.Results)-1), d.cursor+1)
		return nil
	case key.Matches(msg, keys.enter):
		if snap.PanelOpen && d.cursor < len(snap.Results) && !d.busy {
			return d.add(ctx, snap.Results[d.cursor].Track.ID)
		}
		return nil
	}

	before := d.search.Value()
	var cmd tea.Cmd
	d.search, cmd = d.search.Update(msg)
	if q := d.search.Value(); q != before {
		d.cursor = 0
		if err := d.ctrl.SetQuery(q); err != nil && !tasks.IsClosed(err) {
			d.err = describe(err)
		}
	}
	return cmd
}

func (d *detailView) view(keys keyMap) string {
	snap := d.ctrl.Snapshot()
	var b strings.Builder

	if snap.Playlist == nil {
		b.WriteString(styles.title.Render("Loading playlist..."))
	} else {
		b.WriteString(styles.title.Render(snap.Playlist.Name))
		if snap.Playlist.Description != "" {
			b.WriteString("\n" + styles.help.Render(snap.Playlist.Description))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(d.search.View())
	switch snap.State {
	case tasks.TokenPending:
		b.WriteString("  " + styles.help.Render("connecting to Spotify..."))
	case tasks.Searching:
		b.WriteString("  " + styles.help.Render("searching..."))
	}
	b.WriteString("\n")

	if snap.PanelOpen {
		b.WriteString(styles.panel.Render(d.resultsView(snap.Results)) + "\n")
	}
	if d.status != "" {
		b.WriteString(styles.help.Render(d.status) + "\n")
	}
	if d.err != "" {
		b.WriteString(styles.err.Render(d.err) + "\n")
	}

	b.WriteString("\n" + styles.label.Render("Songs") + "\n")
	songs := songsOf(snap.Playlist)
	if len(songs) == 0 {
		b.WriteString(styles.help.Render("No songs yet. Search above to add some.") + "\n")
	}
	for i, s := range songs {
		line := fmt.Sprintf("%2d. %s - %s (%s)", i+1, s.Title, s.ArtistNames(), models.FormatDuration(s.DurationMS))
		if d.onSongs && i == d.song {
			line = styles.cursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	help := []key.Binding{keys.swap, keys.back}
	if d.onSongs {
		help = append(help, keys.remove, keys.open)
	} else {
		help = append(help, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")))
	}
	b.WriteString("\n" + styles.help.Render(helpLine(help)))
	return b.String()
}

func (d *detailView) resultsView(results []tasks.ResultItem) string {
	if len(results) == 0 {
		return styles.help.Render("No tracks found")
	}

	lines := make([]string, len(results))
	for i, r := range results {
		line := fmt.Sprintf("%s - %s", r.Track.Title, r.Track.ArtistNames())
		if r.Track.Album.Name != "" {
			line += " • " + r.Track.Album.Name
		}
		if r.Added {
			line += " " + styles.ok.Render("✓ Added")
		}
		if !d.onSongs && i == d.cursor {
			line = styles.cursor.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func songsOf(p *models.Playlist) []models.Song {
	if p == nil {
		return nil
	}
	return p.Songs
}

// describe renders err for the status line, preferring the backend's own message.
func describe(err error) string {
	var rerr *shared.RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	switch {
	case errors.Is(err, shared.ErrAlreadyAdded):
		return "That track is already in the playlist"
	case errors.Is(err, shared.ErrTokenExchange):
		return "could not connect to Spotify"
	}
	return err.Error()
}
