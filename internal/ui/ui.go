package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// AuthService registers accounts and logs in. [services.AuthClient] implements it.
type AuthService interface {
	Register(ctx context.Context, in models.RegisterInput) (string, error)
	Login(ctx context.Context, in models.LoginInput) (string, error)
}

// PlaylistService is the subset of [services.PlaylistClient] the dashboard uses.
type PlaylistService interface {
	List(ctx context.Context) ([]models.Playlist, error)
	Create(ctx context.Context, in models.PlaylistInput) (*models.Playlist, error)
	Update(ctx context.Context, id string, u models.PlaylistUpdate) (*models.Playlist, error)
	Remove(ctx context.Context, id string) error
}

// Session is the token holder. [session.Store] implements it.
type Session interface {
	Token() (string, bool)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Options wires the model to its services.
type Options struct {
	Auth      AuthService
	Playlists PlaylistService
	Session   Session
	// Controllers builds the search controller for a playlist detail view.
	Controllers func(playlistID string) (*tasks.SearchController, error)
	OpenURL     func(string) error
	Start       Route
	Logger      *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	opts   Options
	route  Route
	width  int
	height int
	keys   keyMap
	help   help.Model

	login    *form
	register *form

	playlists list.Model
	editor    *form
	editing   *models.Playlist
	deleting  *models.Playlist
	status    string
	banner    string

	detail *detailView
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Start == "" {
		opts.Start = RouteRoot
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Your playlists"
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return &Model{
		ctx:       ctx,
		opts:      opts,
		keys:      newKeyMap(),
		help:      help.New(),
		login:     loginForm(),
		register:  registerForm(),
		playlists: l,
	}
}

// Run starts the interactive program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	m := NewModel(ctx, opts)
	defer m.closeDetail()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Route returns the screen currently shown.
func (m *Model) Route() Route { return m.route }

// Init resolves the start route.
func (m *Model) Init() tea.Cmd {
	return m.navigate(m.opts.Start)
}

// navigate resolves r against the session and loads whatever the target screen needs.
func (m *Model) navigate(r Route) tea.Cmd {
	_, authed := m.opts.Session.Token()
	r = Resolve(r, authed)

	if m.detail != nil && r != PlaylistRoute(m.detail.id) {
		m.closeDetail()
	}
	m.route = r
	m.banner = ""

	switch r {
	case RouteLogin:
		return textinput.Blink
	case RouteRegister:
		m.register.reset()
		return textinput.Blink
	case RouteDashboard:
		return m.fetchPlaylists()
	}

	if id, ok := r.PlaylistID(); ok && m.detail == nil {
		return m.openPlaylist(id)
	}
	return nil
}

func (m *Model) openPlaylist(id string) tea.Cmd {
	ctrl, err := m.opts.Controllers(id)
	if err != nil {
		m.opts.Logger.Error("failed to open playlist", "id", id, "error", err)
		m.route = RouteDashboard
		m.banner = describe(err)
		return nil
	}

	m.detail = newDetailView(id, ctrl)
	return tea.Batch(m.detail.activate(m.ctx), m.detail.listen(), textinput.Blink)
}

func (m *Model) closeDetail() {
	if m.detail != nil {
		m.detail.ctrl.Close()
		m.detail = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlists.SetSize(max(0, msg.Width-4), max(0, msg.Height-8))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeDetail()
			return m, tea.Quit
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.forward(msg)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.route {
	case RouteLogin:
		return m.handleLoginKeys(msg)
	case RouteRegister:
		return m.handleRegisterKeys(msg)
	case RouteDashboard:
		return m.handleDashboardKeys(msg)
	}

	if m.detail != nil {
		if key.Matches(msg, m.keys.back) {
			return m, m.navigate(RouteDashboard)
		}
		return m, m.detail.update(m.ctx, msg, m.keys, m.opts.OpenURL)
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+r" {
		return m, m.navigate(RouteRegister)
	}

	cmd, submit := m.login.update(msg, m.keys)
	if !submit {
		return m, cmd
	}

	in := models.LoginInput{Email: m.login.value("email"), Password: m.login.value("password")}
	if err := shared.ValidateLogin(in); err != nil {
		m.login.setError(err)
		return m, nil
	}

	m.login.setError(nil)
	m.login.submitting = true
	return m, func() tea.Msg {
		token, err := m.opts.Auth.Login(m.ctx, in)
		if err == nil {
			err = m.opts.Session.SetToken(m.ctx, token)
		}
		return loggedInMsg(token, err)
	}
}

func (m *Model) handleRegisterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		return m, m.navigate(RouteLogin)
	}

	cmd, submit := m.register.update(msg, m.keys)
	if !submit {
		return m, cmd
	}

	in := models.RegisterInput{
		Username: m.register.value("username"),
		Email:    m.register.value("email"),
		Password: m.register.value("password"),
	}
	if err := shared.ValidateRegister(in); err != nil {
		m.register.setError(err)
		return m, nil
	}

	m.register.setError(nil)
	m.register.submitting = true
	return m, func() tea.Msg {
		return registeredMsg(m.opts.Auth.Register(m.ctx, in))
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editor != nil {
		return m.handleEditorKeys(msg)
	}

	if m.deleting != nil {
		switch {
		case key.Matches(msg, m.keys.yes):
			id := m.deleting.ID
			m.deleting = nil
			return m, func() tea.Msg { return playlistDeletedMsg(m.opts.Playlists.Remove(m.ctx, id)) }
		case key.Matches(msg, m.keys.no):
			m.deleting = nil
		}
		return m, nil
	}

	if m.playlists.FilterState() == list.Filtering {
		return m.forward(msg)
	}

	selected, hasSelection := m.selected()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.logout):
		return m, func() tea.Msg { return loggedOutMsg(m.opts.Session.ClearToken(m.ctx)) }
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.create):
		m.editing = nil
		m.editor = playlistForm("New playlist", "", "")
		return m, textinput.Blink
	case key.Matches(msg, m.keys.edit) && hasSelection:
		p := selected
		m.editing = &p
		m.editor = playlistForm("Edit playlist", p.Name, p.Description)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.del) && hasSelection:
		p := selected
		m.deleting = &p
		return m, nil
	case key.Matches(msg, m.keys.enter) && hasSelection:
		return m, m.navigate(PlaylistRoute(selected.ID))
	}

	return m.forward(msg)
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		m.editor, m.editing = nil, nil
		return m, nil
	}

	cmd, submit := m.editor.update(msg, m.keys)
	if !submit {
		return m, cmd
	}

	in := models.PlaylistInput{Name: m.editor.value("name"), Description: m.editor.value("description")}
	if err := shared.ValidatePlaylist(in); err != nil {
		m.editor.setError(err)
		return m, nil
	}

	m.editor.setError(nil)
	m.editor.submitting = true
	if m.editing == nil {
		return m, func() tea.Msg { return playlistSavedMsg(m.opts.Playlists.Create(m.ctx, in)) }
	}
	id := m.editing.ID
	return m, func() tea.Msg { return playlistSavedMsg(m.opts.Playlists.Update(m.ctx, id, in.Update())) }
}

func (m *Model) selected() (models.Playlist, bool) {
	item, ok := m.playlists.SelectedItem().(playlistItem)
	if !ok {
		return models.Playlist{}, false
	}
	return item.playlist, true
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoggedIn:
		res := msg.data.(authResult)
		if res.err != nil {
			m.login.setError(res.err)
			return m, nil
		}
		m.login.reset()
		m.login.notice = ""
		return m, m.navigate(RouteDashboard)

	case MsgRegistered:
		res := msg.data.(authResult)
		if res.err != nil {
			m.register.setError(res.err)
			return m, nil
		}
		m.register.reset()
		m.login.reset()
		m.login.notice = res.value
		return m, m.navigate(RouteLogin)

	case MsgLoggedOut:
		if err := msg.data.(authResult).err; err != nil {
			m.opts.Logger.Warn("failed to clear session", "error", err)
		}
		m.login.reset()
		m.login.notice = "Logged out"
		return m, m.navigate(RouteLogin)

	case MsgPlaylistsFetched:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			return m, m.fail(res.err)
		}
		m.status = fmt.Sprintf("%d playlists", len(res.playlists))
		return m, m.playlists.SetItems(playlistItems(res.playlists))

	case MsgPlaylistSaved:
		res := msg.data.(playlistResult)
		if res.err != nil {
			if m.editor != nil {
				m.editor.setError(res.err)
			}
			return m, m.expired(res.err)
		}
		m.editor, m.editing = nil, nil
		m.status = "Playlist saved"
		if res.playlist != nil {
			m.status = fmt.Sprintf("Saved %q", res.playlist.Name)
		}
		return m, m.fetchPlaylists()

	case MsgPlaylistDeleted:
		if err := msg.data.(playlistResult).err; err != nil {
			return m, m.fail(err)
		}
		m.status = "Playlist deleted"
		return m, m.fetchPlaylists()

	case MsgActivated, MsgControllerEvent, MsgMutationDone:
		res := msg.data.(controllerResult)
		if m.detail == nil || m.detail.id != res.playlistID {
			return m, nil
		}
		if m.detail.handle(res, msg.kind) {
			return m, m.detail.listen()
		}
		if res.err != nil {
			return m, m.expired(res.err)
		}
	}
	return m, nil
}

// fail shows err in the dashboard banner, or returns to login when the session is gone.
func (m *Model) fail(err error) tea.Cmd {
	if cmd := m.expired(err); cmd != nil {
		return cmd
	}
	m.opts.Logger.Error("request failed", "error", err)
	m.banner = describe(err)
	return nil
}

func (m *Model) expired(err error) tea.Cmd {
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		return nil
	}
	return func() tea.Msg { return loggedOutMsg(m.opts.Session.ClearToken(m.ctx)) }
}

func (m *Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.route == RouteLogin:
		m.login.fields[m.login.focus].input, cmd = m.login.fields[m.login.focus].input.Update(msg)
	case m.route == RouteRegister:
		m.register.fields[m.register.focus].input, cmd = m.register.fields[m.register.focus].input.Update(msg)
	case m.route == RouteDashboard && m.editor == nil:
		m.playlists, cmd = m.playlists.Update(msg)
	case m.detail != nil:
		m.detail.search, cmd = m.detail.search.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		return playlistsFetchedMsg(m.opts.Playlists.List(m.ctx))
	}
}

// View renders the UI based on the current route.
func (m *Model) View() string {
	switch m.route {
	case RouteLogin:
		return m.login.view() + m.help.ShortHelpView([]key.Binding{
			m.keys.next,
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in")),
			key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "register")),
		})
	case RouteRegister:
		return m.register.view() + m.help.ShortHelpView([]key.Binding{
			m.keys.next,
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "register")),
			m.keys.back,
		})
	case RouteDashboard:
		return m.renderDashboard()
	}

	if m.detail != nil {
		return m.detail.view(m.keys)
	}
	return ""
}

func (m *Model) renderDashboard() string {
	if m.editor != nil {
		return m.editor.view() + m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.enter, m.keys.back})
	}

	if m.deleting != nil {
		title := styles.warn.Render(fmt.Sprintf("Delete '%s'?", m.deleting.Name))
		return fmt.Sprintf("%s\n\n%s", title, m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	}

	out := m.playlists.View() + "\n"
	if m.banner != "" {
		out += styles.err.Render(m.banner) + "\n"
	} else if m.status != "" {
		out += styles.help.Render(m.status) + "\n"
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.create, m.keys.edit, m.keys.del, m.keys.refresh, m.keys.logout, m.keys.quit}
	return out + "\n" + m.help.ShortHelpView(helpKeys)
}

func helpLine(keys []key.Binding) string {
	return help.New().ShortHelpView(keys)
}
