package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistHandler serves the playlist CRUD routes for the authenticated user.
type PlaylistHandler struct {
	playlists *repositories.PlaylistRepository
	logger    *log.Logger
}

// NewPlaylistHandler creates a playlist handler.
func NewPlaylistHandler(playlists *repositories.PlaylistRepository, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

// Register adds the playlist routes to r behind auth.
func (h *PlaylistHandler) Register(r Router, auth Middleware) {
	for _, root := range []string{"/playlists", "/playlists/{$}"} {
		r.Handle(http.MethodGet, root, http.HandlerFunc(h.list), auth)
		r.Handle(http.MethodPost, root, http.HandlerFunc(h.create), auth)
	}
	r.Handle(http.MethodGet, "/playlists/{id}", http.HandlerFunc(h.get), auth)
	r.Handle(http.MethodPut, "/playlists/{id}", http.HandlerFunc(h.update), auth)
	r.Handle(http.MethodDelete, "/playlists/{id}", http.HandlerFunc(h.remove), auth)
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.List(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, playlists)
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request) {
	var in models.PlaylistInput
	if err := decodeBody(w, r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidatePlaylist(in); err != nil {
		writeValidation(w, err)
		return
	}

	p := &models.Playlist{Name: in.Name, Description: in.Description}
	if err := h.playlists.Create(r.Context(), UserIDFrom(r.Context()), p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *PlaylistHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.playlists.Get(r.Context(), UserIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *PlaylistHandler) update(w http.ResponseWriter, r *http.Request) {
	var u models.PlaylistUpdate
	if err := decodeBody(w, r, &u); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if err := shared.ValidatePlaylist(models.PlaylistInput{Name: name}); err != nil {
			writeValidation(w, err)
			return
		}
		u.Name = &name
	}

	p, err := h.playlists.Update(r.Context(), UserIDFrom(r.Context()), r.PathValue("id"), u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *PlaylistHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.playlists.Delete(r.Context(), UserIDFrom(r.Context()), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Playlist deleted")
}

func (h *PlaylistHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		writeMessage(w, http.StatusNotFound, "Playlist not found")
	case errors.Is(err, models.ErrDuplicateSong):
		writeMessage(w, http.StatusBadRequest, "Playlist already contains this song")
	case errors.Is(err, models.ErrMissingSongID), errors.Is(err, models.ErrMissingPlaylistName):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("playlist request failed", "error", err, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
