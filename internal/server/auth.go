package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users  *repositories.UserRepository
	tokens *TokenIssuer
	cost   int
	logger *log.Logger
}

// NewAuthHandler creates an auth handler. A zero cost uses [bcrypt.DefaultCost].
func NewAuthHandler(users *repositories.UserRepository, tokens *TokenIssuer, cost int, logger *log.Logger) *AuthHandler {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthHandler{users: users, tokens: tokens, cost: cost, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"POST /auth/register", "POST /auth/login"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/register":
		h.register(w, r)
	case "/auth/login":
		h.login(w, r)
	default:
		writeMessage(w, http.StatusNotFound, "Not found")
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := shared.ValidateRegister(in); err != nil {
		writeValidation(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := models.NewUser(in.Username, in.Email, string(hash))
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, shared.ErrUserExists) {
			writeMessage(w, http.StatusConflict, "User already exists")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.logger.Info("registered user", "id", user.ID(), "username", user.Username())
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decodeBody(w, r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := shared.ValidateLogin(in); err != nil {
		writeValidation(w, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), in.Email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(in.Password)); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID())
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeData(w, http.StatusOK, map[string]string{"token": token})
}
