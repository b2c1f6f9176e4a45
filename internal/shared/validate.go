package shared

import (
	"regexp"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// ValidateRegister checks a registration form and returns a [ValidationError] listing every bad field.
func ValidateRegister(in models.RegisterInput) error {
	fields := map[string]string{}

	switch username := strings.TrimSpace(in.Username); {
	case username == "":
		fields["username"] = "Username is required"
	case len([]rune(username)) < minUsernameLen:
		fields["username"] = "Username must be at least 3 characters"
	}

	validateCredentials(fields, in.Email, in.Password)
	return NewValidationError(fields)
}

// ValidateLogin checks a login form.
func ValidateLogin(in models.LoginInput) error {
	fields := map[string]string{}
	validateCredentials(fields, in.Email, in.Password)
	return NewValidationError(fields)
}

// ValidatePlaylist checks a create/edit playlist form.
func ValidatePlaylist(in models.PlaylistInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Playlist name is required"
	}
	return NewValidationError(fields)
}

func validateCredentials(fields map[string]string, email, password string) {
	switch email = strings.TrimSpace(email); {
	case email == "":
		fields["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fields["email"] = "Email is invalid"
	}

	switch {
	case password == "":
		fields["password"] = "Password is required"
	case len([]rune(password)) < minPasswordLen:
		fields["password"] = "Password must be at least 6 characters"
	}
}
