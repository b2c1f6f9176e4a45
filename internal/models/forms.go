package models

import (
	"errors"
	"time"
)

// RegisterInput is the registration form body.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the login form body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PlaylistInput is the create/edit playlist form body.
type PlaylistInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Update converts the form into a partial update of name and description.
func (i PlaylistInput) Update() PlaylistUpdate {
	name, desc := i.Name, i.Description
	return PlaylistUpdate{Name: &name, Description: &desc}
}

var _ Model = (*User)(nil)

// User is an account stored by the reference backend.
type User struct {
	id           string
	username     string
	email        string
	passwordHash string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a user with creation timestamps set to now.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		username:     username,
		email:        email,
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (u *User) ID() string           { return u.id }
func (u *User) Username() string     { return u.username }
func (u *User) Email() string        { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id string)          { u.id = id }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }

// Validate checks required fields.
func (u *User) Validate() error {
	if u.id == "" {
		return errors.New("user id is required")
	}
	if u.email == "" {
		return errors.New("user email is required")
	}
	if u.passwordHash == "" {
		return errors.New("user password hash is required")
	}
	return nil
}
