package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository stores one bearer token per scope (the backend base URL).
type SessionRepository struct {
	db    *sql.DB
	scope string
}

// NewSessionRepository creates a [SessionRepository] bound to scope.
func NewSessionRepository(db *sql.DB, scope string) *SessionRepository {
	return &SessionRepository{db: db, scope: scope}
}

// Scope returns the slot key.
func (r *SessionRepository) Scope() string { return r.scope }

// LoadToken returns the stored token, or ok=false when the slot is empty.
func (r *SessionRepository) LoadToken(ctx context.Context) (token string, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, "SELECT token FROM sessions WHERE scope = ?", r.scope).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load session: %w", err)
	}
	return token, true, nil
}

// SaveToken replaces the slot's value.
func (r *SessionRepository) SaveToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (scope, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`, r.scope, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ClearToken empties the slot. Clearing an empty slot is not an error.
func (r *SessionRepository) ClearToken(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE scope = ?", r.scope); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
