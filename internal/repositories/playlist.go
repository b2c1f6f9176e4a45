package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistRepository persists playlists scoped to their owning user.
//
// Every lookup filters by owner; another user's playlist is indistinguishable from a missing one.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new empty-or-seeded playlist for userID and sets its ID.
func (r *PlaylistRepository) Create(ctx context.Context, userID string, p *models.Playlist) error {
	p.ID = shared.GenerateID()
	if p.Songs == nil {
		p.Songs = []models.Song{}
	}
	if err := errors.Join(p.Validate(), p.Unique()); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	songs, err := json.Marshal(p.Songs)
	if err != nil {
		return fmt.Errorf("failed to encode songs: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "playlists")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists (id, sequence, user_id, name, description, songs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, sequence, userID, p.Name, p.Description, string(songs), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return tx.Commit()
}

// Get retrieves a live playlist owned by userID.
func (r *PlaylistRepository) Get(ctx context.Context, userID, id string) (*models.Playlist, error) {
	return getPlaylist(ctx, r.db, userID, id)
}

// List returns userID's playlists in creation order.
func (r *PlaylistRepository) List(ctx context.Context, userID string) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, songs FROM playlists
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// Update applies a partial update inside a transaction and returns the stored result.
// An update that would repeat a song id is rejected with [models.ErrDuplicateSong].
func (r *PlaylistRepository) Update(ctx context.Context, userID, id string, u models.PlaylistUpdate) (*models.Playlist, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getPlaylist(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}

	next := u.Apply(*current)
	if next.Songs == nil {
		next.Songs = []models.Song{}
	}
	if err := errors.Join(next.Validate(), next.Unique()); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	songs, err := json.Marshal(next.Songs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode songs: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE playlists SET name = ?, description = ?, songs = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, next.Name, next.Description, string(songs), time.Now().UTC(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := requireOneRow(result, shared.ErrPlaylistNotFound); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit playlist update: %w", err)
	}
	return &next, nil
}

// Delete soft-deletes a playlist owned by userID.
func (r *PlaylistRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE playlists SET deleted_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return requireOneRow(result, shared.ErrPlaylistNotFound)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getPlaylist(ctx context.Context, q rowQuerier, userID, id string) (*models.Playlist, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, songs FROM playlists
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, id, userID)

	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	return p, err
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p     models.Playlist
		songs string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &songs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if err := json.Unmarshal([]byte(songs), &p.Songs); err != nil {
		return nil, fmt.Errorf("failed to decode songs for playlist %s: %w", p.ID, err)
	}
	return &p, nil
}
