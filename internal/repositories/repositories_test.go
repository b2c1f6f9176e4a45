package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()

	user := models.NewUser("tester", email, "$2a$10$hash")
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "widgets")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if got, _ := NextSequence(ctx, db, "gadgets"); got != 1 {
		t.Errorf("sequences should be independent per name, got %d", got)
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("empty slot", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), "http://localhost:3000")

		_, ok, err := repo.LoadToken(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected empty slot")
		}
	})

	t.Run("save replaces the value", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), "http://localhost:3000")

		if err := repo.SaveToken(ctx, "first"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.SaveToken(ctx, "second"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		token, ok, err := repo.LoadToken(ctx)
		if err != nil || !ok || token != "second" {
			t.Errorf("expected second token, got %q ok=%v err=%v", token, ok, err)
		}
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		db := setupTestDB(t)
		a := NewSessionRepository(db, "http://a")
		b := NewSessionRepository(db, "http://b")

		if err := a.SaveToken(ctx, "token-a"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if _, ok, _ := b.LoadToken(ctx); ok {
			t.Error("scope b should not see scope a's token")
		}
	})

	t.Run("clear", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), "http://localhost:3000")

		if err := repo.SaveToken(ctx, "abc"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.ClearToken(ctx); err != nil {
			t.Fatalf("failed to clear token: %v", err)
		}
		if err := repo.ClearToken(ctx); err != nil {
			t.Fatalf("clearing an empty slot should succeed: %v", err)
		}
		if _, ok, _ := repo.LoadToken(ctx); ok {
			t.Error("expected empty slot after clear")
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "test@example.com")

		if user.ID() == "" {
			t.Fatal("user ID should be set after creation")
		}

		repo := NewUserRepository(db)
		byID, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if byID.Email() != "test@example.com" || byID.PasswordHash() != "$2a$10$hash" {
			t.Errorf("unexpected user %s %s", byID.Email(), byID.PasswordHash())
		}

		byEmail, err := repo.GetByEmail(ctx, "test@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if byEmail.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), byEmail.ID())
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "test@example.com")

		err := NewUserRepository(db).Create(ctx, models.NewUser("other", "test@example.com", "hash"))
		if !errors.Is(err, shared.ErrUserExists) {
			t.Fatalf("expected ErrUserExists, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))

		if _, err := repo.Get(ctx, "nonexistent-id"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Delete frees the email", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "test@example.com")
		repo := NewUserRepository(db)

		if err := repo.Delete(ctx, user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := repo.Get(ctx, user.ID()); !errors.Is(err, ErrUserNotFound) {
			t.Error("expected deleted user to be hidden")
		}
		if err := repo.Delete(ctx, user.ID()); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("deleting twice should report not found, got %v", err)
		}

		createUser(t, db, "test@example.com")
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()
	song := func(id string) models.Song { return models.Song{ID: id, Title: "Song " + id} }

	t.Run("Create starts empty", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")
		repo := NewPlaylistRepository(db)

		p := &models.Playlist{Name: "Road trip", Description: "long drives"}
		if err := repo.Create(ctx, user.ID(), p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if p.ID == "" {
			t.Fatal("playlist ID should be set after creation")
		}

		got, err := repo.Get(ctx, user.ID(), p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name != "Road trip" || got.Description != "long drives" {
			t.Errorf("unexpected playlist %+v", got)
		}
		if got.Songs == nil || len(got.Songs) != 0 {
			t.Errorf("expected empty non-nil songs, got %v", got.Songs)
		}
	})

	t.Run("Create requires a name", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")

		err := NewPlaylistRepository(db).Create(ctx, user.ID(), &models.Playlist{})
		if !errors.Is(err, models.ErrMissingPlaylistName) {
			t.Errorf("expected ErrMissingPlaylistName, got %v", err)
		}
	})

	t.Run("List is ordered and scoped to owner", func(t *testing.T) {
		db := setupTestDB(t)
		alice := createUser(t, db, "alice@example.com")
		bob := createUser(t, db, "bob@example.com")
		repo := NewPlaylistRepository(db)

		for _, name := range []string{"first", "second", "third"} {
			if err := repo.Create(ctx, alice.ID(), &models.Playlist{Name: name}); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}
		if err := repo.Create(ctx, bob.ID(), &models.Playlist{Name: "bob's"}); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		list, err := repo.List(ctx, alice.ID())
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		var names []string
		for _, p := range list {
			names = append(names, p.Name)
		}
		if !slices.Equal(names, []string{"first", "second", "third"}) {
			t.Errorf("unexpected playlists %v", names)
		}

		if _, err := repo.Get(ctx, bob.ID(), list[0].ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("other users' playlists should be hidden, got %v", err)
		}
	})

	t.Run("Update replaces only supplied fields", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")
		repo := NewPlaylistRepository(db)

		p := &models.Playlist{Name: "Mix", Description: "keep me"}
		if err := repo.Create(ctx, user.ID(), p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		updated, err := repo.Update(ctx, user.ID(), p.ID, models.WithSongs([]models.Song{song("a"), song("b")}))
		if err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}
		if updated.Description != "keep me" || !slices.Equal(updated.SongIDs(), []string{"a", "b"}) {
			t.Errorf("unexpected update result %+v", updated)
		}

		name := "Renamed"
		if _, err := repo.Update(ctx, user.ID(), p.ID, models.PlaylistUpdate{Name: &name}); err != nil {
			t.Fatalf("failed to rename playlist: %v", err)
		}

		got, err := repo.Get(ctx, user.ID(), p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name != "Renamed" || !slices.Equal(got.SongIDs(), []string{"a", "b"}) {
			t.Errorf("unexpected stored playlist %+v", got)
		}
	})

	t.Run("Update rejects duplicate songs", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")
		repo := NewPlaylistRepository(db)

		p := &models.Playlist{Name: "Mix"}
		if err := repo.Create(ctx, user.ID(), p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		_, err := repo.Update(ctx, user.ID(), p.ID, models.WithSongs([]models.Song{song("a"), song("a")}))
		if !errors.Is(err, models.ErrDuplicateSong) {
			t.Errorf("expected ErrDuplicateSong, got %v", err)
		}
	})

	t.Run("Update missing playlist", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")

		_, err := NewPlaylistRepository(db).Update(ctx, user.ID(), "nope", models.WithSongs(nil))
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "a@example.com")
		repo := NewPlaylistRepository(db)

		p := &models.Playlist{Name: "Mix"}
		if err := repo.Create(ctx, user.ID(), p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if err := repo.Delete(ctx, user.ID(), p.ID); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if err := repo.Delete(ctx, user.ID(), p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound on second delete, got %v", err)
		}

		list, err := repo.List(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected deleted playlist to be hidden, got %d", len(list))
		}
	})
}
