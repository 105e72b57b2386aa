package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
)

func countUsers(t *testing.T, db *sql.DB, username string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n))
	return n
}

func newUser(username, email string) *domain.User {
	return &domain.User{Username: username, PasswordHash: "salt$key", Email: email, IsActive: true}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser("bob", "bob@x.com")
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "bob@x.com", got.Email)
	assert.Equal(t, "salt$key", got.PasswordHash)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastLogin)

	active, err := repo.GetActiveByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, id, active.ID)
}

func TestUserRepository_UsernameIsCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newUser("bob", ""))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newUser("Bob", ""))
	require.NoError(t, err)

	_, err = repo.GetActiveByUsername(ctx, "BOB")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_CreateConflicts(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newUser("bob", "bob@x.com"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		user     *domain.User
		conflict bool
	}{
		{name: "same username", user: newUser("bob", "other@x.com"), conflict: true},
		{name: "same email", user: newUser("alice", "bob@x.com"), conflict: true},
		{name: "empty email twice", user: newUser("carol", ""), conflict: false},
		{name: "another empty email", user: newUser("dave", ""), conflict: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.user)
			if tt.conflict {
				assert.ErrorIs(t, err, repository.ErrConflict)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, 1, countUsers(t, db, "bob"))
}

func TestUserRepository_InactiveUserHidden(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser("bob", "")
	_, err := repo.Create(ctx, user)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, user.ID)
	require.NoError(t, err)

	_, err = repo.GetActiveByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser("bob", "")
	_, err := repo.Create(ctx, user)
	require.NoError(t, err)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))

	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, 9999, at), repository.ErrNotFound)
}

func TestUserRepository_GetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
