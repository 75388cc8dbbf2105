package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/models"
)

func TestUserRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	older := models.User{Name: "Alice Johnson", Email: "alice@example.com", Password: "x", Role: models.RoleUser, Status: "active", CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := models.User{Name: "Bob Stone", Email: "bob@example.com", Password: "x", Role: models.RoleAdmin, Status: "suspended", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(context.Background(), &older))
	require.NoError(t, repo.Create(context.Background(), &newer))

	users, total, err := repo.List(context.Background(), UserFilter{Search: "alice", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	require.Equal(t, "Alice Johnson", users[0].Name)

	users, total, err = repo.List(context.Background(), UserFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Bob Stone", users[0].Name, "expected newest record first")

	users, total, err = repo.List(context.Background(), UserFilter{Status: "suspended", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "bob@example.com", users[0].Email)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestUserRepositorySoftDeleteAndRestore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := models.User{Name: "Ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, repo.Create(context.Background(), &user))
	require.NotEmpty(t, user.ID, "BeforeCreate must assign the UUID key")

	require.NoError(t, repo.Delete(context.Background(), user.ID))

	_, err := repo.FindByID(context.Background(), user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Soft-deleted rows no longer count toward listings.
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)

	deleted, err := repo.FindDeletedByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", deleted.Email)

	require.NoError(t, repo.Restore(context.Background(), user.ID))

	restored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, restored.ID)

	_, err = repo.FindDeletedByID(context.Background(), user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := models.User{Name: "Ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, repo.Create(context.Background(), &user))

	found, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
