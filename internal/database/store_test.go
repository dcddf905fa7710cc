package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lucsky/cuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	suffix := cuid.New()

	alice := &recipe.User{Name: "Alice", Email: "Alice+" + suffix + "@Example.com"}
	require.NoError(t, store.CreateUser(ctx, alice))
	require.NotEmpty(t, alice.ID)

	dup := &recipe.User{Name: "Imposter", Email: "alice+" + suffix + "@example.COM"}
	require.ErrorIs(t, store.CreateUser(ctx, dup), ErrEmailTaken)

	bob := &recipe.User{Name: "Bob", Email: "bob+" + suffix + "@example.com"}
	require.NoError(t, store.CreateUser(ctx, bob))

	found, err := store.UserByEmail(ctx, "  ALICE+"+suffix+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = store.UserByEmail(ctx, "nobody-"+suffix+"@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateSession(ctx, "hash-"+suffix, alice.ID, time.Now().Add(time.Hour)))
	u, err := store.SessionUser(ctx, "hash-"+suffix)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	require.NoError(t, store.CreateSession(ctx, "stale-"+suffix, alice.ID, time.Now().Add(-time.Minute)))
	_, err = store.SessionUser(ctx, "stale-"+suffix)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, "hash-"+suffix))
	_, err = store.SessionUser(ctx, "hash-"+suffix)
	require.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &recipe.Recipe{DishName: "Jollof Rice", Origin: "Ghana", CreatedAt: base}
	second := &recipe.Recipe{DishName: "Jerk Chicken", Origin: "Jamaica", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, store.SaveRecipe(ctx, alice.ID, first))
	require.NoError(t, store.SaveRecipe(ctx, alice.ID, second))
	require.NotEmpty(t, first.ID)

	list, err := store.ListRecipes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jerk Chicken", list[0].DishName, "newest first")

	empty, err := store.ListRecipes(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.GetRecipe(ctx, bob.ID, first.ID)
	require.ErrorIs(t, err, ErrNotFound, "recipes are scoped to their owner")
	require.ErrorIs(t, store.DeleteRecipe(ctx, bob.ID, first.ID), ErrNotFound)

	update := *first
	update.CreatedAt = time.Time{}
	update.UserRating = 4
	update.UserNotes = "More pepper next time"
	require.NoError(t, store.SaveRecipe(ctx, alice.ID, &update))

	got, err := store.GetRecipe(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.UserRating)
	assert.True(t, got.CreatedAt.Equal(base), "update keeps the original creation time")

	byDish, err := store.FindRecipeByDish(ctx, alice.ID, "jollof rice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byDish.ID)

	require.NoError(t, store.DeleteRecipe(ctx, alice.ID, first.ID))
	_, err = store.GetRecipe(ctx, alice.ID, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := ConnectDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	exerciseStore(t, store)
}
