package database

import (
	"context"
	"errors"
	"time"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Store persists users, sessions and saved recipes.
//
// Recipe lookups are always scoped to the owning user; asking for another
// user's recipe returns ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, u *recipe.User) error
	UserByEmail(ctx context.Context, email string) (*recipe.User, error)
	UserByID(ctx context.Context, id string) (*recipe.User, error)

	CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	SessionUser(ctx context.Context, tokenHash string) (*recipe.User, error)
	DeleteSession(ctx context.Context, tokenHash string) error

	// SaveRecipe inserts or replaces r by ID, assigning ID and CreatedAt when empty.
	SaveRecipe(ctx context.Context, userID string, r *recipe.Recipe) error
	// ListRecipes returns the user's recipes, most recently created first.
	ListRecipes(ctx context.Context, userID string) ([]recipe.Recipe, error)
	GetRecipe(ctx context.Context, userID, id string) (*recipe.Recipe, error)
	FindRecipeByDish(ctx context.Context, userID, dishName string) (*recipe.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id string) error
}
