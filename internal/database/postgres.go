package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_user (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS app_user_email_idx ON app_user (lower(email));

CREATE TABLE IF NOT EXISTS session (
	token_hash TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES app_user (id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_recipe (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES app_user (id) ON DELETE CASCADE,
	dish_name  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS saved_recipe_user_idx ON saved_recipe (user_id, created_at DESC);
`

const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables used by the store if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *recipe.User) error {
	if u.ID == "" {
		u.ID = cuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.TrimSpace(u.Email)

	const q = "INSERT INTO app_user (id, name, email, created_at) VALUES ($1, $2, $3, $4)"
	if _, err := s.db.Exec(ctx, q, u.ID, u.Name, u.Email, u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*recipe.User, error) {
	const q = "SELECT id, name, email, created_at FROM app_user WHERE lower(email) = $1"
	return s.scanUser(s.db.QueryRow(ctx, q, recipe.NormalizeEmail(email)))
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*recipe.User, error) {
	const q = "SELECT id, name, email, created_at FROM app_user WHERE id = $1"
	return s.scanUser(s.db.QueryRow(ctx, q, id))
}

func (s *PostgresStore) scanUser(row pgx.Row) (*recipe.User, error) {
	var u recipe.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	const q = "INSERT INTO session (token_hash, user_id, expires_at) VALUES ($1, $2, $3)"
	if _, err := s.db.Exec(ctx, q, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) SessionUser(ctx context.Context, tokenHash string) (*recipe.User, error) {
	const q = `SELECT u.id, u.name, u.email, u.created_at
		FROM session AS s JOIN app_user AS u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > NOW()`
	return s.scanUser(s.db.QueryRow(ctx, q, tokenHash))
}

func (s *PostgresStore) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM session WHERE token_hash = $1", tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRecipe(ctx context.Context, userID string, r *recipe.Recipe) error {
	if r.ID == "" {
		r.ID = cuid.New()
	}
	if r.CreatedAt.IsZero() {
		var existing time.Time
		err := s.db.QueryRow(ctx, "SELECT created_at FROM saved_recipe WHERE id = $1 AND user_id = $2", r.ID, userID).Scan(&existing)
		switch {
		case err == nil:
			r.CreatedAt = existing
		case errors.Is(err, pgx.ErrNoRows):
			r.CreatedAt = time.Now().UTC()
		default:
			return fmt.Errorf("lookup recipe %s: %w", r.ID, err)
		}
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode recipe: %w", err)
	}

	const q = `INSERT INTO saved_recipe (id, user_id, dish_name, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET dish_name = EXCLUDED.dish_name, payload = EXCLUDED.payload
		WHERE saved_recipe.user_id = EXCLUDED.user_id`
	tag, err := s.db.Exec(ctx, q, r.ID, userID, r.DishName, string(payload), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert recipe %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRecipes(ctx context.Context, userID string) ([]recipe.Recipe, error) {
	const q = "SELECT payload FROM saved_recipe WHERE user_id = $1 ORDER BY created_at DESC, id DESC"
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	out := make([]recipe.Recipe, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		var r recipe.Recipe
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode recipe: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetRecipe(ctx context.Context, userID, id string) (*recipe.Recipe, error) {
	const q = "SELECT payload FROM saved_recipe WHERE id = $1 AND user_id = $2"
	return s.scanRecipe(s.db.QueryRow(ctx, q, id, userID))
}

func (s *PostgresStore) FindRecipeByDish(ctx context.Context, userID, dishName string) (*recipe.Recipe, error) {
	const q = "SELECT payload FROM saved_recipe WHERE user_id = $1 AND lower(dish_name) = lower($2) ORDER BY created_at DESC LIMIT 1"
	return s.scanRecipe(s.db.QueryRow(ctx, q, userID, dishName))
}

func (s *PostgresStore) scanRecipe(row pgx.Row) (*recipe.Recipe, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan recipe: %w", err)
	}
	var r recipe.Recipe
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) DeleteRecipe(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM saved_recipe WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete recipe %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
