package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucsky/cuid"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

type session struct {
	userID    string
	expiresAt time.Time
}

type ownedRecipe struct {
	userID string
	recipe recipe.Recipe
}

// MemoryStore is a process-local Store used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]recipe.User
	byEmail  map[string]string
	sessions map[string]session
	recipes  map[string]ownedRecipe
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		users:    make(map[string]recipe.User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]session),
		recipes:  make(map[string]ownedRecipe),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *recipe.User) error {
	email := recipe.NormalizeEmail(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[email]; ok {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = cuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	m.users[u.ID] = *u
	m.byEmail[email] = u.ID
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*recipe.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[recipe.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (*recipe.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	m.sessions[tokenHash] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) SessionUser(_ context.Context, tokenHash string) (*recipe.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(s.expiresAt) {
		delete(m.sessions, tokenHash)
		return nil, ErrNotFound
	}
	u, ok := m.users[s.userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MemoryStore) SaveRecipe(_ context.Context, userID string, r *recipe.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = cuid.New()
	}
	if existing, ok := m.recipes[r.ID]; ok {
		if existing.userID != userID {
			return ErrNotFound
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = existing.recipe.CreatedAt
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now().UTC()
	}
	m.recipes[r.ID] = ownedRecipe{userID: userID, recipe: *r}
	return nil
}

func (m *MemoryStore) ListRecipes(_ context.Context, userID string) ([]recipe.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]recipe.Recipe, 0)
	for _, or := range m.recipes {
		if or.userID == userID {
			out = append(out, or.recipe)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetRecipe(_ context.Context, userID, id string) (*recipe.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	or, ok := m.recipes[id]
	if !ok || or.userID != userID {
		return nil, ErrNotFound
	}
	r := or.recipe
	return &r, nil
}

func (m *MemoryStore) FindRecipeByDish(_ context.Context, userID, dishName string) (*recipe.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, or := range m.recipes {
		if or.userID == userID && strings.EqualFold(or.recipe.DishName, dishName) {
			r := or.recipe
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteRecipe(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	or, ok := m.recipes[id]
	if !ok || or.userID != userID {
		return ErrNotFound
	}
	delete(m.recipes, id)
	return nil
}
