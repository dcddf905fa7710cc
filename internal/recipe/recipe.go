package recipe

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Difficulty levels returned by the provider.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// MaxRating is the highest star rating a user can give.
const MaxRating = 5

type SpecialIngredient struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
	Substitute  string `json:"substitute"`
}

// FlavorProfile scores each taste on a 0-10 scale.
type FlavorProfile struct {
	Spicy  int `json:"spicy"`
	Sweet  int `json:"sweet"`
	Savory int `json:"savory"`
	Sour   int `json:"sour"`
	Bitter int `json:"bitter"`
}

type RelatedDish struct {
	DishName   string `json:"dishName"`
	Origin     string `json:"origin"`
	Connection string `json:"connection"`
}

// Recipe is a generated recipe, optionally saved to a user's cookbook.
type Recipe struct {
	ID                 string              `json:"id,omitempty"`
	DishName           string              `json:"dishName"`
	Origin             string              `json:"origin"`
	Description        string              `json:"description"`
	Ingredients        []string            `json:"ingredients"`
	Instructions       []string            `json:"instructions"`
	SpecialIngredients []SpecialIngredient `json:"specialIngredients"`
	FlavorProfile      FlavorProfile       `json:"flavorProfile"`
	CookingTime        string              `json:"cookingTime"`
	Difficulty         string              `json:"difficulty"`
	VideoURI           string              `json:"videoUri,omitempty"`
	RelatedDishes      []RelatedDish       `json:"relatedDishes,omitempty"`
	UserRating         int                 `json:"userRating,omitempty"`
	UserNotes          string              `json:"userNotes,omitempty"`
	CreatedAt          time.Time           `json:"createdAt,omitempty"`
}

// User is a registered account. Accounts are identified by email only.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrInvalid = errors.New("invalid recipe")

// Validate checks the fields a generated recipe must carry.
func (r *Recipe) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	if strings.TrimSpace(r.DishName) == "" {
		return fmt.Errorf("%w: dishName is required", ErrInvalid)
	}
	switch r.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, "":
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalid, r.Difficulty)
	}
	for name, v := range map[string]int{
		"spicy":  r.FlavorProfile.Spicy,
		"sweet":  r.FlavorProfile.Sweet,
		"savory": r.FlavorProfile.Savory,
		"sour":   r.FlavorProfile.Sour,
		"bitter": r.FlavorProfile.Bitter,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("%w: flavor %s out of range: %d", ErrInvalid, name, v)
		}
	}
	return ValidateRating(r.UserRating)
}

// Normalize coerces provider output into the accepted ranges. Difficulty is
// matched case-insensitively and dropped when unknown; flavor scores are
// clamped to 0..10.
func (r *Recipe) Normalize() {
	switch strings.ToLower(strings.TrimSpace(r.Difficulty)) {
	case "easy":
		r.Difficulty = DifficultyEasy
	case "medium":
		r.Difficulty = DifficultyMedium
	case "hard":
		r.Difficulty = DifficultyHard
	default:
		r.Difficulty = ""
	}

	fp := &r.FlavorProfile
	for _, v := range []*int{&fp.Spicy, &fp.Sweet, &fp.Savory, &fp.Sour, &fp.Bitter} {
		*v = clamp(*v, 0, 10)
	}
	r.UserRating = clamp(r.UserRating, 0, MaxRating)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateRating reports whether stars is within 0..MaxRating.
func ValidateRating(stars int) error {
	if stars < 0 || stars > MaxRating {
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrInvalid, MaxRating)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
