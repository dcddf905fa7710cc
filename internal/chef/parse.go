package chef

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

// parseRecipe decodes model text into a Recipe. Markdown code fences and any
// prose before the first '{' or after the last '}' are dropped.
func parseRecipe(text string) (*recipe.Recipe, error) {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first != -1 && last > first {
		clean = clean[first : last+1]
	}

	var r recipe.Recipe
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return nil, fmt.Errorf("decode recipe json: %w", err)
	}

	if r.DishName == linkAccessSentinel {
		return nil, &Error{
			Kind:    ErrLinkUnreadable,
			Message: "The details of that link could not be accessed. It might be private or not indexed yet. Try describing the dish or uploading a photo.",
		}
	}

	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validate recipe json: %w", err)
	}
	return &r, nil
}
