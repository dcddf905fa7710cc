package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/database"
	"github.com/bit2swaz/foodstagram/internal/recipe"
)

const maxRecipeBody = 1 << 20

// UpdateRecipeRequest patches the user-owned fields of a saved recipe.
type UpdateRecipeRequest struct {
	UserRating *int    `json:"userRating,omitempty"`
	UserNotes  *string `json:"userNotes,omitempty"`
	VideoURI   *string `json:"videoUri,omitempty"`
}

// ToggleResponse reports the cookbook state of a dish after a toggle.
type ToggleResponse struct {
	Saved  bool           `json:"saved"`
	ID     string         `json:"id"`
	Recipe *recipe.Recipe `json:"recipe,omitempty"`
}

func (s *Server) HandleListCookbook(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	recipes, err := s.store.ListRecipes(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "list recipes", user.ID, err)
		return
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	respondJSON(w, http.StatusOK, recipes)
}

func (s *Server) HandleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	rec, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}

	if err := s.store.SaveRecipe(r.Context(), user.ID, rec); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.internalError(w, "save recipe", user.ID, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// HandleToggleRecipe removes the dish from the cookbook when it is already
// saved and saves it otherwise. Dishes are matched by name.
func (s *Server) HandleToggleRecipe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	rec, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}

	existing, err := s.store.FindRecipeByDish(r.Context(), user.ID, rec.DishName)
	switch {
	case err == nil:
		if err := s.store.DeleteRecipe(r.Context(), user.ID, existing.ID); err != nil {
			s.internalError(w, "unsave recipe", user.ID, err)
			return
		}
		respondJSON(w, http.StatusOK, ToggleResponse{Saved: false, ID: existing.ID})
	case errors.Is(err, database.ErrNotFound):
		rec.ID = ""
		if err := s.store.SaveRecipe(r.Context(), user.ID, rec); err != nil {
			s.internalError(w, "save recipe", user.ID, err)
			return
		}
		respondJSON(w, http.StatusOK, ToggleResponse{Saved: true, ID: rec.ID, Recipe: rec})
	default:
		s.internalError(w, "find recipe", user.ID, err)
	}
}

func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	rec, err := s.store.GetRecipe(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.internalError(w, "get recipe", user.ID, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req UpdateRecipeRequest
	if err := decodeJSON(w, r, maxRecipeBody, true, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.UserRating != nil {
		if err := recipe.ValidateRating(*req.UserRating); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := s.store.GetRecipe(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.internalError(w, "get recipe", user.ID, err)
		return
	}

	if req.UserRating != nil {
		rec.UserRating = *req.UserRating
	}
	if req.UserNotes != nil {
		rec.UserNotes = *req.UserNotes
	}
	if req.VideoURI != nil {
		rec.VideoURI = strings.TrimSpace(*req.VideoURI)
	}

	if err := s.store.SaveRecipe(r.Context(), user.ID, rec); err != nil {
		s.internalError(w, "update recipe", user.ID, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := s.store.DeleteRecipe(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.internalError(w, "delete recipe", user.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeRecipe(w http.ResponseWriter, r *http.Request) (*recipe.Recipe, bool) {
	var rec recipe.Recipe
	if err := decodeJSON(w, r, maxRecipeBody, false, &rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return nil, false
	}
	rec.DishName = strings.TrimSpace(rec.DishName)
	if err := rec.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &rec, true
}

func (s *Server) internalError(w http.ResponseWriter, op, userID string, err error) {
	s.logger.Error(op+" failed", zap.String("user_id", userID), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}
