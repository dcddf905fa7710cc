package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/database"
	"github.com/bit2swaz/foodstagram/internal/recipe"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type SessionResponse struct {
	User  *recipe.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, 1<<20, true, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = recipe.NormalizeEmail(req.Email)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	user := &recipe.User{Name: req.Name, Email: req.Email}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("create user failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.startSession(w, r, user, http.StatusCreated)
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, 1<<20, true, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Email = recipe.NormalizeEmail(req.Email)
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no account found for this email")
			return
		}
		s.logger.Error("lookup user failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.startSession(w, r, user, http.StatusOK)
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	tokenHash, _ := r.Context().Value(tokenHashKey).(string)
	if err := s.store.DeleteSession(r.Context(), tokenHash); err != nil {
		s.logger.Error("delete session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startSession issues a bearer token for user. Only its hash is stored.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *recipe.User, status int) {
	token := uuid.NewString()
	expiresAt := s.now().Add(s.sessionTTL)

	if err := s.store.CreateSession(r.Context(), hashToken(token), user.ID, expiresAt); err != nil {
		s.logger.Error("create session failed", zap.String("user_id", user.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, status, SessionResponse{User: user, Token: token})
}
