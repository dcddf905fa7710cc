package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucsky/cuid"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/chef"
	"github.com/bit2swaz/foodstagram/pkg/observability"
)

// Image payloads arrive base64-encoded inside JSON.
const maxGenerateBody = 12 << 20

type VideoRequest struct {
	DishName string `json:"dishName"`
	Origin   string `json:"origin"`
}

type VideoResponse struct {
	VideoURI string `json:"videoUri"`
}

// HandleGenerate turns an image, a query, a link or nothing (random) into a recipe.
func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var in chef.Input
	if err := decodeJSON(w, r, maxGenerateBody, false, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in.Kind = strings.TrimSpace(in.Kind)
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.admit(w, r) {
		return
	}

	rec, err := s.provider.GenerateRecipe(r.Context(), in)
	if err != nil {
		observability.ChefRequests.WithLabelValues(in.Kind, "error").Inc()
		s.respondProviderError(w, err)
		return
	}
	observability.ChefRequests.WithLabelValues(in.Kind, "ok").Inc()

	respondJSON(w, http.StatusOK, rec)
}

// HandleVideo renders a cooking video for a dish and, when media storage is
// configured, archives it so clients can download it without provider credentials.
func (s *Server) HandleVideo(w http.ResponseWriter, r *http.Request) {
	var req VideoRequest
	if err := decodeJSON(w, r, 1<<20, true, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.DishName = strings.TrimSpace(req.DishName)
	req.Origin = strings.TrimSpace(req.Origin)
	if req.DishName == "" {
		respondError(w, http.StatusBadRequest, "dishName is required")
		return
	}

	if !s.admit(w, r) {
		return
	}

	uri, err := s.provider.GenerateVideo(r.Context(), req.DishName, req.Origin)
	if err != nil {
		observability.ChefRequests.WithLabelValues("video", "error").Inc()
		s.respondProviderError(w, err)
		return
	}
	observability.ChefRequests.WithLabelValues("video", "ok").Inc()

	if archived, err := s.archiveVideo(r.Context(), uri); err != nil {
		s.logger.Warn("archive video failed, returning provider uri", zap.String("dish", req.DishName), zap.Error(err))
	} else if archived != "" {
		uri = archived
	}

	respondJSON(w, http.StatusOK, VideoResponse{VideoURI: uri})
}

// archiveVideo copies the provider video into media storage and returns its
// download URL. It returns "" when archiving is not configured.
func (s *Server) archiveVideo(ctx context.Context, uri string) (string, error) {
	fetcher, ok := s.provider.(chef.VideoFetcher)
	if s.media == nil || !ok {
		return "", nil
	}

	body, err := fetcher.FetchVideo(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("fetch video: %w", err)
	}
	defer body.Close()

	key := fmt.Sprintf("videos/%s.mp4", cuid.New())
	if err := s.media.Put(ctx, key, body); err != nil {
		return "", fmt.Errorf("store video: %w", err)
	}

	url, err := s.media.GetDownloadURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve video url: %w", err)
	}
	return url, nil
}

// providerStatus maps a classified provider error to an HTTP status.
func providerStatus(err error) int {
	switch {
	case errors.Is(err, chef.ErrCapacity):
		return http.StatusServiceUnavailable
	case errors.Is(err, chef.ErrAuth), errors.Is(err, chef.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, chef.ErrSafety), errors.Is(err, chef.ErrPolicy),
		errors.Is(err, chef.ErrLinkUnreadable), errors.Is(err, chef.ErrMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chef.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondProviderError(w http.ResponseWriter, err error) {
	status := providerStatus(err)

	msg := "An unexpected error occurred. Please try again."
	var chefErr *chef.Error
	if errors.As(err, &chefErr) && chefErr.Message != "" {
		msg = chefErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("provider call failed", zap.Int("status", status), zap.Error(err))
	}
	respondError(w, status, msg)
}
