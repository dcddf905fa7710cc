package api

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/pkg/observability"
	"github.com/bit2swaz/foodstagram/pkg/storage"
)

// FileResolver maps a media key to a local file path.
type FileResolver interface {
	Path(key string) (string, error)
}

// MediaHandler serves media stored by the local driver.
type MediaHandler struct {
	files  FileResolver
	logger *zap.Logger
}

func NewMediaHandler(files FileResolver, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{files: files, logger: logger}
}

// HandleDownload streams the file for the wildcard key to the response.
// Mount it on a route ending in "/*".
func (h *MediaHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	path, err := h.files.Path(key)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			http.Error(w, "invalid key", http.StatusBadRequest)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		h.logger.Error("open media file", zap.String("key", key), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.logger.Error("stat media file", zap.String("key", key), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")

	n, err := io.Copy(w, file)
	observability.MediaTraffic.WithLabelValues("download").Add(float64(n))
	if err != nil {
		// Headers are already sent; nothing left but to log.
		h.logger.Warn("stream media file", zap.String("key", key), zap.Error(err))
	}
}
