package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/msomdec/client-registry/internal/domain"
	"github.com/msomdec/client-registry/internal/service"
)

// ImageHandler serves stored client avatars.
type ImageHandler struct {
	images *service.ImageStore
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(images *service.ImageStore) *ImageHandler {
	return &ImageHandler{images: images}
}

// HandleServe streams image bytes with their stored content type. Image
// keys are unguessable so the route is public.
// GET /images/{key...}
func (h *ImageHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusNotFound, "Image not found.")
		return
	}

	data, contentType, err := h.images.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Image not found.")
			return
		}
		writeServiceError(w, r, "serve image", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
