package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/readup-server/internal/media/images"
)

// registerCoverRoutes serves downloaded covers. Image tags cannot send a
// bearer token, so covers are public.
func (s *Server) registerCoverRoutes() {
	s.router.Get(coversPath, s.handleServeCover)
}

func (s *Server) handleServeCover(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.storage == nil || s.storage.Covers == nil {
		http.Error(w, "cover not found", http.StatusNotFound)
		return
	}

	data, err := s.storage.Covers.Get(name)
	switch {
	case errors.Is(err, images.ErrInvalidName):
		http.Error(w, "invalid cover name", http.StatusBadRequest)
		return
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "cover not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("failed to read cover", "name", name, "error", err)
		http.Error(w, "failed to read cover", http.StatusInternalServerError)
		return
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", CacheOneWeek)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write cover", "name", name, "error", err)
	}
}
