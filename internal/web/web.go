// Package web serves the single-page frontend.
package web

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// IndexFile is the entry file served for "/".
const IndexFile = "index.html"

//go:embed static/index.html
var embedded embed.FS

// Handler serves the entry file from a directory, or from the copy built
// into the binary when no directory is configured.
type Handler struct {
	dir string
	log zerolog.Logger
}

// NewHandler creates a Handler. An empty dir selects the embedded copy.
func NewHandler(dir string, log zerolog.Logger) *Handler {
	return &Handler{dir: dir, log: log}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := h.index()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		h.log.Error().Err(err).Str("dir", h.dir).Msg("Failed to read entry file")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) index() ([]byte, error) {
	if h.dir == "" {
		return embedded.ReadFile("static/" + IndexFile)
	}
	return os.ReadFile(filepath.Join(h.dir, IndexFile))
}
