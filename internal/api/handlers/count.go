package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/nforsman/scandir"
	"github.com/nforsman/scandir/internal/config"
)

// CountHandler handles GET /api/count, a synchronous aggregate count of
// a directory tree using the configured filter options.
type CountHandler struct {
	Cfg *config.Config
}

type countResponse struct {
	Path       string      `json:"path"`
	Dirs       int64       `json:"dirs"`
	Files      int64       `json:"files"`
	Symlinks   int64       `json:"symlinks"`
	Others     int64       `json:"others"`
	Size       int64       `json:"size,omitempty"`
	Usage      int64       `json:"usage,omitempty"`
	Hardlinks  int64       `json:"hardlinks,omitempty"`
	Errors     []errorInfo `json:"errors"`
	DurationMs int64       `json:"duration_ms"`
}

type errorInfo struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ServeHTTP counts path synchronously. The walk is bound to the request
// context, so a disconnecting client cancels it.
func (h *CountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PATH", "Query parameter 'path' is required")
		return
	}

	opts := h.Cfg.Scan.Options(false)
	if r.URL.Query().Get("extended") == "true" {
		opts.ReturnType = scandir.ReturnExtended
	} else {
		opts.ReturnType = scandir.ReturnBasic
	}

	counter, err := scandir.NewCount(path, opts)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Path does not exist")
		case errors.Is(err, scandir.ErrNotDir):
			writeError(w, http.StatusBadRequest, "NOT_A_DIRECTORY", "Path is not a directory")
		default:
			writeError(w, http.StatusBadRequest, "INVALID_PATH", err.Error())
		}
		return
	}

	stats, err := counter.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "CANCELLED", "Count was cancelled")
		return
	}

	resp := countResponse{
		Path:       path,
		Dirs:       stats.Dirs,
		Files:      stats.Files,
		Symlinks:   stats.Symlinks,
		Others:     stats.Other,
		Size:       stats.Size,
		Usage:      stats.Usage,
		Hardlinks:  stats.Hardlinks,
		Errors:     []errorInfo{},
		DurationMs: stats.Duration.Milliseconds(),
	}
	for _, e := range stats.Errors {
		resp.Errors = append(resp.Errors, errorInfo{Path: e.Path, Message: e.Message})
	}
	writeJSON(w, http.StatusOK, resp)
}
