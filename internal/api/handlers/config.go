package handlers

import (
	"net/http"

	"github.com/nforsman/scandir/internal/config"
)

// ConfigHandler handles GET /api/config. Configuration is file-based;
// the API exposes it read-only.
type ConfigHandler struct {
	Cfg *config.Config
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Cfg)
}
