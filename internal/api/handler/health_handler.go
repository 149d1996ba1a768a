package handler

import "net/http"

// HealthHandler serves the liveness probe. The HTTP surface only runs while
// the pipeline does, so answering at all means the process is up.
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler { return &HealthHandler{version: version} }

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}
