package handler

import (
	"net/http"

	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/transport"
)

// StatusHandler serves a human-readable JSON snapshot of the bridge.
// Counters and histograms live at /metrics.
type StatusHandler struct {
	q        *queue.PacketQueue
	appName  string
	endpoint string
}

func NewStatusHandler(q *queue.PacketQueue, appName, endpoint string) *StatusHandler {
	return &StatusHandler{q: q, appName: appName, endpoint: transport.Redact(endpoint)}
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"app_name":  h.appName,
		"ws_server": h.endpoint,
		"queue": map[string]int{
			"depth":    h.q.Depth(),
			"capacity": h.q.Cap(),
		},
	})
}
