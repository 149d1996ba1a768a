package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/danmaku-bridge/internal/api/handler"
	apimw "github.com/notifyhub/danmaku-bridge/internal/api/middleware"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
)

// RouterDeps is everything the HTTP surface reads from. It never writes to
// the pipeline.
type RouterDeps struct {
	Queue    *queue.PacketQueue
	AppName  string
	Endpoint string
	Version  string
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter wires the chi router with the observability endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(apimw.RequestID)
	r.Use(apimw.RequestLogger(deps.Logger))

	hh := handler.NewHealthHandler(deps.Version)
	sh := handler.NewStatusHandler(deps.Queue, deps.AppName, deps.Endpoint)

	r.NotFound(handler.NotFound)
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", sh.GetStatus)
	})

	return r
}
