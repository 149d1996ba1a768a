package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/danmaku-bridge/internal/api"
	"github.com/notifyhub/danmaku-bridge/internal/bus"
	"github.com/notifyhub/danmaku-bridge/internal/config"
	"github.com/notifyhub/danmaku-bridge/internal/logging"
	"github.com/notifyhub/danmaku-bridge/internal/metrics"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/ratelimiter"
	"github.com/notifyhub/danmaku-bridge/internal/service"
	"github.com/notifyhub/danmaku-bridge/internal/transport"
	"github.com/notifyhub/danmaku-bridge/internal/worker"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ---- configuration ----
	cfg, err := config.Load(os.Args[1:])
	switch {
	case errors.Is(err, config.ErrHelp):
		return 0
	case errors.Is(err, config.ErrVersion):
		fmt.Println("danmaku-bridge", version)
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	// ---- logging ----
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("dbus notification forwarding service started",
		zap.String("ws_server", transport.Redact(cfg.WSServer)),
		zap.String("app_name", cfg.AppName),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	q := queue.New(queue.DefaultCapacity)
	m := metrics.New(reg, q.Depth)

	listener := worker.NewListener(
		bus.NewSessionSource(),
		q,
		service.NewForwarder(cfg.AppName),
		logger.With(zap.String("stage", "listener")),
		worker.ListenerHooks{OnNotification: m.ListenerHook()},
	)

	onSent, onSendFailed, onReconnect, onResend := m.SinkHooks()
	sink := worker.NewSink(
		transport.NewWebSocketDialer(http.Header{"User-Agent": []string{"danmaku-bridge/" + version}}),
		cfg.WSServer,
		q,
		ratelimiter.New(cfg.SendRateLimit),
		logger.With(zap.String("stage", "sink")),
		worker.SinkHooks{
			OnSent:       onSent,
			OnSendFailed: onSendFailed,
			OnReconnect:  onReconnect,
			OnResend:     onResend,
		},
	)

	// ---- optional HTTP surface ----
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr: cfg.MetricsAddr,
			Handler: api.NewRouter(api.RouterDeps{
				Queue:    q,
				AppName:  cfg.AppName,
				Endpoint: cfg.WSServer,
				Version:  version,
				Gatherer: reg,
				Logger:   logger.With(zap.String("component", "http")),
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Not a pipeline stage: losing it is logged, the forwarding carries on.
		go func() {
			logger.Info("http server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
	}

	// ---- pipeline ----
	runErr := worker.NewPipeline(listener, sink, q, logger).Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("service stopped with error", zap.Error(runErr))
		return 1
	}
	logger.Info("service exited normally")
	return 0
}
