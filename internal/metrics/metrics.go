package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/danmaku-bridge/internal/service"
)

// Metrics groups all Prometheus instruments used across the bridge.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Notifications *prometheus.CounterVec
	PacketsSent   prometheus.Counter
	SendFailures  prometheus.Counter
	Reconnects    *prometheus.CounterVec
	Resends       *prometheus.CounterVec
	SendLatency   prometheus.Histogram
	QueueDepth    prometheus.GaugeFunc
}

// New registers all instruments with reg. queueDepth is sampled at scrape time.
// A private registry keeps tests isolated from global state.
func New(reg prometheus.Registerer, queueDepth func() int) *Metrics {
	m := &Metrics{
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_notifications_total",
			Help: "Notifications observed on the bus, by forwarding decision.",
		}, []string{"decision"}),

		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "danmaku_packets_sent_total",
			Help: "Packets written to the danmaku server on the first attempt.",
		}),

		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "danmaku_send_failures_total",
			Help: "First-attempt sends that failed and triggered a reconnect.",
		}),

		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_reconnects_total",
			Help: "Reconnect attempts after a failed send, by result.",
		}, []string{"result"}),

		Resends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_resends_total",
			Help: "Resend attempts after a successful reconnect, by result.",
		}, []string{"result"}),

		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "danmaku_send_seconds",
			Help:    "Time spent writing one frame to the danmaku server.",
			Buckets: prometheus.DefBuckets,
		}),

		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "danmaku_queue_depth",
			Help: "Packets waiting between the listener and the sink.",
		}, func() float64 { return float64(queueDepth()) }),
	}

	reg.MustRegister(
		m.Notifications,
		m.PacketsSent,
		m.SendFailures,
		m.Reconnects,
		m.Resends,
		m.SendLatency,
		m.QueueDepth,
	)

	return m
}

// ListenerHook returns the callback expected by worker.ListenerHooks.
func (m *Metrics) ListenerHook() func(service.Decision) {
	return func(d service.Decision) {
		m.Notifications.WithLabelValues(string(d)).Inc()
	}
}

// SinkHooks returns the callbacks expected by worker.SinkHooks.
// Keeps the prometheus calls here so the worker package stays import-free.
func (m *Metrics) SinkHooks() (
	onSent func(time.Duration),
	onSendFailed func(),
	onReconnect func(ok bool),
	onResend func(ok bool),
) {
	onSent = func(latency time.Duration) {
		m.PacketsSent.Inc()
		m.SendLatency.Observe(latency.Seconds())
	}
	onSendFailed = func() {
		m.SendFailures.Inc()
	}
	onReconnect = func(ok bool) {
		m.Reconnects.WithLabelValues(result(ok)).Inc()
	}
	onResend = func(ok bool) {
		m.Resends.WithLabelValues(result(ok)).Inc()
	}
	return
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
