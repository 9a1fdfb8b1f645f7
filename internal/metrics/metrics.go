// Package metrics wraps the Prometheus collectors the relay exposes on
// its metrics HTTP surface, grounded on odin-ws-server-3/internal/metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors used by the relay.
type Registry struct {
	ActiveSessions  prometheus.Gauge
	ActiveChannels  prometheus.Gauge
	UpgradeFailures prometheus.Counter

	MessagesPublished prometheus.Counter
	MessagesDelivered prometheus.Counter
}

// NewRegistry creates and registers the relay's Prometheus collectors.
func NewRegistry() *Registry {
	return &Registry{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_relay_sessions_active",
			Help: "Number of currently connected publisher and subscriber sessions",
		}),
		ActiveChannels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_relay_channels_active",
			Help: "Number of channels currently held in the hub",
		}),
		UpgradeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pubsub_relay_upgrade_failures_total",
			Help: "Total number of rejected or failed WebSocket upgrades",
		}),
		MessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pubsub_relay_messages_published_total",
			Help: "Total number of frames read from publishers",
		}),
		MessagesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pubsub_relay_messages_delivered_total",
			Help: "Total number of frames successfully written to subscribers",
		}),
	}
}

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
