package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spidexmarket_messages_sent_total",
		Help: "Messages persisted through the message service.",
	})

	RealtimeDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spidexmarket_realtime_deliveries_total",
		Help: "Message payloads pushed to live websocket connections.",
	})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spidexmarket_websocket_connections",
		Help: "Currently registered websocket connections.",
	})
)

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
