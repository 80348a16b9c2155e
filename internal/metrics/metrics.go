// Package metrics exposes Prometheus counters/gauges for the rendezvous
// service: connection and message volume, trust-boundary and rate-limit
// rejections, and live room/peer gauges the room manager pushes on every
// add/remove. This is scrape-endpoint instrumentation internal to the
// process, not the dashboarding spec.md's Non-goals exclude.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reg = prometheus.NewRegistry()

	Connections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rendezvous_ws_connections_total", Help: "Total WS connections accepted",
	})
	Messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rendezvous_ws_messages_total", Help: "WS messages handled, by frame type",
	}, []string{"type"})
	TrustRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rendezvous_trust_rejections_total", Help: "Connections closed by a trust-boundary validator, by reason",
	}, []string{"reason"})
	RateLimitCloses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rendezvous_rate_limit_closes_total", Help: "Connections closed for exceeding the rate limit",
	})
	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rendezvous_rooms_active", Help: "Non-empty rooms currently tracked",
	})
	PeersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rendezvous_peers_active", Help: "Registered peers currently tracked",
	})
)

func Init() {
	reg.MustRegister(Connections, Messages, TrustRejections, RateLimitCloses, RoomsActive, PeersActive)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// SetRoomCounts updates the live room/peer gauges. Wired as the room
// manager's OnChange callback so the room package itself stays free of a
// metrics import.
func SetRoomCounts(rooms, peers int) {
	RoomsActive.Set(float64(rooms))
	PeersActive.Set(float64(peers))
}
