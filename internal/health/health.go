// Package health provides liveness and readiness probes, independent of
// room state.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/fennwright/rtc-rendezvous/internal/room"
)

// Healthz reports process liveness: if it can answer at all, it's alive.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

// Readyz reports readiness plus the room manager's current load, so an
// operator can distinguish "process up" from "serving traffic".
func Readyz(mgr *room.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"rooms":  mgr.RoomCount(),
			"peers":  mgr.PeerCount(),
		})
	})
}
