package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fennwright/rtc-rendezvous/internal/config"
	"github.com/fennwright/rtc-rendezvous/internal/logs"
	"github.com/fennwright/rtc-rendezvous/internal/room"
	"github.com/fennwright/rtc-rendezvous/internal/ws"
	"github.com/gorilla/websocket"
)

// TestSignalFloodNoRace hammers the connection with many signal frames while
// a fast heartbeat ticker is concurrently writing ping control frames to the
// same socket, under -race. The outbound pump is the single writer for a
// connection's socket, so this is the test that would catch a regression
// reintroducing a second writer.
func TestSignalFloodNoRace(t *testing.T) {
	cfg := config.FromEnv()
	cfg.DevMode = true
	cfg.Heartbeat = 20 * time.Millisecond
	mgr := room.New()
	log := logs.New("error")

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(cfg, log, mgr))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := dial(t, ts, "race-room")
	defer a.Close()
	register(t, a, "A", "", "")
	_ = readFrame(t, a) // snapshot

	b := dial(t, ts, "race-room")
	defer b.Close()
	register(t, b, "B", "", "")
	_ = readFrame(t, b) // snapshot
	_ = readFrame(t, a) // peer_joined(B)

	const n = 200
	for i := 0; i < n; i++ {
		signal := map[string]any{
			"type":    "signal",
			"to":      "B",
			"payload": map[string]any{"i": strconv.Itoa(i)},
		}
		sb, _ := json.Marshal(signal)
		if err := a.WriteMessage(websocket.TextMessage, sb); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}

		_ = b.SetReadDeadline(time.Now().Add(time.Second))
		fwd := readFrame(t, b)
		if fwd["type"] != "signal" {
			t.Fatalf("expected a forwarded signal, got %+v", fwd)
		}
	}
}
