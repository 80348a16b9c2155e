// Package ws is the connection handler: the per-socket state machine that
// accepts a WebSocket upgrade, validates and registers the first frame,
// then runs an inbound loop concurrently with a dedicated outbound pump
// until the socket closes, tearing the peer out of the room manager on
// every exit path.
package ws

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fennwright/rtc-rendezvous/internal/config"
	"github.com/fennwright/rtc-rendezvous/internal/hub"
	"github.com/fennwright/rtc-rendezvous/internal/logs"
	"github.com/fennwright/rtc-rendezvous/internal/metrics"
	"github.com/fennwright/rtc-rendezvous/internal/protocol"
	"github.com/fennwright/rtc-rendezvous/internal/ratelimit"
	"github.com/fennwright/rtc-rendezvous/internal/room"
	"github.com/fennwright/rtc-rendezvous/internal/trust"
	"github.com/gorilla/websocket"
)

// policyViolation is the close code for trust-boundary and rate violations.
const policyViolation = websocket.ClosePolicyViolation

// NewHandler returns the /ws endpoint: upgrades the connection, classifies
// its room, then hands off to the per-connection state machine.
func NewHandler(cfg config.Config, log logs.Logger, mgr *room.Manager) http.Handler {
	l := log.Named("ws")

	up := websocket.Upgrader{
		ReadBufferSize:  cfg.WSReadBuf,
		WriteBufferSize: cfg.WSWriteBuf,
		CheckOrigin:     originChecker(cfg),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			l.Warn("upgrade failed", logs.F("err", err))
			return
		}
		metrics.Connections.Inc()

		roomCode := r.URL.Query().Get("room")
		if roomCode == "" || len(roomCode) > 64 {
			roomCode = trust.ClassifyHostPort(r.RemoteAddr)
		}

		conn := &connection{
			ws:       c,
			conn:     hub.NewConn(c),
			log:      l.With(logs.F("remote", r.RemoteAddr), logs.F("room", roomCode)),
			cfg:      cfg,
			mgr:      mgr,
			roomCode: roomCode,
			limiter:  ratelimit.New(ratelimit.MaxMessagesPerSecond, ratelimit.MaxConsecutiveViolations, time.Now),
		}
		conn.run()
	})
}

func originChecker(cfg config.Config) func(*http.Request) bool {
	if cfg.DevMode || len(cfg.CORSOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, allowed := range cfg.CORSOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
}

// connection is the per-socket state machine described in SPEC_FULL.md
// §4.E. Fields are only ever touched from the connection's own goroutines
// (inbound loop + the heartbeat ticker it starts), never shared across
// connections — that's internal/room's job.
type connection struct {
	ws       *websocket.Conn
	conn     *hub.Conn
	log      logs.Logger
	cfg      config.Config
	mgr      *room.Manager
	roomCode string
	limiter  *ratelimit.Limiter

	peerCode   string
	registered bool
	out        *hub.Queue
}

func (c *connection) run() {
	defer func() {
		c.teardown()
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(c.cfg.WSMaxMsg)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.Handshake))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.Heartbeat * 2))
		return nil
	})

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)
	go c.heartbeat(stopHeartbeat)

	if !c.preRegister() {
		return
	}

	c.inboundLoop()
}

func (c *connection) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(2*time.Second))
		}
	}
}

// preRegister reads exactly one frame and requires it to be a valid
// register: text, within the size cap, parseable, and of type "register".
// Any other outcome rejects the connection immediately — no retries, no
// strike count.
func (c *connection) preRegister() bool {
	messageType, raw, err := c.ws.ReadMessage()
	if err != nil {
		return false
	}
	if !trust.IsTextFrame(messageType) {
		c.reject("binary frame before registration")
		return false
	}
	if !trust.ValidateMessageSize(len(raw)) {
		c.reject("oversize first frame")
		return false
	}
	msg, err := protocol.DecodeClientMessage(raw)
	if err != nil {
		c.reject("malformed first frame")
		return false
	}
	if msg.Type != protocol.TypeRegister {
		c.reject("first frame was not register")
		return false
	}
	if !trust.ValidatePeerCode(msg.PeerCode) {
		c.reject("invalid peer_code")
		return false
	}
	if !trust.ValidateDeviceName(msg.DeviceName) {
		c.reject("invalid device_name")
		return false
	}

	c.out = hub.NewQueue()
	meta := room.Metadata{PeerCode: msg.PeerCode, DeviceName: msg.DeviceName, DeviceType: msg.DeviceType}
	res := c.mgr.AddPeer(c.roomCode, msg.PeerCode, meta, c.out)
	if res.Err != nil {
		c.reject("duplicate peer_code in room")
		return false
	}

	c.peerCode = msg.PeerCode
	c.registered = true
	metrics.Messages.WithLabelValues(protocol.TypeRegister).Inc()

	go func() {
		if err := hub.Pump(c.conn, c.out); err != nil {
			c.log.Debug("outbound pump ended", logs.F("err", err))
		}
	}()
	return true
}

func (c *connection) reject(reason string) {
	metrics.TrustRejections.WithLabelValues(reason).Inc()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(policyViolation, reason),
		time.Now().Add(time.Second))
	c.log.Info("connection rejected", logs.F("reason", reason))
}

// inboundLoop runs the REGISTERED state: every frame is size- and
// type-checked, rate-limited, decoded, then dispatched. Apart from the close
// control frame written on a violation, the handler never writes to the
// socket here — only the outbound pump writes data frames, so there is a
// single data writer per connection.
func (c *connection) inboundLoop() {
	for {
		messageType, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
				c.log.Debug("clean disconnect")
			}
			return
		}

		if !trust.IsTextFrame(messageType) {
			c.reject("binary frame")
			return
		}
		if !trust.ValidateMessageSize(len(raw)) {
			c.reject("oversize frame")
			return
		}
		if c.limiter.Record() {
			metrics.RateLimitCloses.Inc()
			c.closeRate()
			return
		}

		msg, err := protocol.DecodeClientMessage(raw)
		if err != nil {
			if c.limiter.Violate() {
				metrics.RateLimitCloses.Inc()
				c.closeRate()
				return
			}
			continue
		}

		metrics.Messages.WithLabelValues(msg.Type).Inc()
		switch msg.Type {
		case protocol.TypeSignal:
			if c.handleSignal(msg) {
				return
			}
		case protocol.TypePing:
			// MAY ignore or respond; this server ignores.
		case protocol.TypeRegister:
			// Re-registration after the handshake is a no-op: the first
			// register already established this connection's identity.
		}
	}
}

// handleSignal validates and forwards a signal frame. It reports whether the
// connection was closed for a fail-closed violation, so inboundLoop can
// return immediately — matching the two rate-limit checks above its call
// site, which both return as soon as closeRate is called.
func (c *connection) handleSignal(msg protocol.ClientMessage) bool {
	if !trust.ValidateSignalTarget(msg.To) {
		if c.limiter.Violate() {
			metrics.RateLimitCloses.Inc()
			c.closeRate()
			return true
		}
		return false
	}
	target, ok := c.mgr.FindPeer(c.roomCode, msg.To)
	if !ok {
		return false // no delivery guarantees; silently dropped.
	}
	target.Push(protocol.NewSignalForward(c.peerCode, msg.Payload))
	return false
}

func (c *connection) closeRate() {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(policyViolation, "rate limit exceeded"),
		time.Now().Add(time.Second))
}

func (c *connection) teardown() {
	if !c.registered {
		return
	}
	c.mgr.RemovePeer(c.roomCode, c.peerCode)
	if c.out != nil {
		c.out.Close()
	}
}
