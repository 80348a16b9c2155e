// Package trust implements the pure, stateless predicates that sit at the
// network edge: they cap untrusted field sizes, reject binary frames, and
// classify a remote address into a room code. None of them hold state and
// none of them can fail in a way that panics — untrusted input only ever
// produces a bool or a short string here.
package trust

import (
	"net"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	// MaxMessageBytes is the hard cap on a single wire frame, enforced both
	// by the WebSocket upgrader's max-message-size option and again here
	// before the frame reaches the codec.
	MaxMessageBytes = 1 << 20 // 1 MiB

	MaxDeviceNameBytes = 256
	MaxPeerCodeBytes   = 16
)

// ValidateMessageSize reports whether a frame of the given length is within
// the hard cap. It does not read the frame itself — the caller is expected
// to have this length from the transport layer before buffering the body.
func ValidateMessageSize(n int) bool {
	return n >= 0 && n <= MaxMessageBytes
}

// ValidateDeviceName reports whether s is an acceptable device_name: opaque,
// valid UTF-8, at most MaxDeviceNameBytes bytes. Empty is allowed — device
// names are a display string, not an identifier.
func ValidateDeviceName(s string) bool {
	return utf8.ValidString(s) && len(s) <= MaxDeviceNameBytes
}

// ValidatePeerCode reports whether s is an acceptable peer_code or
// signal target: non-empty, UTF-8, at most MaxPeerCodeBytes bytes.
func ValidatePeerCode(s string) bool {
	return utf8.ValidString(s) && len(s) > 0 && len(s) <= MaxPeerCodeBytes
}

// ValidateSignalTarget is an alias for ValidatePeerCode: a signal's `to`
// field is held to exactly the same cap as a peer_code, since it names one.
func ValidateSignalTarget(s string) bool {
	return ValidatePeerCode(s)
}

// private IPv4/IPv6 ranges per RFC 1918, RFC 6598 (CGNAT), RFC 3927/4291
// (link-local), and RFC 4193 (unique local).
var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("trust: invalid CIDR literal " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

// sharedPrivateRoomCode is the single room code every peer connecting from
// any private-range address is assigned. A literal shared room, rather than
// a per-subnet hash, is the simplest classifier consistent with spec:
// "collapse all peers within any single private-address family to a single
// room code" — there is exactly one private address family as far as room
// formation is concerned.
const sharedPrivateRoomCode = "lan"

// ClassifyAddress derives a room code from a remote address. Peers whose
// address falls in any RFC 1918/6598/3927/4291/4193 private range all land
// in the same room code; every other (public) address gets a room code
// derived from the address itself, so distinct public peers never collide.
func ClassifyAddress(ip net.IP) string {
	if ip == nil {
		return sharedPrivateRoomCode
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return sharedPrivateRoomCode
		}
	}
	return "pub-" + ip.String()
}

// ClassifyHostPort is a convenience wrapper for the common case of a
// net.Conn/http.Request RemoteAddr string ("host:port" or a bare host).
func ClassifyHostPort(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	return ClassifyAddress(net.ParseIP(host))
}

// IsTextFrame reports whether a WebSocket frame opcode is text. Binary
// frames are rejected outright: signaling is text-only JSON.
func IsTextFrame(messageType int) bool {
	return messageType == websocket.TextMessage
}
