// Package protocol is the bidirectional mapping between wire JSON frames
// and internal tagged message variants. It never panics on malformed
// input — a decode failure is an ordinary error, handled the same way a
// rate-limit violation is (see internal/ws).
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client → server frame types.
const (
	TypeRegister = "register"
	TypeSignal   = "signal"
	TypePing     = "ping"
)

// Server → client frame types.
const (
	TypePeers      = "peers"
	TypePeerJoined = "peer_joined"
	TypePeerLeft   = "peer_left"
)

// PeerInfo is the opaque, client-chosen identity of one peer, as sent in
// presence frames.
type PeerInfo struct {
	PeerCode   string `json:"peer_code"`
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
}

// ClientMessage is the decoded shape of any client → server frame. Only the
// fields relevant to Type are populated; callers switch on Type.
type ClientMessage struct {
	Type       string          `json:"type"`
	PeerCode   string          `json:"peer_code,omitempty"`
	DeviceName string          `json:"device_name,omitempty"`
	DeviceType string          `json:"device_type,omitempty"`
	To         string          `json:"to,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// DecodeClientMessage parses a wire frame into a ClientMessage. Unknown
// `type` values and malformed JSON are both reported as an error — the
// caller counts either as a rate-limit violation, per spec.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("protocol: malformed frame: %w", err)
	}
	switch msg.Type {
	case TypeRegister, TypeSignal, TypePing:
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("protocol: unknown frame type %q", msg.Type)
	}
}

// PeersSnapshot is the `peers` frame sent once at successful registration.
type PeersSnapshot struct {
	Type  string     `json:"type"`
	Peers []PeerInfo `json:"peers"`
}

// NewPeersSnapshot builds a `peers` snapshot frame. peers is never nil in
// the wire encoding — an empty room still encodes as "peers":[].
func NewPeersSnapshot(peers []PeerInfo) PeersSnapshot {
	if peers == nil {
		peers = []PeerInfo{}
	}
	return PeersSnapshot{Type: TypePeers, Peers: peers}
}

// PeerJoined is the `peer_joined` broadcast frame.
type PeerJoined struct {
	Type string   `json:"type"`
	Peer PeerInfo `json:"peer"`
}

func NewPeerJoined(p PeerInfo) PeerJoined {
	return PeerJoined{Type: TypePeerJoined, Peer: p}
}

// PeerLeft is the `peer_left` broadcast frame.
type PeerLeft struct {
	Type     string `json:"type"`
	PeerCode string `json:"peer_code"`
}

func NewPeerLeft(peerCode string) PeerLeft {
	return PeerLeft{Type: TypePeerLeft, PeerCode: peerCode}
}

// SignalForward is the server-rewritten `signal` frame: `from` is always
// server-set from the sender's registered peer_code, never client-supplied.
type SignalForward struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

func NewSignalForward(from string, payload json.RawMessage) SignalForward {
	return SignalForward{Type: TypeSignal, From: from, Payload: payload}
}
