package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/fennwright/rtc-rendezvous/internal/protocol"
)

func TestDecodeClientMessageRegister(t *testing.T) {
	msg, err := protocol.DecodeClientMessage([]byte(`{"type":"register","peer_code":"ABC123","device_name":"My Laptop","device_type":"laptop"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.TypeRegister || msg.PeerCode != "ABC123" || msg.DeviceName != "My Laptop" || msg.DeviceType != "laptop" {
		t.Fatalf("unexpected decode: %+v", msg)
	}
}

func TestDecodeClientMessageSignal(t *testing.T) {
	msg, err := protocol.DecodeClientMessage([]byte(`{"type":"signal","to":"B","payload":{"k":"v","n":[1,2,3]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.TypeSignal || msg.To != "B" {
		t.Fatalf("unexpected decode: %+v", msg)
	}
	if string(msg.Payload) != `{"k":"v","n":[1,2,3]}` {
		t.Fatalf("payload not preserved opaquely: %s", msg.Payload)
	}
}

func TestDecodeClientMessagePing(t *testing.T) {
	msg, err := protocol.DecodeClientMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.TypePing {
		t.Fatalf("unexpected decode: %+v", msg)
	}
}

func TestDecodeClientMessageRejectsUnknownType(t *testing.T) {
	if _, err := protocol.DecodeClientMessage([]byte(`{"type":"bogus"}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestDecodeClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := protocol.DecodeClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestEncodePeersSnapshotEmptyRoom(t *testing.T) {
	snap := protocol.NewPeersSnapshot(nil)
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"peers","peers":[]}` {
		t.Fatalf("got %s", b)
	}
}

func TestEncodeSignalForwardRoundTripsPayloadBytewise(t *testing.T) {
	in := json.RawMessage(`{"k":"v","n":[1,2,3]}`)
	fwd := protocol.NewSignalForward("A", in)
	b, err := json.Marshal(fwd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Type    string          `json:"type"`
		From    string          `json:"from"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != "signal" || out.From != "A" || string(out.Payload) != string(in) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
