package trust_test

import (
	"net"
	"strings"
	"testing"

	"github.com/fennwright/rtc-rendezvous/internal/trust"
)

func TestValidateMessageSize(t *testing.T) {
	if !trust.ValidateMessageSize(trust.MaxMessageBytes) {
		t.Fatalf("exactly 1 MiB should be accepted")
	}
	if trust.ValidateMessageSize(trust.MaxMessageBytes + 1) {
		t.Fatalf("1 MiB + 1 should be rejected")
	}
}

func TestValidateDeviceName(t *testing.T) {
	if !trust.ValidateDeviceName(strings.Repeat("a", 256)) {
		t.Fatalf("256 bytes should be accepted")
	}
	if trust.ValidateDeviceName(strings.Repeat("a", 257)) {
		t.Fatalf("257 bytes should be rejected")
	}
	if !trust.ValidateDeviceName("") {
		t.Fatalf("empty device name should be accepted")
	}
}

func TestValidatePeerCode(t *testing.T) {
	if !trust.ValidatePeerCode(strings.Repeat("a", 16)) {
		t.Fatalf("16 bytes should be accepted")
	}
	if trust.ValidatePeerCode(strings.Repeat("a", 17)) {
		t.Fatalf("17 bytes should be rejected")
	}
	if trust.ValidatePeerCode("") {
		t.Fatalf("empty peer_code should be rejected")
	}
}

func TestValidateSignalTargetMatchesPeerCode(t *testing.T) {
	if trust.ValidateSignalTarget("") != trust.ValidatePeerCode("") {
		t.Fatalf("signal target validation should mirror peer_code validation")
	}
}

func TestClassifyAddressPrivateRangesShareACode(t *testing.T) {
	addrs := []string{
		"10.0.0.5",
		"172.16.3.9",
		"192.168.1.10",
		"192.168.1.11",
		"169.254.1.1",
		"100.64.0.1",
		"fc00::1",
		"fe80::1",
	}
	want := trust.ClassifyAddress(net.ParseIP(addrs[0]))
	for _, a := range addrs[1:] {
		got := trust.ClassifyAddress(net.ParseIP(a))
		if got != want {
			t.Fatalf("private addr %s got room %q, want %q (same as %s)", a, got, want, addrs[0])
		}
	}
}

func TestClassifyAddressPublicAddressesDoNotCollideWithPrivate(t *testing.T) {
	priv := trust.ClassifyAddress(net.ParseIP("10.0.0.5"))
	pub := trust.ClassifyAddress(net.ParseIP("8.8.8.8"))
	if priv == pub {
		t.Fatalf("public address must not share a room code with private addresses")
	}
}

func TestClassifyAddressDistinctPublicAddressesFormSingletonRooms(t *testing.T) {
	a := trust.ClassifyAddress(net.ParseIP("8.8.8.8"))
	b := trust.ClassifyAddress(net.ParseIP("1.1.1.1"))
	if a == b {
		t.Fatalf("distinct public addresses must not share a room code")
	}
}

func TestClassifyHostPort(t *testing.T) {
	a := trust.ClassifyHostPort("192.168.1.10:54321")
	b := trust.ClassifyHostPort("192.168.1.11:9000")
	if a != b {
		t.Fatalf("same private range with different ports/hosts should share a room")
	}
}

func TestIsTextFrame(t *testing.T) {
	const (
		textMessage   = 1
		binaryMessage = 2
	)
	if !trust.IsTextFrame(textMessage) {
		t.Fatalf("text frame should be accepted")
	}
	if trust.IsTextFrame(binaryMessage) {
		t.Fatalf("binary frame should be rejected")
	}
}
