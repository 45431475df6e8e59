package p2p

import (
	"bytes"
	"testing"

	"github.com/n3node/core/pkg/hashing"
)

const testMagic = 0x334E334E // "N3N3"

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello peer")
	if err := EncodeFrame(&buf, testMagic, "ping", payload); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	f, err := DecodeFrame(&buf, ValidateOptions{ExpectedMagic: testMagic})
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Command.String() != "ping" {
		t.Fatalf("command = %q, want ping", f.Command.String())
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("payload mismatch: %q", f.Payload)
	}
}

func TestDecodeFrameRejectsWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, 0xDEADBEEF, "ping", []byte("x")); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	metrics := NewMetrics()
	_, err := DecodeFrame(&buf, ValidateOptions{ExpectedMagic: testMagic, Metrics: metrics})
	if err == nil {
		t.Fatalf("expected wrong-magic rejection")
	}
	fe, ok := err.(*FrameError)
	if !ok || fe.Reason != RejectInvalidMagic {
		t.Fatalf("expected InvalidMagic, got %v", err)
	}
	if metrics.Count(RejectInvalidMagic) != 1 {
		t.Fatalf("expected metric to increment, got %d", metrics.Count(RejectInvalidMagic))
	}
}

func TestDecodeFrameRejectsUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, testMagic, "bogus", []byte("x")); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	_, err := DecodeFrame(&buf, ValidateOptions{ExpectedMagic: testMagic})
	fe, ok := err.(*FrameError)
	if !ok || fe.Reason != RejectUnknownCommand {
		t.Fatalf("expected UnknownCommand, got %v", err)
	}
}

func TestDecodeFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, 2<<10) // exceeds the version command's 1 KiB cap
	if err := EncodeFrame(&buf, testMagic, "version", oversized); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	_, err := DecodeFrame(&buf, ValidateOptions{ExpectedMagic: testMagic})
	fe, ok := err.(*FrameError)
	if !ok || fe.Reason != RejectPayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}

func TestDecodeFrameRejectsChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, testMagic, "ping", []byte("payload")); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	raw := buf.Bytes()
	raw[20] ^= 0xFF // corrupt the checksum field
	_, err := DecodeFrame(bytes.NewReader(raw), ValidateOptions{ExpectedMagic: testMagic})
	fe, ok := err.(*FrameError)
	if !ok || fe.Reason != RejectChecksumMismatch {
		t.Fatalf("expected ChecksumMismatch, got %v", err)
	}
}

func TestVersionPayloadRoundTrip(t *testing.T) {
	v := VersionPayload{
		Protocol: 0, Services: 1, Timestamp: 123456, Port: 10333,
		Nonce: 99, UserAgent: "/n3node:0.1/", StartHeight: 42, Relay: true,
	}
	raw, err := v.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeVersionPayload(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != v {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, v)
	}
}

func TestInventoryPayloadRoundTrip(t *testing.T) {
	p := InventoryPayload{Type: InvBlock}
	for i := 0; i < 3; i++ {
		var h hashing.Hash256
		h[0] = byte(i)
		p.Hashes = append(p.Hashes, h)
	}
	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeInventoryPayload(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Hashes) != 3 || got.Type != InvBlock {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}
