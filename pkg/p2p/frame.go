// Package p2p implements the protocol-level message framing and per-peer
// task scheduling of §4.5: frame header validation over any io.Reader/
// io.Writer, and the inventory-fetch task session. The socket transport
// itself is a separate concern (§1 Non-goals) — wired at the gossip layer
// in gossip.go via libp2p pubsub, mirroring the teacher's separation
// between core/network.go's host/pubsub plumbing and this package's
// message-shape validation.
package p2p

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed 24-byte frame header of §6.2.
const HeaderSize = 4 + 12 + 4 + 4

// Command is a 12-byte nul-padded ASCII command name.
type Command [12]byte

func NewCommand(name string) (Command, error) {
	var c Command
	if len(name) > len(c) {
		return c, fmt.Errorf("p2p: command %q exceeds %d bytes", name, len(c))
	}
	copy(c[:], name)
	return c, nil
}

func (c Command) String() string {
	n := 0
	for n < len(c) && c[n] != 0 {
		n++
	}
	return string(c[:n])
}

// Known commands, §6.2.
var knownCommands = map[string]bool{
	"version": true, "verack": true,
	"getaddr": true, "addr": true,
	"ping": true, "pong": true,
	"getheaders": true, "headers": true,
	"getblocks": true, "inv": true, "getdata": true, "notfound": true,
	"block": true, "tx": true, "consensus": true, "extensible": true,
	"mempool":    true,
	"filterload": true, "filteradd": true, "filterclear": true, "merkleblock": true,
	"getblocktxn": true, "blocktxn": true, "getcmpctblock": true, "cmpctblock": true,
	"reject": true, "alert": true,
}

// Per-command payload size caps, §6.2 ("advisory defaults").
var commandCaps = map[string]uint32{
	"version":  1 << 10,
	"addr":     8 << 10,
	"inv":      65 << 10,
	"getdata":  65 << 10,
	"notfound": 65 << 10,
	"block":    1 << 20,
	"tx":       64 << 10,
	"headers":  2 << 20,
}

// GlobalPayloadCap bounds any frame whose command has no specific entry
// in commandCaps.
const GlobalPayloadCap = 4 << 20

// RejectReason classifies a frame validation failure for the Metrics
// counters of §4.5.1.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectInvalidMagic
	RejectUnknownCommand
	RejectPayloadTooLarge
	RejectSizeMismatch
	RejectChecksumMismatch
)

func (r RejectReason) String() string {
	switch r {
	case RejectInvalidMagic:
		return "InvalidMagic"
	case RejectUnknownCommand:
		return "UnknownCommand"
	case RejectPayloadTooLarge:
		return "PayloadTooLarge"
	case RejectSizeMismatch:
		return "SizeMismatch"
	case RejectChecksumMismatch:
		return "ChecksumMismatch"
	default:
		return "None"
	}
}

// FrameError carries the reject reason alongside a message, so callers can
// both log and bump the right metric.
type FrameError struct {
	Reason RejectReason
	Msg    string
}

func (e *FrameError) Error() string { return fmt.Sprintf("p2p: %s: %s", e.Reason, e.Msg) }

func rejectf(reason RejectReason, format string, args ...any) error {
	return &FrameError{Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Frame is a decoded message header plus its payload.
type Frame struct {
	Magic    uint32
	Command  Command
	Payload  []byte
	Checksum uint32
}

// Checksum4 returns the first 4 bytes of SHA-256(payload) as a u32 (LE),
// the checksum algorithm of §6.2.
func Checksum4(payload []byte) uint32 {
	sum := sha256.Sum256(payload)
	return binary.LittleEndian.Uint32(sum[:4])
}

// Metrics counts rejected frames by reason, for observability (§4.5.1).
type Metrics struct {
	counts map[RejectReason]uint64
}

func NewMetrics() *Metrics { return &Metrics{counts: make(map[RejectReason]uint64)} }

func (m *Metrics) record(r RejectReason) {
	if m == nil {
		return
	}
	m.counts[r]++
}

// Count returns how many frames have been rejected for r.
func (m *Metrics) Count(r RejectReason) uint64 {
	if m == nil {
		return 0
	}
	return m.counts[r]
}

// ValidateOptions parameterizes frame validation against an expected
// network magic.
type ValidateOptions struct {
	ExpectedMagic uint32
	Metrics       *Metrics
}

// DecodeFrame reads and validates a single frame from r, per §4.5.1:
// rejects unknown magic, unknown command, oversized payload (global or
// per-command cap), total-size mismatch, and checksum mismatch.
func DecodeFrame(r io.Reader, opts ValidateOptions) (*Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("p2p: reading frame header: %w", err)
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	var cmd Command
	copy(cmd[:], header[4:16])
	payloadSize := binary.LittleEndian.Uint32(header[16:20])
	checksum := binary.LittleEndian.Uint32(header[20:24])

	if magic != opts.ExpectedMagic {
		opts.Metrics.record(RejectInvalidMagic)
		return nil, rejectf(RejectInvalidMagic, "got %#x want %#x", magic, opts.ExpectedMagic)
	}

	name := cmd.String()
	if !knownCommands[name] {
		opts.Metrics.record(RejectUnknownCommand)
		return nil, rejectf(RejectUnknownCommand, "%q", name)
	}

	limit := commandCaps[name]
	if limit == 0 {
		limit = GlobalPayloadCap
	}
	if payloadSize > limit {
		opts.Metrics.record(RejectPayloadTooLarge)
		return nil, rejectf(RejectPayloadTooLarge, "%s payload %d exceeds cap %d", name, payloadSize, limit)
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		opts.Metrics.record(RejectSizeMismatch)
		return nil, rejectf(RejectSizeMismatch, "short read: %v", err)
	}

	if want := Checksum4(payload); want != checksum {
		opts.Metrics.record(RejectChecksumMismatch)
		return nil, rejectf(RejectChecksumMismatch, "got %#x want %#x", checksum, want)
	}

	return &Frame{Magic: magic, Command: cmd, Payload: payload, Checksum: checksum}, nil
}

// EncodeFrame writes a frame to w using the given magic and command,
// computing its checksum from payload.
func EncodeFrame(w io.Writer, magic uint32, command string, payload []byte) error {
	cmd, err := NewCommand(command)
	if err != nil {
		return err
	}
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], magic)
	copy(header[4:16], cmd[:])
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[20:24], Checksum4(payload))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("p2p: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("p2p: writing frame payload: %w", err)
	}
	return nil
}
