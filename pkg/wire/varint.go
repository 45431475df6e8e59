// Package wire implements the node's length-prefixed, little-endian binary
// codec (§6.1/§6.2) and the canonical JSON helpers used for contract
// manifests (§6.4).
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// Varint thresholds, per §6.1.
const (
	varintFD = 0xFD
	varintFE = 0xFE
	varintFF = 0xFF
)

// ErrVarintTooLarge is returned when a varint decodes to a value the caller
// has bounded below the format's own 64-bit ceiling.
var ErrVarintTooLarge = errors.New("wire: varint exceeds caller bound")

// WriteVarint writes v in the node's one/three/five/nine-byte variable
// length integer encoding.
func WriteVarint(w io.Writer, v uint64) error {
	switch {
	case v < varintFD:
		_, err := w.Write([]byte{byte(v)})
		return err
	case v <= 0xFFFF:
		buf := make([]byte, 3)
		buf[0] = varintFD
		binary.LittleEndian.PutUint16(buf[1:], uint16(v))
		_, err := w.Write(buf)
		return err
	case v <= 0xFFFFFFFF:
		buf := make([]byte, 5)
		buf[0] = varintFE
		binary.LittleEndian.PutUint32(buf[1:], uint32(v))
		_, err := w.Write(buf)
		return err
	default:
		buf := make([]byte, 9)
		buf[0] = varintFF
		binary.LittleEndian.PutUint64(buf[1:], v)
		_, err := w.Write(buf)
		return err
	}
}

// ReadVarint reads a varint, rejecting values above max (pass
// math.MaxUint64 for "no bound").
func ReadVarint(r io.Reader, max uint64) (uint64, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	var v uint64
	switch b[0] {
	case varintFD:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v = uint64(binary.LittleEndian.Uint16(buf[:]))
	case varintFE:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v = uint64(binary.LittleEndian.Uint32(buf[:]))
	case varintFF:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v = binary.LittleEndian.Uint64(buf[:])
	default:
		v = uint64(b[0])
	}
	if v > max {
		return 0, ErrVarintTooLarge
	}
	return v, nil
}

// WriteVarBytes writes a varint length prefix followed by b.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a varint-prefixed byte string no longer than max.
func ReadVarBytes(r io.Reader, max uint64) ([]byte, error) {
	n, err := ReadVarint(r, max)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteVarString is WriteVarBytes over a UTF-8 string.
func WriteVarString(w io.Writer, s string) error { return WriteVarBytes(w, []byte(s)) }

// ReadVarString is ReadVarBytes over a UTF-8 string.
func ReadVarString(r io.Reader, max uint64) (string, error) {
	b, err := ReadVarBytes(r, max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
