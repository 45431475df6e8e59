package wire

import (
	"encoding/binary"
	"io"
)

// BinReader sequences little-endian field reads over an io.Reader, latching
// the first error so callers can chain reads and check err once at the end
// — the node's equivalent of the teacher's "read, then check at the end of
// the function" style seen in core/ledger.go's WAL replay loop.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReader wraps r.
func NewBinReader(r io.Reader) *BinReader { return &BinReader{r: r} }

func (r *BinReader) fill(buf []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, buf)
}

// ReadByte reads a single byte.
func (r *BinReader) ReadByte() byte {
	var b [1]byte
	r.fill(b[:])
	return b[0]
}

// ReadBool reads a byte and reports whether it is non-zero.
func (r *BinReader) ReadBool() bool { return r.ReadByte() != 0 }

// ReadU8/ReadU16/ReadU32/ReadU64 read unsigned little-endian integers.
func (r *BinReader) ReadU8() uint8 { return r.ReadByte() }
func (r *BinReader) ReadU16() uint16 {
	var b [2]byte
	r.fill(b[:])
	return binary.LittleEndian.Uint16(b[:])
}
func (r *BinReader) ReadU32() uint32 {
	var b [4]byte
	r.fill(b[:])
	return binary.LittleEndian.Uint32(b[:])
}
func (r *BinReader) ReadU64() uint64 {
	var b [8]byte
	r.fill(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// ReadI8/ReadI64 read signed little-endian integers.
func (r *BinReader) ReadI8() int8   { return int8(r.ReadByte()) }
func (r *BinReader) ReadI64() int64 { return int64(r.ReadU64()) }

// ReadBytes reads exactly n bytes.
func (r *BinReader) ReadBytes(n int) []byte {
	buf := make([]byte, n)
	r.fill(buf)
	return buf
}

// ReadVarint reads a varint bounded by max, recording any error.
func (r *BinReader) ReadVarint(max uint64) uint64 {
	if r.Err != nil {
		return 0
	}
	v, err := ReadVarint(r.r, max)
	if err != nil {
		r.Err = err
		return 0
	}
	return v
}

// ReadVarBytes reads a varint-prefixed byte string bounded by max.
func (r *BinReader) ReadVarBytes(max uint64) []byte {
	if r.Err != nil {
		return nil
	}
	b, err := ReadVarBytes(r.r, max)
	if err != nil {
		r.Err = err
		return nil
	}
	return b
}

// ReadVarString reads a varint-prefixed UTF-8 string bounded by max.
func (r *BinReader) ReadVarString(max uint64) string {
	return string(r.ReadVarBytes(max))
}
