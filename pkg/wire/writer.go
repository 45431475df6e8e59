package wire

import (
	"bytes"
	"encoding/binary"
	"io"
)

// BinWriter mirrors BinReader for the write path, latching the first error.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriter wraps w.
func NewBinWriter(w io.Writer) *BinWriter { return &BinWriter{w: w} }

func (w *BinWriter) write(buf []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(buf)
}

func (w *BinWriter) WriteByte(b byte) error { w.write([]byte{b}); return w.Err }
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.write([]byte{1})
	} else {
		w.write([]byte{0})
	}
}

func (w *BinWriter) WriteU8(v uint8)   { w.write([]byte{v}) }
func (w *BinWriter) WriteU16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.write(b[:]) }
func (w *BinWriter) WriteU32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.write(b[:]) }
func (w *BinWriter) WriteU64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.write(b[:]) }
func (w *BinWriter) WriteI64(v int64)  { w.WriteU64(uint64(v)) }

func (w *BinWriter) WriteBytes(b []byte) { w.write(b) }

func (w *BinWriter) WriteVarint(v uint64) {
	if w.Err != nil {
		return
	}
	w.Err = WriteVarint(w.w, v)
}

func (w *BinWriter) WriteVarBytes(b []byte) {
	if w.Err != nil {
		return
	}
	w.Err = WriteVarBytes(w.w, b)
}

func (w *BinWriter) WriteVarString(s string) { w.WriteVarBytes([]byte(s)) }

// ToBytes serializes fn's writes and returns the resulting buffer, or an
// error if any write failed.
func ToBytes(fn func(w *BinWriter)) ([]byte, error) {
	var buf bytes.Buffer
	bw := NewBinWriter(&buf)
	fn(bw)
	if bw.Err != nil {
		return nil, bw.Err
	}
	return buf.Bytes(), nil
}
