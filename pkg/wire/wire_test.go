package wire

import (
	"bytes"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xFC, 0xFD, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000, 1 << 63}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteVarint(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := ReadVarint(&buf, ^uint64(0))
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("roundtrip %d got %d", v, got)
		}
	}
}

func TestVarintBound(t *testing.T) {
	var buf bytes.Buffer
	WriteVarint(&buf, 1000)
	if _, err := ReadVarint(&buf, 10); err != ErrVarintTooLarge {
		t.Fatalf("expected bound error, got %v", err)
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello world")
	if err := WriteVarBytes(&buf, payload); err != nil {
		t.Fatal(err)
	}
	got, err := ReadVarBytes(&buf, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestBinReaderWriterRoundTrip(t *testing.T) {
	data, err := ToBytes(func(w *BinWriter) {
		w.WriteU32(42)
		w.WriteBool(true)
		w.WriteVarString("neo")
		w.WriteI64(-7)
	})
	if err != nil {
		t.Fatal(err)
	}
	r := NewBinReader(bytes.NewReader(data))
	if got := r.ReadU32(); got != 42 {
		t.Fatalf("u32 = %d", got)
	}
	if got := r.ReadBool(); !got {
		t.Fatalf("bool = %v", got)
	}
	if got := r.ReadVarString(100); got != "neo" {
		t.Fatalf("string = %q", got)
	}
	if got := r.ReadI64(); got != -7 {
		t.Fatalf("i64 = %d", got)
	}
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
}

func TestBinReaderErrorLatches(t *testing.T) {
	r := NewBinReader(bytes.NewReader(nil))
	_ = r.ReadU32()
	if r.Err == nil {
		t.Fatalf("expected EOF error")
	}
	// further reads must not panic and must preserve the first error
	_ = r.ReadU64()
	if r.Err == nil {
		t.Fatalf("error should remain set")
	}
}
