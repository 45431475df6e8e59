package p2p

import (
	"bytes"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/wire"
)

// VersionPayload is the `version` command's payload (§6.2).
type VersionPayload struct {
	Protocol    uint32
	Services    uint64
	Timestamp   uint64
	Port        uint16
	Nonce       uint32
	UserAgent   string
	StartHeight uint32
	Relay       bool
}

func (v VersionPayload) Encode() ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU32(v.Protocol)
		w.WriteU64(v.Services)
		w.WriteU64(v.Timestamp)
		w.WriteU16(v.Port)
		w.WriteU32(v.Nonce)
		w.WriteVarString(v.UserAgent)
		w.WriteU32(v.StartHeight)
		w.WriteBool(v.Relay)
	})
}

func DecodeVersionPayload(b []byte) (VersionPayload, error) {
	r := wire.NewBinReader(bytes.NewReader(b))
	v := VersionPayload{
		Protocol:  r.ReadU32(),
		Services:  r.ReadU64(),
		Timestamp: r.ReadU64(),
		Port:      r.ReadU16(),
		Nonce:     r.ReadU32(),
	}
	v.UserAgent = r.ReadVarString(256)
	v.StartHeight = r.ReadU32()
	v.Relay = r.ReadBool()
	return v, nil
}

// PingPayload is shared by `ping` and `pong` (§6.2).
type PingPayload struct {
	LastBlockIndex uint32
	Timestamp      uint32
	Nonce          uint32
}

func (p PingPayload) Encode() ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU32(p.LastBlockIndex)
		w.WriteU32(p.Timestamp)
		w.WriteU32(p.Nonce)
	})
}

func DecodePingPayload(b []byte) (PingPayload, error) {
	r := wire.NewBinReader(bytes.NewReader(b))
	return PingPayload{LastBlockIndex: r.ReadU32(), Timestamp: r.ReadU32(), Nonce: r.ReadU32()}, nil
}

// InventoryType identifies what an InventoryPayload's hashes refer to.
type InventoryType uint8

const (
	InvTx         InventoryType = 0x2B
	InvBlock      InventoryType = 0x2C
	InvConsensus  InventoryType = 0x2D
	InvExtensible InventoryType = 0x2E
)

// InventoryPayload backs getblocks/inv/getdata/notfound (§6.2).
type InventoryPayload struct {
	Type   InventoryType
	Hashes []hashing.Hash256
}

func (p InventoryPayload) Encode() ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU8(uint8(p.Type))
		w.WriteVarint(uint64(len(p.Hashes)))
		for _, h := range p.Hashes {
			w.WriteBytes(h.Bytes())
		}
	})
}

func DecodeInventoryPayload(b []byte) (InventoryPayload, error) {
	r := wire.NewBinReader(bytes.NewReader(b))
	p := InventoryPayload{Type: InventoryType(r.ReadU8())}
	count := r.ReadVarint(65536)
	p.Hashes = make([]hashing.Hash256, count)
	for i := range p.Hashes {
		h, err := hashing.BytesToHash256(r.ReadBytes(hashing.Hash256Size))
		if err != nil {
			return InventoryPayload{}, err
		}
		p.Hashes[i] = h
	}
	return p, nil
}

// GetHeadersPayload requests headers starting after IndexStart, up to
// Count (0 means "as many as the peer will give").
type GetHeadersPayload struct {
	IndexStart uint32
	Count      int16
}

func (p GetHeadersPayload) Encode() ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU32(p.IndexStart)
		w.WriteU16(uint16(p.Count))
	})
}

func DecodeGetHeadersPayload(b []byte) (GetHeadersPayload, error) {
	r := wire.NewBinReader(bytes.NewReader(b))
	return GetHeadersPayload{IndexStart: r.ReadU32(), Count: int16(r.ReadU16())}, nil
}
