package native

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

const (
	minimumDeploymentFee = 10_0000_0000 // 10 GAS, Fixed8-scaled

	cmIDCounterKey byte = 0x00
	cmByHashPrefix byte = 0x01
)

// ContractState is the persisted record for a deployed contract, resolved
// by script_hash (§4.4 ContractManagement).
type ContractState struct {
	ID         int32
	ScriptHash hashing.Hash160
	NEF        []byte
	Manifest   []byte
	UpdateCtr  uint32
}

// ContractManagement is native contract -1: deploy/update/destroy,
// contract_id counter, script_hash -> ContractState resolution.
//
// Grounded on the teacher's ContractManager (core/contract_management.go):
// a mutex-free manager here because all mutation happens through the
// DataCache, which already serializes writers per §4.2.2 — the teacher's
// own sync.RWMutex guards an in-memory registry this design doesn't need.
type ContractManagement struct{ BaseContract }

func NewContractManagement() *ContractManagement {
	return &ContractManagement{NewBaseContract(-1, "ContractManagement")}
}

func (c *ContractManagement) Methods() map[string]Method {
	return map[string]Method{
		"deploy":          {Name: "deploy", Required: FlagStates, Handler: c.deploy},
		"update":          {Name: "update", Required: FlagStates, Handler: c.update},
		"destroy":         {Name: "destroy", Required: FlagStates, Handler: c.destroy},
		"getContract":     {Name: "getContract", Required: FlagReadStates, Handler: c.getContract},
		"getMinimumFee":   {Name: "getMinimumFee", Required: FlagReadStates, Handler: c.getMinimumFee},
}
}

func (c *ContractManagement) nextID(ctx *Context) int32 {
	raw, err := ctx.Cache.Get(key(c.ID(), cmIDCounterKey))
	var next int32 = 1
	if err == nil && len(raw) == 4 {
		next = int32(binary.LittleEndian.Uint32(raw)) + 1
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(next))
	ctx.Cache.Put(key(c.ID(), cmIDCounterKey), buf[:])
	return next
}

func byHashKey(id int32, h hashing.Hash160) []byte {
	return key(id, append([]byte{cmByHashPrefix}, h.Bytes()...)...)
}

func (c *ContractManagement) deploy(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: deploy requires (nef, manifest)")
	}
	nef, _ := args[0].([]byte)
	manifest, _ := args[1].([]byte)
	if len(nef) == 0 {
		return nil, errors.New("native: empty NEF")
	}
	if len(manifest) > 64*1024 {
		return nil, errors.New("native: manifest exceeds 64 KiB")
	}
	h := hashing.Hash160Of(nef)
	if _, err := ctx.Cache.Get(byHashKey(c.ID(), h)); err == nil {
		return nil, errors.New("native: contract already deployed")
	}
	id := c.nextID(ctx)
	st := ContractState{ID: id, ScriptHash: h, NEF: nef, Manifest: manifest}
	ctx.Cache.Put(byHashKey(c.ID(), h), encodeContractState(st))
	return st, nil
}

func (c *ContractManagement) update(ctx *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: update requires (scriptHash, nef, manifest)")
	}
	h, _ := args[0].(hashing.Hash160)
	raw, err := ctx.Cache.Get(byHashKey(c.ID(), h))
	if err != nil {
		return nil, fmt.Errorf("native: contract not found: %w", err)
	}
	st := decodeContractState(raw)
	if nef, ok := args[1].([]byte); ok && len(nef) > 0 {
		st.NEF = nef
		st.ScriptHash = hashing.Hash160Of(nef)
	}
	if manifest, ok := args[2].([]byte); ok && len(manifest) > 0 {
		if len(manifest) > 64*1024 {
			return nil, errors.New("native: manifest exceeds 64 KiB")
		}
		st.Manifest = manifest
	}
	st.UpdateCtr++
	ctx.Cache.Put(byHashKey(c.ID(), h), encodeContractState(st))
	return st, nil
}

func (c *ContractManagement) destroy(ctx *Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("native: destroy requires (scriptHash)")
	}
	h, _ := args[0].(hashing.Hash160)
	if _, err := ctx.Cache.Get(byHashKey(c.ID(), h)); err != nil {
		return nil, fmt.Errorf("native: contract not found: %w", err)
	}
	ctx.Cache.Delete(byHashKey(c.ID(), h))
	return nil, nil
}

func (c *ContractManagement) getContract(ctx *Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("native: getContract requires (scriptHash)")
	}
	h, _ := args[0].(hashing.Hash160)
	raw, err := ctx.Cache.Get(byHashKey(c.ID(), h))
	if err != nil {
		return nil, store.ErrKeyNotFound
	}
	return decodeContractState(raw), nil
}

func (c *ContractManagement) getMinimumFee(_ *Context, _ []any) (any, error) {
	return int64(minimumDeploymentFee), nil
}

func encodeContractState(st ContractState) []byte {
	out := make([]byte, 0, 12+len(st.NEF)+len(st.Manifest))
	var idb [4]byte
	binary.LittleEndian.PutUint32(idb[:], uint32(st.ID))
	out = append(out, idb[:]...)
	var ub [4]byte
	binary.LittleEndian.PutUint32(ub[:], st.UpdateCtr)
	out = append(out, ub[:]...)
	var nefLen [4]byte
	binary.LittleEndian.PutUint32(nefLen[:], uint32(len(st.NEF)))
	out = append(out, nefLen[:]...)
	out = append(out, st.NEF...)
	out = append(out, st.Manifest...)
	return out
}

func decodeContractState(raw []byte) ContractState {
	if len(raw) < 12 {
		return ContractState{}
	}
	id := int32(binary.LittleEndian.Uint32(raw[0:4]))
	upd := binary.LittleEndian.Uint32(raw[4:8])
	nefLen := binary.LittleEndian.Uint32(raw[8:12])
	rest := raw[12:]
	nef := rest[:nefLen]
	manifest := rest[nefLen:]
	return ContractState{ID: id, ScriptHash: hashing.Hash160Of(nef), NEF: nef, Manifest: manifest, UpdateCtr: upd}
}
