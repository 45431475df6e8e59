package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3node/core/pkg/store"
)

// Role identifies one of the indexed role lists RoleManagement tracks.
type Role byte

const (
	RoleStateValidator Role = 4
	RoleOracle         Role = 8
	RoleNeoFSAlphabet  Role = 16
	RoleCommittee      Role = 32
)

const roleListPrefix byte = 0x20

// RoleManagement is native contract -8: assigns role lists indexed by the
// block height at which they took effect, so historical queries can
// reconstruct "who held this role at height H".
type RoleManagement struct{ BaseContract }

func NewRoleManagement() *RoleManagement { return &RoleManagement{NewBaseContract(-8, "RoleManagement")} }

func (r *RoleManagement) Methods() map[string]Method {
	return map[string]Method{
		"designateAsRole": {Name: "designateAsRole", Required: FlagStates, Handler: r.designateAsRole},
		"getDesignatedByRole": {Name: "getDesignatedByRole", Required: FlagReadStates, Handler: r.getDesignatedByRole},
	}
}

// roleKey encodes height big-endian so byte-lexicographic key ordering
// (what DataCache.Find sorts by) matches numeric height ordering —
// little-endian, used everywhere else in this module for wire values,
// would scramble that order for a multi-byte sort key.
func roleKey(id int32, role Role, height uint32) []byte {
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], height)
	return key(id, append([]byte{roleListPrefix, byte(role)}, h[:]...)...)
}

func (r *RoleManagement) designateAsRole(ctx *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: designateAsRole requires (role, pubkeys, height)")
	}
	role, ok := args[0].(Role)
	if !ok {
		return nil, errors.New("native: role must be a Role value")
	}
	pubs, ok := args[1].([][]byte)
	if !ok {
		return nil, errors.New("native: pubkeys must be a list of public keys")
	}
	height, _ := args[2].(uint32)
	var flat []byte
	for _, p := range pubs {
		if len(p) != 33 {
			return nil, errors.New("native: each public key must be 33 bytes")
		}
		flat = append(flat, p...)
	}
	ctx.Cache.Put(roleKey(r.ID(), role, height), flat)
	return true, nil
}

// getDesignatedByRole returns the role list in effect at the greatest
// designation height <= the requested height.
func (r *RoleManagement) getDesignatedByRole(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: getDesignatedByRole requires (role, height)")
	}
	role, ok := args[0].(Role)
	if !ok {
		return nil, errors.New("native: role must be a Role value")
	}
	height, _ := args[1].(uint32)

	prefix := key(r.ID(), roleListPrefix, byte(role))
	pairs := ctx.Cache.Find(prefix, store.SeekBackward) // highest height first
	for _, p := range pairs {
		if len(p.Key) < len(prefix)+4 {
			continue
		}
		h := binary.BigEndian.Uint32(p.Key[len(prefix):])
		if h <= height {
			return splitPubkeys(p.Value), nil
		}
	}
	return [][]byte{}, nil
}
