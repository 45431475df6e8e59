// Package native implements the in-process native contracts exposed to the
// VM through the syscall mechanism (§4.4).
package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

// CallFlags mirrors the bitmask a caller presents when invoking a native
// method; a method FAULTs if the caller's mask lacks a required bit.
type CallFlags uint8

const (
	FlagNone         CallFlags = 0
	FlagReadStates   CallFlags = 1 << 0
	FlagWriteStates  CallFlags = 1 << 1
	FlagAllowCall    CallFlags = 1 << 2
	FlagAllowNotify  CallFlags = 1 << 3
	FlagStates                 = FlagReadStates | FlagWriteStates
	FlagReadOnly               = FlagReadStates | FlagAllowCall | FlagAllowNotify
	FlagAll                    = FlagReadStates | FlagWriteStates | FlagAllowCall | FlagAllowNotify
)

// Has reports whether the caller's mask satisfies every bit in required.
func (c CallFlags) Has(required CallFlags) bool { return c&required == required }

// ErrMissingCallFlags is returned when a caller's mask lacks a method's
// required flags.
var ErrMissingCallFlags = errors.New("native: missing required call flags")

// ErrUnknownMethod is returned for a method name not present in a
// contract's method table.
var ErrUnknownMethod = errors.New("native: unknown method")

// Context carries everything a native method handler needs: the writable
// state cache it operates against and the caller's declared call flags.
// It is deliberately narrow — natives never see the full VM engine, only
// the state surface and flags the spec grants them.
type Context struct {
	Cache *store.DataCache
	Flags CallFlags
}

// Method is one entry of a native contract's method table.
type Method struct {
	Name     string
	Required CallFlags
	Handler  func(ctx *Context, args []any) (any, error)
}

// Contract is the common shape of every native contract: a fixed negative
// ID, a deterministic script hash, and a method table. OnPersist/PostPersist
// are optional hooks the ledger calls directly, as Go methods, during block
// persistence.
type Contract interface {
	ID() int32
	Name() string
	ScriptHash() hashing.Hash160
	Methods() map[string]Method
	OnPersist(ctx *Context) error
	PostPersist(ctx *Context) error
}

// BaseContract supplies the no-op OnPersist/PostPersist and ScriptHash
// derivation shared by most natives; contracts embed it and override what
// they need, following the teacher's small-mixin-struct style
// (core/contract_management.go's ContractManager wraps a ledger + registry
// the same way).
type BaseContract struct {
	id   int32
	name string
}

func NewBaseContract(id int32, name string) BaseContract {
	return BaseContract{id: id, name: name}
}

func (b BaseContract) ID() int32    { return b.id }
func (b BaseContract) Name() string { return b.name }

// ScriptHash derives a stable 20-byte identifier from the contract's name,
// matching the reserved-ID convention of §6.3 (native contracts have fixed
// script hashes independent of any deployed bytecode).
func (b BaseContract) ScriptHash() hashing.Hash160 {
	return hashing.Hash160Of([]byte("native:" + b.name))
}

func (b BaseContract) OnPersist(_ *Context) error   { return nil }
func (b BaseContract) PostPersist(_ *Context) error { return nil }

// Invoke looks up method by name, checks the caller's flags, and runs it.
func Invoke(c Contract, ctx *Context, method string, args []any) (any, error) {
	m, ok := c.Methods()[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, c.Name(), method)
	}
	if !ctx.Flags.Has(m.Required) {
		return nil, fmt.Errorf("%w: %s.%s requires %0b, caller has %0b", ErrMissingCallFlags, c.Name(), method, m.Required, ctx.Flags)
	}
	return m.Handler(ctx, args)
}

// key builds a contract-scoped store key: contract_id(i32 LE) || sub_key,
// exactly the layout of §6.3.
func key(id int32, sub ...byte) []byte {
	out := make([]byte, 4, 4+len(sub))
	out[0] = byte(id)
	out[1] = byte(id >> 8)
	out[2] = byte(id >> 16)
	out[3] = byte(id >> 24)
	return append(out, sub...)
}

// Registry holds the fixed set of native contracts keyed by ID and by name,
// the way the teacher's ContractRegistry indexes deployed contracts by
// address (core/contract_management.go).
type Registry struct {
	mu     sync.RWMutex
	byID   map[int32]Contract
	byName map[string]Contract
}

func NewRegistry() *Registry {
	return &Registry{byID: map[int32]Contract{}, byName: map[string]Contract{}}
}

func (r *Registry) Register(c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID()] = c
	r.byName[c.Name()] = c
}

func (r *Registry) ByID(id int32) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) ByName(name string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// ByHash looks up a native contract by its derived script hash, the form
// a System.Contract.Call-style syscall bridge dispatches on.
func (r *Registry) ByHash(h hashing.Hash160) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		if c.ScriptHash() == h {
			return c, true
		}
	}
	return nil, false
}

// All returns every registered contract in a stable ID order (lowest, i.e.
// most negative, first) so OnPersist/PostPersist run deterministically.
func (r *Registry) All() []Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Contract, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID() < out[j-1].ID(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// NewStandardRegistry builds the fixed 10-member registry of §4.4.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewContractManagement())
	r.Register(NewStdLib())
	r.Register(NewCryptoLib())
	r.Register(NewLedgerContract(nil))
	r.Register(NewNeoToken())
	r.Register(NewGasToken())
	r.Register(NewPolicyContract())
	r.Register(NewRoleManagement())
	r.Register(NewOracleContract())
	r.Register(NewNotary())
	return r
}
