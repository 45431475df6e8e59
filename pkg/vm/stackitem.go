package vm

import (
	"bytes"
	"errors"
	"math/big"
)

// ItemType tags a StackItem's variant (§3.2).
type ItemType byte

const (
	TypeAny ItemType = iota
	TypeBoolean
	TypeInteger
	TypeByteString
	TypeBuffer
	TypeArray
	TypeStruct
	TypeMap
	TypeInteropInterface
	TypePointer
	TypeNull
)

// ErrMaxStackSize is raised when a push would exceed the engine's
// reference-counted item budget (§4.1.4).
var ErrMaxStackSize = errors.New("vm: exceeds max stack size")

// StackItem is the tagged union of VM values (§3.2). No variant carries
// a reference counter of its own; the engine's RefCounter is updated by
// the evaluation stacks and by the compound opcodes.
type StackItem interface {
	Type() ItemType
	Boolean() bool
	Integer() (*big.Int, bool)
	Bytes() ([]byte, bool)
	Equals(other StackItem) bool
}

// Null is the VM's null sentinel.
type Null struct{}

func (Null) Type() ItemType             { return TypeNull }
func (Null) Boolean() bool              { return false }
func (Null) Integer() (*big.Int, bool)  { return nil, false }
func (Null) Bytes() ([]byte, bool)      { return nil, false }
func (n Null) Equals(o StackItem) bool  { _, ok := o.(Null); return ok }

// Boolean wraps a bool.
type Boolean bool

func (b Boolean) Type() ItemType            { return TypeBoolean }
func (b Boolean) Boolean() bool             { return bool(b) }
func (b Boolean) Integer() (*big.Int, bool) {
	if b {
		return big.NewInt(1), true
	}
	return big.NewInt(0), true
}
func (b Boolean) Bytes() ([]byte, bool) { return nil, false }
func (b Boolean) Equals(o StackItem) bool {
	ob, ok := o.(Boolean)
	return ok && b == ob
}

// maxIntBits bounds Integer arithmetic at 256 bits (§3.2).
const maxIntBits = 256

var intMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), maxIntBits-1), big.NewInt(1))
var intMin = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), maxIntBits-1))

// Integer wraps an arbitrary-precision signed integer bounded to 256
// bits for arithmetic (§3.2); out-of-range results are a FAULT at the
// call site, not representable by this type.
type Integer struct{ v *big.Int }

// NewInteger builds an Integer from v without checking the 256-bit
// range — callers performing arithmetic check InRange first and fault
// instead of constructing an out-of-range Integer.
func NewInteger(v *big.Int) Integer { return Integer{v: new(big.Int).Set(v)} }

// InRange reports whether v fits the engine's 256-bit signed bound.
func InRange(v *big.Int) bool { return v.Cmp(intMin) >= 0 && v.Cmp(intMax) <= 0 }

func (i Integer) Type() ItemType { return TypeInteger }
func (i Integer) Boolean() bool  { return i.v.Sign() != 0 }
func (i Integer) Integer() (*big.Int, bool) { return new(big.Int).Set(i.v), true }
func (i Integer) Bytes() ([]byte, bool)     { return nil, false }
func (i Integer) Equals(o StackItem) bool {
	oi, ok := o.(Integer)
	return ok && i.v.Cmp(oi.v) == 0
}
func (i Integer) Big() *big.Int { return i.v }

// ByteString is an immutable byte sequence.
type ByteString []byte

func (b ByteString) Type() ItemType { return TypeByteString }
func (b ByteString) Boolean() bool {
	for _, x := range b {
		if x != 0 {
			return true
		}
	}
	return false
}
func (b ByteString) Integer() (*big.Int, bool) {
	if len(b) > 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(reverseBytes(b)), true // little-endian wire convention
}
func (b ByteString) Bytes() ([]byte, bool) { return append([]byte(nil), b...), true }
func (b ByteString) Equals(o StackItem) bool {
	switch ov := o.(type) {
	case ByteString:
		return bytes.Equal(b, ov)
	case Buffer:
		return bytes.Equal(b, ov)
	}
	return false
}

// Buffer is a mutable byte sequence.
type Buffer []byte

func (b Buffer) Type() ItemType { return TypeBuffer }
func (b Buffer) Boolean() bool  { return ByteString(b).Boolean() }
func (b Buffer) Integer() (*big.Int, bool) { return ByteString(b).Integer() }
func (b Buffer) Bytes() ([]byte, bool)     { return append([]byte(nil), b...), true }
func (b Buffer) Equals(o StackItem) bool {
	switch ov := o.(type) {
	case Buffer:
		return bytes.Equal(b, ov)
	case ByteString:
		return bytes.Equal(b, ov)
	}
	return false
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// Compound is the shared behavior of Array/Struct/Map. Compound items
// are not registered with the RefCounter on creation: the counter moves
// with evaluation-stack pushes and pops and with APPEND, REMOVE,
// CLEARITEMS and POPITEM; SETITEM and slot stores add nothing for the
// item they store.
type Compound interface {
	StackItem
	count() int
}

// Array is an ordered, reference-identity-equal sequence.
type Array struct {
	Items []StackItem
	id    int
}

func (a *Array) Type() ItemType { return TypeArray }
func (a *Array) Boolean() bool  { return true }
func (a *Array) Integer() (*big.Int, bool) { return nil, false }
func (a *Array) Bytes() ([]byte, bool)     { return nil, false }
func (a *Array) Equals(o StackItem) bool   { oa, ok := o.(*Array); return ok && oa == a }
func (a *Array) count() int                { return len(a.Items) }

// Struct is an Array variant with deep equality. No opcode copies a
// Struct on assignment: APPEND, SETITEM and slot stores share it.
type Struct struct {
	Items []StackItem
	id    int
}

func (s *Struct) Type() ItemType { return TypeStruct }
func (s *Struct) Boolean() bool  { return true }
func (s *Struct) Integer() (*big.Int, bool) { return nil, false }
func (s *Struct) Bytes() ([]byte, bool)     { return nil, false }
func (s *Struct) count() int                { return len(s.Items) }
func (s *Struct) Equals(o StackItem) bool {
	os, ok := o.(*Struct)
	if !ok || len(os.Items) != len(s.Items) {
		return false
	}
	for i := range s.Items {
		if !s.Items[i].Equals(os.Items[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s, recursing into nested Structs. Nothing
// outside Clone itself calls it.
func (s *Struct) Clone() *Struct {
	items := make([]StackItem, len(s.Items))
	for i, it := range s.Items {
		if sub, ok := it.(*Struct); ok {
			items[i] = sub.Clone()
		} else {
			items[i] = it
		}
	}
	return &Struct{Items: items}
}

// MapEntry is one insertion-ordered Map slot.
type MapEntry struct {
	Key   StackItem
	Value StackItem
}

// Map preserves insertion order; keys must be primitive (§3.2).
type Map struct {
	entries []MapEntry
	id      int
}

func NewMap() *Map { return &Map{} }

func (m *Map) Type() ItemType { return TypeMap }
func (m *Map) Boolean() bool  { return true }
func (m *Map) Integer() (*big.Int, bool) { return nil, false }
func (m *Map) Bytes() ([]byte, bool)     { return nil, false }
func (m *Map) Equals(o StackItem) bool   { om, ok := o.(*Map); return ok && om == m }
func (m *Map) count() int                { return len(m.entries) }

func mapKeyable(it StackItem) bool {
	switch it.Type() {
	case TypeArray, TypeStruct, TypeMap:
		return false
	default:
		return true
	}
}

// Get returns the value for key, if present.
func (m *Map) Get(key StackItem) (StackItem, bool) {
	for _, e := range m.entries {
		if e.Key.Equals(key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Set inserts or replaces key's value, preserving insertion order for
// new keys (§3.2).
func (m *Map) Set(key, value StackItem) error {
	if !mapKeyable(key) {
		return errors.New("vm: map key must be a primitive type")
	}
	for i, e := range m.entries {
		if e.Key.Equals(key) {
			m.entries[i].Value = value
			return nil
		}
	}
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
	return nil
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key StackItem) bool {
	for i, e := range m.entries {
		if e.Key.Equals(key) {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Keys/Values return the map's entries in insertion order.
func (m *Map) Keys() []StackItem {
	out := make([]StackItem, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Key
	}
	return out
}
func (m *Map) Values() []StackItem {
	out := make([]StackItem, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Value
	}
	return out
}
func (m *Map) Len() int { return len(m.entries) }

// InteropInterface wraps an opaque host object (§3.2), e.g. an iterator
// handle exposed to script code via a syscall.
type InteropInterface struct{ Value interface{} }

func (InteropInterface) Type() ItemType { return TypeInteropInterface }
func (InteropInterface) Boolean() bool  { return true }
func (InteropInterface) Integer() (*big.Int, bool) { return nil, false }
func (InteropInterface) Bytes() ([]byte, bool)     { return nil, false }
func (i InteropInterface) Equals(o StackItem) bool {
	oi, ok := o.(InteropInterface)
	return ok && oi.Value == i.Value
}

// Pointer is a script-offset value produced by CALLA-style opcodes.
type Pointer struct {
	Script []byte
	Offset int
}

func (Pointer) Type() ItemType { return TypePointer }
func (Pointer) Boolean() bool  { return true }
func (Pointer) Integer() (*big.Int, bool) { return nil, false }
func (Pointer) Bytes() ([]byte, bool)     { return nil, false }
func (p Pointer) Equals(o StackItem) bool {
	op, ok := o.(Pointer)
	return ok && op.Offset == p.Offset && bytes.Equal(op.Script, p.Script)
}
