package vm

import (
	"errors"
	"math/big"
)

func integerFromInt(n int) StackItem { return NewInteger(big.NewInt(int64(n))) }

// convertItem implements CONVERT's fixed type-coercion table (§4.1
// Types group, §8.2: "CONVERT from Integer to Boolean yields false only
// for 0").
func convertItem(it StackItem, t ItemType) (StackItem, error) {
	if it.Type() == t {
		return it, nil
	}
	switch t {
	case TypeBoolean:
		return Boolean(it.Boolean()), nil
	case TypeInteger:
		v, ok := it.Integer()
		if !ok {
			return nil, errors.New("vm: cannot convert to Integer")
		}
		if !InRange(v) {
			return nil, errors.New("vm: converted integer out of range")
		}
		return NewInteger(v), nil
	case TypeByteString:
		b, ok := it.Bytes()
		if !ok {
			return nil, errors.New("vm: cannot convert to ByteString")
		}
		return ByteString(b), nil
	case TypeBuffer:
		b, ok := it.Bytes()
		if !ok {
			return nil, errors.New("vm: cannot convert to Buffer")
		}
		return Buffer(append([]byte(nil), b...)), nil
	case TypeArray:
		switch v := it.(type) {
		case *Struct:
			return &Array{Items: append([]StackItem(nil), v.Items...)}, nil
		}
		return nil, errors.New("vm: cannot convert to Array")
	case TypeStruct:
		switch v := it.(type) {
		case *Array:
			return &Struct{Items: append([]StackItem(nil), v.Items...)}, nil
		}
		return nil, errors.New("vm: cannot convert to Struct")
	default:
		return nil, errors.New("vm: unsupported CONVERT target type")
	}
}
