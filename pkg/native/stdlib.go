package native

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"github.com/n3node/core/pkg/wire"
)

// StdLib is native contract -2: pure utility functions with no persisted
// state. Grounded on §4.4's StdLib row; base58 wiring promotes
// github.com/mr-tron/base58 (an indirect teacher dependency pulled in via
// libp2p) to a direct one, per SPEC_FULL.md §4.7.
type StdLib struct{ BaseContract }

func NewStdLib() *StdLib { return &StdLib{NewBaseContract(-2, "StdLib")} }

func (s *StdLib) Methods() map[string]Method {
	return map[string]Method{
		"base58Encode":      {Name: "base58Encode", Required: FlagNone, Handler: s.base58Encode},
		"base58Decode":      {Name: "base58Decode", Required: FlagNone, Handler: s.base58Decode},
		"base58CheckEncode": {Name: "base58CheckEncode", Required: FlagNone, Handler: s.base58CheckEncode},
		"base58CheckDecode": {Name: "base58CheckDecode", Required: FlagNone, Handler: s.base58CheckDecode},
		"base64Encode":      {Name: "base64Encode", Required: FlagNone, Handler: s.base64Encode},
		"base64Decode":      {Name: "base64Decode", Required: FlagNone, Handler: s.base64Decode},
		"base64UrlEncode":   {Name: "base64UrlEncode", Required: FlagNone, Handler: s.base64UrlEncode},
		"base64UrlDecode":   {Name: "base64UrlDecode", Required: FlagNone, Handler: s.base64UrlDecode},
		"itoa":              {Name: "itoa", Required: FlagNone, Handler: s.itoa},
		"atoi":              {Name: "atoi", Required: FlagNone, Handler: s.atoi},
		"serialize":         {Name: "serialize", Required: FlagNone, Handler: s.serialize},
		"deserialize":       {Name: "deserialize", Required: FlagNone, Handler: s.deserialize},
		"jsonSerialize":     {Name: "jsonSerialize", Required: FlagNone, Handler: s.jsonSerialize},
		"jsonDeserialize":   {Name: "jsonDeserialize", Required: FlagNone, Handler: s.jsonDeserialize},
		"memoryCompare":     {Name: "memoryCompare", Required: FlagNone, Handler: s.memoryCompare},
		"memoryCopy":        {Name: "memoryCopy", Required: FlagNone, Handler: s.memoryCopy},
		"memorySearch":      {Name: "memorySearch", Required: FlagNone, Handler: s.memorySearch},
		"stringLen":         {Name: "stringLen", Required: FlagNone, Handler: s.stringLen},
	}
}

func argBytes(args []any, i int) ([]byte, error) {
	if i >= len(args) {
		return nil, errors.New("native: missing argument")
	}
	b, ok := args[i].([]byte)
	if !ok {
		return nil, errors.New("native: argument is not bytes")
	}
	return b, nil
}

func (s *StdLib) base58Encode(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return base58.Encode(b), nil
}

func (s *StdLib) base58Decode(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	return base58.Decode(str)
}

func (s *StdLib) base58CheckEncode(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	sum := doubleSHA256(b)
	return base58.Encode(append(append([]byte(nil), b...), sum[:4]...)), nil
}

func (s *StdLib) base58CheckDecode(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	full, err := base58.Decode(str)
	if err != nil {
		return nil, err
	}
	if len(full) < 4 {
		return nil, errors.New("native: base58check payload too short")
	}
	payload, checksum := full[:len(full)-4], full[len(full)-4:]
	sum := doubleSHA256(payload)
	if !bytes.Equal(sum[:4], checksum) {
		return nil, errors.New("native: base58check checksum mismatch")
	}
	return payload, nil
}

func (s *StdLib) base64Encode(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (s *StdLib) base64Decode(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	return base64.StdEncoding.DecodeString(str)
}

func (s *StdLib) base64UrlEncode(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *StdLib) base64UrlDecode(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	return base64.URLEncoding.DecodeString(str)
}

func (s *StdLib) itoa(_ *Context, args []any) (any, error) {
	n, ok := args[0].(int64)
	if !ok {
		return nil, errors.New("native: argument is not an integer")
	}
	base := 10
	if len(args) > 1 {
		if b, ok := args[1].(int64); ok {
			base = int(b)
		}
	}
	return strconv.FormatInt(n, base), nil
}

func (s *StdLib) atoi(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	base := 10
	if len(args) > 1 {
		if b, ok := args[1].(int64); ok {
			base = int(b)
		}
	}
	return strconv.ParseInt(str, base, 64)
}

// serialize/deserialize round-trip a flat byte slice through the binary
// codec (no nested stack-item graph — compound items are a VM concept, not
// a StdLib one here).
func (s *StdLib) serialize(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return wire.ToBytes(func(w *wire.BinWriter) { w.WriteVarBytes(b) })
}

func (s *StdLib) deserialize(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	r := wire.NewBinReader(bytes.NewReader(b))
	return r.ReadVarBytes(wire.MaxManifestSize), nil
}

func (s *StdLib) jsonSerialize(_ *Context, args []any) (any, error) {
	return wire.CanonicalJSON(args[0])
}

func (s *StdLib) jsonDeserialize(_ *Context, args []any) (any, error) {
	return nil, errors.New("native: jsonDeserialize requires a typed target, not supported generically")
}

func (s *StdLib) memoryCompare(_ *Context, args []any) (any, error) {
	a, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := argBytes(args, 1)
	if err != nil {
		return nil, err
	}
	return int64(bytes.Compare(a, b)), nil
}

func (s *StdLib) memoryCopy(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *StdLib) memorySearch(_ *Context, args []any) (any, error) {
	mem, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	needle, err := argBytes(args, 1)
	if err != nil {
		return nil, err
	}
	return int64(bytes.Index(mem, needle)), nil
}

func (s *StdLib) stringLen(_ *Context, args []any) (any, error) {
	str, ok := args[0].(string)
	if !ok {
		return nil, errors.New("native: argument is not a string")
	}
	return int64(utf8.RuneCountInString(str)), nil
}
