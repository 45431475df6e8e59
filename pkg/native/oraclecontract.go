package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

const (
	oracleRequestPrefix byte = 0x20
	oracleIDCounterKey  byte = 0x21
	oraclePricePrefix   byte = 0x22
)

// OracleRequest is a pending off-chain data request awaiting a response
// from a node holding the Oracle role.
type OracleRequest struct {
	ID              uint64
	URL             string
	Filter          string
	CallbackContract hashing.Hash160
	CallbackMethod  string
	UserData        []byte
	GasForResponse  int64
}

// OracleContract is native contract -9: the oracle-request registry.
type OracleContract struct{ BaseContract }

func NewOracleContract() *OracleContract { return &OracleContract{NewBaseContract(-9, "OracleContract")} }

func (o *OracleContract) Methods() map[string]Method {
	return map[string]Method{
		"request":       {Name: "request", Required: FlagStates | FlagAllowNotify, Handler: o.request},
		"finish":        {Name: "finish", Required: FlagStates | FlagAllowCall | FlagAllowNotify, Handler: o.finish},
		"getPrice":      {Name: "getPrice", Required: FlagReadStates, Handler: o.getPrice},
		"setPrice":      {Name: "setPrice", Required: FlagStates, Handler: o.setPrice},
		"getRequest":    {Name: "getRequest", Required: FlagReadStates, Handler: o.getRequest},
	}
}

func (o *OracleContract) nextRequestID(ctx *Context) uint64 {
	raw, err := ctx.Cache.Get(key(o.ID(), oracleIDCounterKey))
	var next uint64 = 1
	if err == nil && len(raw) == 8 {
		next = binary.LittleEndian.Uint64(raw) + 1
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], next)
	ctx.Cache.Put(key(o.ID(), oracleIDCounterKey), buf[:])
	return next
}

func requestKey(id int32, reqID uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], reqID)
	return key(id, append([]byte{oracleRequestPrefix}, b[:]...)...)
}

func (o *OracleContract) request(ctx *Context, args []any) (any, error) {
	if len(args) < 6 {
		return nil, errors.New("native: request requires (url, filter, callbackContract, callbackMethod, userData, gasForResponse)")
	}
	url, _ := args[0].(string)
	filter, _ := args[1].(string)
	cb, _ := args[2].(hashing.Hash160)
	method, _ := args[3].(string)
	userData, _ := args[4].([]byte)
	gas, _ := args[5].(int64)
	if len(url) == 0 {
		return nil, errors.New("native: request URL must not be empty")
	}
	if gas <= 0 {
		return nil, errors.New("native: gasForResponse must be positive")
	}
	id := o.nextRequestID(ctx)
	req := OracleRequest{ID: id, URL: url, Filter: filter, CallbackContract: cb, CallbackMethod: method, UserData: userData, GasForResponse: gas}
	ctx.Cache.Put(requestKey(o.ID(), id), encodeOracleRequest(req))
	return id, nil
}

func (o *OracleContract) finish(ctx *Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("native: finish requires (requestID)")
	}
	id, _ := args[0].(uint64)
	if _, err := ctx.Cache.Get(requestKey(o.ID(), id)); err != nil {
		return nil, errors.New("native: unknown oracle request")
	}
	ctx.Cache.Delete(requestKey(o.ID(), id))
	return true, nil
}

func (o *OracleContract) getRequest(ctx *Context, args []any) (any, error) {
	id, _ := args[0].(uint64)
	raw, err := ctx.Cache.Get(requestKey(o.ID(), id))
	if err != nil {
		return nil, errors.New("native: unknown oracle request")
	}
	return decodeOracleRequest(raw), nil
}

func (o *OracleContract) getPrice(ctx *Context, _ []any) (any, error) {
	raw, err := ctx.Cache.Get(key(o.ID(), oraclePricePrefix))
	if err != nil || len(raw) != 8 {
		return int64(5000_0000), nil // 0.5 GAS default
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}

func (o *OracleContract) setPrice(ctx *Context, args []any) (any, error) {
	price, ok := args[0].(int64)
	if !ok || price < 0 {
		return nil, errors.New("native: price must be a non-negative integer")
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(price))
	ctx.Cache.Put(key(o.ID(), oraclePricePrefix), buf[:])
	return true, nil
}

func encodeOracleRequest(r OracleRequest) []byte {
	out := make([]byte, 0, 64+len(r.UserData))
	var idb [8]byte
	binary.LittleEndian.PutUint64(idb[:], r.ID)
	out = append(out, idb[:]...)
	out = appendLenPrefixed(out, []byte(r.URL))
	out = appendLenPrefixed(out, []byte(r.Filter))
	out = append(out, r.CallbackContract.Bytes()...)
	out = appendLenPrefixed(out, []byte(r.CallbackMethod))
	out = appendLenPrefixed(out, r.UserData)
	var gasb [8]byte
	binary.LittleEndian.PutUint64(gasb[:], uint64(r.GasForResponse))
	out = append(out, gasb[:]...)
	return out
}

func appendLenPrefixed(dst, b []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(b)))
	dst = append(dst, l[:]...)
	return append(dst, b...)
}

func readLenPrefixed(raw []byte, off int) ([]byte, int) {
	l := int(binary.LittleEndian.Uint32(raw[off : off+4]))
	off += 4
	return raw[off : off+l], off + l
}

func decodeOracleRequest(raw []byte) OracleRequest {
	var r OracleRequest
	if len(raw) < 8 {
		return r
	}
	off := 0
	r.ID = binary.LittleEndian.Uint64(raw[0:8])
	off = 8
	var b []byte
	b, off = readLenPrefixed(raw, off)
	r.URL = string(b)
	b, off = readLenPrefixed(raw, off)
	r.Filter = string(b)
	copy(r.CallbackContract[:], raw[off:off+20])
	off += 20
	b, off = readLenPrefixed(raw, off)
	r.CallbackMethod = string(b)
	b, off = readLenPrefixed(raw, off)
	r.UserData = b
	r.GasForResponse = int64(binary.LittleEndian.Uint64(raw[off : off+8]))
	return r
}
