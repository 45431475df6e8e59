package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

const (
	policyFeePerBytePrefix   byte = 0x20
	policyMaxSysFeePrefix    byte = 0x21
	policyMaxTxPerBlock      byte = 0x22
	policyMaxBlockSize       byte = 0x23
	policyBlockedAcctPrefix  byte = 0x24
	policyAttrFeePrefix      byte = 0x25

	defaultFeePerByte    int64 = 1000
	defaultMaxSysFee     int64 = 1_500_0000_0000
	defaultMaxTxPerBlock int64 = 512
	defaultMaxBlockSize  int64 = 262144
)

// PolicyContract is native contract -7: mutable network policy knobs.
type PolicyContract struct{ BaseContract }

func NewPolicyContract() *PolicyContract { return &PolicyContract{NewBaseContract(-7, "PolicyContract")} }

func (p *PolicyContract) Methods() map[string]Method {
	return map[string]Method{
		"getFeePerByte":      {Name: "getFeePerByte", Required: FlagReadStates, Handler: p.getInt(policyFeePerBytePrefix, defaultFeePerByte)},
		"setFeePerByte":      {Name: "setFeePerByte", Required: FlagStates, Handler: p.setInt(policyFeePerBytePrefix)},
		"getMaxBlockSystemFee": {Name: "getMaxBlockSystemFee", Required: FlagReadStates, Handler: p.getInt(policyMaxSysFeePrefix, defaultMaxSysFee)},
		"setMaxBlockSystemFee": {Name: "setMaxBlockSystemFee", Required: FlagStates, Handler: p.setInt(policyMaxSysFeePrefix)},
		"getMaxTransactionsPerBlock": {Name: "getMaxTransactionsPerBlock", Required: FlagReadStates, Handler: p.getInt(policyMaxTxPerBlock, defaultMaxTxPerBlock)},
		"setMaxTransactionsPerBlock": {Name: "setMaxTransactionsPerBlock", Required: FlagStates, Handler: p.setInt(policyMaxTxPerBlock)},
		"getMaxBlockSize":    {Name: "getMaxBlockSize", Required: FlagReadStates, Handler: p.getInt(policyMaxBlockSize, defaultMaxBlockSize)},
		"setMaxBlockSize":    {Name: "setMaxBlockSize", Required: FlagStates, Handler: p.setInt(policyMaxBlockSize)},
		"blockAccount":       {Name: "blockAccount", Required: FlagStates, Handler: p.blockAccount},
		"unblockAccount":     {Name: "unblockAccount", Required: FlagStates, Handler: p.unblockAccount},
		"isBlocked":          {Name: "isBlocked", Required: FlagReadStates, Handler: p.isBlocked},
		"getAttributeFee":    {Name: "getAttributeFee", Required: FlagReadStates, Handler: p.getAttributeFee},
		"setAttributeFee":    {Name: "setAttributeFee", Required: FlagStates, Handler: p.setAttributeFee},
	}
}

func (p *PolicyContract) getInt(sub byte, def int64) func(*Context, []any) (any, error) {
	return func(ctx *Context, _ []any) (any, error) {
		raw, err := ctx.Cache.Get(key(p.ID(), sub))
		if err != nil || len(raw) != 8 {
			return def, nil
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	}
}

func (p *PolicyContract) setInt(sub byte) func(*Context, []any) (any, error) {
	return func(ctx *Context, args []any) (any, error) {
		if len(args) < 1 {
			return nil, errors.New("native: setter requires one integer argument")
		}
		v, ok := args[0].(int64)
		if !ok {
			return nil, errors.New("native: argument must be an integer")
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		ctx.Cache.Put(key(p.ID(), sub), buf[:])
		return true, nil
	}
}

func blockedKey(id int32, acct hashing.Hash160) []byte {
	return key(id, append([]byte{policyBlockedAcctPrefix}, acct.Bytes()...)...)
}

func (p *PolicyContract) blockAccount(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: blockAccount requires a Hash160 account")
	}
	ctx.Cache.Put(blockedKey(p.ID(), acct), []byte{1})
	return true, nil
}

func (p *PolicyContract) unblockAccount(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: unblockAccount requires a Hash160 account")
	}
	ctx.Cache.Delete(blockedKey(p.ID(), acct))
	return true, nil
}

func (p *PolicyContract) isBlocked(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: isBlocked requires a Hash160 account")
	}
	_, err := ctx.Cache.Get(blockedKey(p.ID(), acct))
	return err == nil, nil
}

func attrFeeKey(id int32, attrType byte) []byte {
	return key(id, policyAttrFeePrefix, attrType)
}

func (p *PolicyContract) getAttributeFee(ctx *Context, args []any) (any, error) {
	attrType, _ := args[0].(int64)
	raw, err := ctx.Cache.Get(attrFeeKey(p.ID(), byte(attrType)))
	if err != nil || len(raw) != 8 {
		return int64(0), nil
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}

func (p *PolicyContract) setAttributeFee(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: setAttributeFee requires (attrType, fee)")
	}
	attrType, _ := args[0].(int64)
	fee, _ := args[1].(int64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(fee))
	ctx.Cache.Put(attrFeeKey(p.ID(), byte(attrType)), buf[:])
	return true, nil
}
