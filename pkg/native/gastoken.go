package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

const gasBalancePrefix byte = 0x20

// GasToken is native contract -6: the 10^8-divisible utility token. Its
// supply changes only through the mint and burn methods; block persistence
// in pkg/ledger calls neither, so no block reward is minted and no fee is
// burned.
type GasToken struct{ BaseContract }

func NewGasToken() *GasToken { return &GasToken{NewBaseContract(-6, "GasToken")} }

func (g *GasToken) Methods() map[string]Method {
	return map[string]Method{
		"balanceOf":   {Name: "balanceOf", Required: FlagReadStates, Handler: g.balanceOf},
		"transfer":    {Name: "transfer", Required: FlagStates, Handler: g.transfer},
		"totalSupply": {Name: "totalSupply", Required: FlagReadStates, Handler: g.totalSupply},
		"mint":        {Name: "mint", Required: FlagStates, Handler: g.mint},
		"burn":        {Name: "burn", Required: FlagStates, Handler: g.burn},
	}
}

func gasBalanceKey(id int32, acct hashing.Hash160) []byte {
	return key(id, append([]byte{gasBalancePrefix}, acct.Bytes()...)...)
}

func (g *GasToken) getBalance(ctx *Context, acct hashing.Hash160) int64 {
	raw, err := ctx.Cache.Get(gasBalanceKey(g.ID(), acct))
	if err != nil || len(raw) != 8 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(raw))
}

func (g *GasToken) setBalance(ctx *Context, acct hashing.Hash160, v int64) {
	if v == 0 {
		ctx.Cache.Delete(gasBalanceKey(g.ID(), acct))
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	ctx.Cache.Put(gasBalanceKey(g.ID(), acct), buf[:])
}

func (g *GasToken) balanceOf(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: balanceOf requires a Hash160 account")
	}
	return g.getBalance(ctx, acct), nil
}

func (g *GasToken) totalSupply(ctx *Context, _ []any) (any, error) {
	raw, err := ctx.Cache.Get(key(g.ID(), 0x21))
	if err != nil || len(raw) != 8 {
		return int64(0), nil
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}

func (g *GasToken) addSupply(ctx *Context, delta int64) {
	cur, _ := g.totalSupply(ctx, nil)
	total := cur.(int64) + delta
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(total))
	ctx.Cache.Put(key(g.ID(), 0x21), buf[:])
}

func (g *GasToken) transfer(ctx *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: transfer requires (from, to, amount)")
	}
	from, _ := args[0].(hashing.Hash160)
	to, _ := args[1].(hashing.Hash160)
	amount, _ := args[2].(int64)
	if amount < 0 {
		return nil, errors.New("native: transfer amount must be non-negative")
	}
	if g.getBalance(ctx, from) < amount {
		return false, nil
	}
	g.setBalance(ctx, from, g.getBalance(ctx, from)-amount)
	g.setBalance(ctx, to, g.getBalance(ctx, to)+amount)
	return true, nil
}

// mint credits amount to acct and raises the total supply; it is
// call-flag gated like every other write path.
func (g *GasToken) mint(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: mint requires a Hash160 account")
	}
	amount, _ := args[1].(int64)
	if amount <= 0 {
		return nil, errors.New("native: mint amount must be positive")
	}
	g.setBalance(ctx, acct, g.getBalance(ctx, acct)+amount)
	g.addSupply(ctx, amount)
	return true, nil
}

// burn debits amount from acct and lowers the total supply, failing when
// the balance is insufficient.
func (g *GasToken) burn(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: burn requires a Hash160 account")
	}
	amount, _ := args[1].(int64)
	if amount <= 0 {
		return nil, errors.New("native: burn amount must be positive")
	}
	bal := g.getBalance(ctx, acct)
	if bal < amount {
		return nil, errors.New("native: insufficient GAS balance")
	}
	g.setBalance(ctx, acct, bal-amount)
	g.addSupply(ctx, -amount)
	return true, nil
}
