package native

import (
	"encoding/binary"
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

const (
	notaryDepositPrefix byte = 0x20
	notaryMaxNotValidUntilDelta uint32 = 140
)

// notaryDeposit is a notary node's locked-GAS collateral plus its expiry
// height, after which it can be withdrawn.
type notaryDeposit struct {
	Amount    int64
	TillBlock uint32
}

// Notary is native contract -10: GAS deposits locked until a block height
// and withdrawable from that height on. It keeps no fee accounting; nothing
// here pays notary nodes from NotaryAssisted transactions.
type Notary struct{ BaseContract }

func NewNotary() *Notary { return &Notary{NewBaseContract(-10, "Notary")} }

func (n *Notary) Methods() map[string]Method {
	return map[string]Method{
		"lockDepositUntil": {Name: "lockDepositUntil", Required: FlagStates, Handler: n.lockDepositUntil},
		"withdraw":         {Name: "withdraw", Required: FlagStates, Handler: n.withdraw},
		"balanceOf":        {Name: "balanceOf", Required: FlagReadStates, Handler: n.balanceOf},
		"expirationOf":     {Name: "expirationOf", Required: FlagReadStates, Handler: n.expirationOf},
		"getMaxNotValidBeforeDelta": {Name: "getMaxNotValidBeforeDelta", Required: FlagReadStates, Handler: n.getMaxDelta},
	}
}

func depositKey(id int32, acct hashing.Hash160) []byte {
	return key(id, append([]byte{notaryDepositPrefix}, acct.Bytes()...)...)
}

func (n *Notary) get(ctx *Context, acct hashing.Hash160) notaryDeposit {
	raw, err := ctx.Cache.Get(depositKey(n.ID(), acct))
	if err != nil || len(raw) != 12 {
		return notaryDeposit{}
	}
	return notaryDeposit{
		Amount:    int64(binary.LittleEndian.Uint64(raw[0:8])),
		TillBlock: binary.LittleEndian.Uint32(raw[8:12]),
	}
}

func (n *Notary) put(ctx *Context, acct hashing.Hash160, d notaryDeposit) {
	if d.Amount == 0 {
		ctx.Cache.Delete(depositKey(n.ID(), acct))
		return
	}
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(d.Amount))
	binary.LittleEndian.PutUint32(buf[8:12], d.TillBlock)
	ctx.Cache.Put(depositKey(n.ID(), acct), buf[:])
}

func (n *Notary) lockDepositUntil(ctx *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: lockDepositUntil requires (account, amount, tillBlock)")
	}
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: lockDepositUntil requires a Hash160 account")
	}
	amount, _ := args[1].(int64)
	till, ok := args[2].(uint32)
	if !ok {
		return nil, errors.New("native: lockDepositUntil requires a uint32 tillBlock")
	}
	if amount < 0 {
		return nil, errors.New("native: amount must be non-negative")
	}
	existing := n.get(ctx, acct)
	if till < existing.TillBlock {
		return nil, errors.New("native: cannot shorten an existing lock")
	}
	n.put(ctx, acct, notaryDeposit{Amount: existing.Amount + amount, TillBlock: till})
	return true, nil
}

func (n *Notary) withdraw(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: withdraw requires (account, currentHeight)")
	}
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: withdraw requires a Hash160 account")
	}
	height, ok := args[1].(uint32)
	if !ok {
		return nil, errors.New("native: withdraw requires a uint32 currentHeight")
	}
	d := n.get(ctx, acct)
	if d.Amount == 0 {
		return int64(0), nil
	}
	if height < d.TillBlock {
		return nil, errors.New("native: deposit still locked")
	}
	n.put(ctx, acct, notaryDeposit{})
	return d.Amount, nil
}

func (n *Notary) balanceOf(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: balanceOf requires a Hash160 account")
	}
	return n.get(ctx, acct).Amount, nil
}

func (n *Notary) expirationOf(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: expirationOf requires a Hash160 account")
	}
	return n.get(ctx, acct).TillBlock, nil
}

func (n *Notary) getMaxDelta(_ *Context, _ []any) (any, error) {
	return int64(notaryMaxNotValidUntilDelta), nil
}
