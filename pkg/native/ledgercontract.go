package native

import (
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

// ChainView is the read surface LedgerContract needs from the aggregate
// ledger. Kept as a narrow interface here (rather than importing pkg/ledger
// directly) to avoid a pkg/ledger <-> pkg/native import cycle: pkg/ledger
// constructs the native registry and wires itself in as the ChainView.
type ChainView interface {
	CurrentIndex() uint32
	CurrentHash() hashing.Hash256
	BlockByIndex(index uint32) (any, bool)
	BlockByHash(h hashing.Hash256) (any, bool)
	TransactionByHash(h hashing.Hash256) (any, bool)
	TransactionHeight(h hashing.Hash256) (uint32, bool)
}

// LedgerContract is native contract -4: read-only chain queries.
type LedgerContract struct {
	BaseContract
	chain ChainView
}

func NewLedgerContract(chain ChainView) *LedgerContract {
	return &LedgerContract{NewBaseContract(-4, "LedgerContract"), chain}
}

// Bind attaches the live chain view once the ledger has constructed it;
// the standard registry starts with a nil view (chicken-and-egg at
// startup) and the ledger binds itself immediately after construction.
func (l *LedgerContract) Bind(chain ChainView) { l.chain = chain }

func (l *LedgerContract) Methods() map[string]Method {
	return map[string]Method{
		"currentIndex":         {Name: "currentIndex", Required: FlagReadStates, Handler: l.currentIndex},
		"currentHash":          {Name: "currentHash", Required: FlagReadStates, Handler: l.currentHash},
		"getBlock":             {Name: "getBlock", Required: FlagReadStates, Handler: l.getBlock},
		"getTransaction":       {Name: "getTransaction", Required: FlagReadStates, Handler: l.getTransaction},
		"getTransactionHeight": {Name: "getTransactionHeight", Required: FlagReadStates, Handler: l.getTransactionHeight},
	}
}

var errNoChain = errors.New("native: LedgerContract not bound to a chain view")

func (l *LedgerContract) currentIndex(_ *Context, _ []any) (any, error) {
	if l.chain == nil {
		return nil, errNoChain
	}
	return l.chain.CurrentIndex(), nil
}

func (l *LedgerContract) currentHash(_ *Context, _ []any) (any, error) {
	if l.chain == nil {
		return nil, errNoChain
	}
	return l.chain.CurrentHash(), nil
}

func (l *LedgerContract) getBlock(_ *Context, args []any) (any, error) {
	if l.chain == nil {
		return nil, errNoChain
	}
	if len(args) < 1 {
		return nil, errors.New("native: getBlock requires (index|hash)")
	}
	switch v := args[0].(type) {
	case uint32:
		b, ok := l.chain.BlockByIndex(v)
		if !ok {
			return nil, errors.New("native: block not found")
		}
		return b, nil
	case hashing.Hash256:
		b, ok := l.chain.BlockByHash(v)
		if !ok {
			return nil, errors.New("native: block not found")
		}
		return b, nil
	default:
		return nil, errors.New("native: getBlock argument must be index or hash")
	}
}

func (l *LedgerContract) getTransaction(_ *Context, args []any) (any, error) {
	if l.chain == nil {
		return nil, errNoChain
	}
	h, ok := args[0].(hashing.Hash256)
	if !ok {
		return nil, errors.New("native: getTransaction requires a Hash256")
	}
	tx, ok := l.chain.TransactionByHash(h)
	if !ok {
		return nil, errors.New("native: transaction not found")
	}
	return tx, nil
}

func (l *LedgerContract) getTransactionHeight(_ *Context, args []any) (any, error) {
	if l.chain == nil {
		return nil, errNoChain
	}
	h, ok := args[0].(hashing.Hash256)
	if !ok {
		return nil, errors.New("native: getTransactionHeight requires a Hash256")
	}
	height, ok := l.chain.TransactionHeight(h)
	if !ok {
		return nil, errors.New("native: transaction not found")
	}
	return height, nil
}
