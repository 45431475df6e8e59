package native

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

const (
	neoTotalSupply = 100_000_000

	neoBalancePrefix   byte = 0x20
	neoCandidatePrefix byte = 0x21
	neoCommitteeKey    byte = 0x22
	neoGenesisFlag     byte = 0x23

	// neoCommitteeSize mirrors Neo N3 mainnet's standby committee size;
	// getCommittee returns the top-voted candidates up to this count.
	neoCommitteeSize = 21
)

// neoAccount is the persisted per-holder record: balance plus the height
// at which it was last touched, used to compute the balance*held-height
// GAS distribution (§4.4 NeoToken row).
type neoAccount struct {
	Balance    int64
	VoteTarget []byte // compressed public key, empty if unset
	LastHeight uint32
}

// NeoToken is native contract -5: the non-divisible governance token.
type NeoToken struct{ BaseContract }

func NewNeoToken() *NeoToken { return &NeoToken{NewBaseContract(-5, "NeoToken")} }

func (n *NeoToken) Methods() map[string]Method {
	return map[string]Method{
		"balanceOf":           {Name: "balanceOf", Required: FlagReadStates, Handler: n.balanceOf},
		"transfer":            {Name: "transfer", Required: FlagStates, Handler: n.transfer},
		"totalSupply":         {Name: "totalSupply", Required: FlagReadStates, Handler: n.totalSupply},
		"registerCandidate":   {Name: "registerCandidate", Required: FlagStates, Handler: n.registerCandidate},
		"unregisterCandidate": {Name: "unregisterCandidate", Required: FlagStates, Handler: n.unregisterCandidate},
		"vote":                {Name: "vote", Required: FlagStates, Handler: n.vote},
		"getCandidates":       {Name: "getCandidates", Required: FlagReadStates, Handler: n.getCandidates},
		"getCommittee":        {Name: "getCommittee", Required: FlagReadStates, Handler: n.getCommittee},
		"unclaimedGas":        {Name: "unclaimedGas", Required: FlagReadStates, Handler: n.unclaimedGas},
	}
}

// OnPersist mints the genesis supply exactly once, to the account key
// 0x00...00 standing in for the standby committee's multi-sig address
// (the real derivation belongs to consensus bootstrap, out of this
// package's scope), then recomputes the committee from the candidates'
// current vote totals every block. Real Neo only re-elects once per
// committee cycle (a multi-thousand-block period); recomputing every
// block is a simplification this module accepts in exchange for never
// leaving getCommittee stale relative to the votes that have landed.
func (n *NeoToken) OnPersist(ctx *Context) error {
	if _, err := ctx.Cache.Get(key(n.ID(), neoGenesisFlag)); err != nil {
		var genesis hashing.Hash160
		n.setBalance(ctx, genesis, neoAccount{Balance: neoTotalSupply})
		ctx.Cache.Put(key(n.ID(), neoGenesisFlag), []byte{1})
	}
	n.computeCommittee(ctx)
	return nil
}

// computeCommittee ranks every registered candidate by its accumulated
// vote total (descending, tie-broken by public key for determinism) and
// writes the top neoCommitteeSize of them to neoCommitteeKey.
func (n *NeoToken) computeCommittee(ctx *Context) {
	prefixLen := len(key(n.ID(), neoCandidatePrefix))
	pairs := ctx.Cache.Find(key(n.ID(), neoCandidatePrefix), store.SeekForward)

	cands := make([]candidateVote, 0, len(pairs))
	for _, p := range pairs {
		cands = append(cands, candidateVote{
			pub:   append([]byte(nil), p.Key[prefixLen:]...),
			votes: decodeVotes(p.Value),
		})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].votes != cands[j].votes {
			return cands[i].votes > cands[j].votes
		}
		return string(cands[i].pub) < string(cands[j].pub)
	})

	size := neoCommitteeSize
	if len(cands) < size {
		size = len(cands)
	}
	if size == 0 {
		ctx.Cache.Delete(key(n.ID(), neoCommitteeKey))
		return
	}
	out := make([]byte, 0, size*33)
	for i := 0; i < size; i++ {
		out = append(out, cands[i].pub...)
	}
	ctx.Cache.Put(key(n.ID(), neoCommitteeKey), out)
}

// candidateVote pairs a candidate's public key with its accumulated
// vote total, the unit computeCommittee ranks by.
type candidateVote struct {
	pub   []byte
	votes int64
}

func balanceKey(id int32, acct hashing.Hash160) []byte {
	return key(id, append([]byte{neoBalancePrefix}, acct.Bytes()...)...)
}

func (n *NeoToken) getBalance(ctx *Context, acct hashing.Hash160) neoAccount {
	raw, err := ctx.Cache.Get(balanceKey(n.ID(), acct))
	if err != nil {
		return neoAccount{}
	}
	return decodeNeoAccount(raw)
}

func (n *NeoToken) setBalance(ctx *Context, acct hashing.Hash160, a neoAccount) {
	if a.Balance == 0 && len(a.VoteTarget) == 0 {
		ctx.Cache.Delete(balanceKey(n.ID(), acct))
		return
	}
	ctx.Cache.Put(balanceKey(n.ID(), acct), encodeNeoAccount(a))
}

func (n *NeoToken) balanceOf(ctx *Context, args []any) (any, error) {
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: balanceOf requires a Hash160 account")
	}
	return n.getBalance(ctx, acct).Balance, nil
}

func (n *NeoToken) totalSupply(_ *Context, _ []any) (any, error) { return int64(neoTotalSupply), nil }

func (n *NeoToken) transfer(ctx *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: transfer requires (from, to, amount)")
	}
	from, _ := args[0].(hashing.Hash160)
	to, _ := args[1].(hashing.Hash160)
	amount, _ := args[2].(int64)
	if amount < 0 {
		return nil, errors.New("native: transfer amount must be non-negative")
	}
	if amount == 0 {
		return true, nil
	}
	fromAcct := n.getBalance(ctx, from)
	if fromAcct.Balance < amount {
		return false, nil
	}
	toAcct := n.getBalance(ctx, to)
	fromAcct.Balance -= amount
	toAcct.Balance += amount
	n.setBalance(ctx, from, fromAcct)
	n.setBalance(ctx, to, toAcct)

	// A holder's balance is its voting weight, so moving NEO must move the
	// weight it contributes to whichever candidate it's backing.
	if len(fromAcct.VoteTarget) > 0 {
		n.adjustVotes(ctx, fromAcct.VoteTarget, -amount)
	}
	if len(toAcct.VoteTarget) > 0 {
		n.adjustVotes(ctx, toAcct.VoteTarget, amount)
	}
	return true, nil
}

func candidateKey(id int32, pub []byte) []byte {
	return key(id, append([]byte{neoCandidatePrefix}, pub...)...)
}

func (n *NeoToken) registerCandidate(ctx *Context, args []any) (any, error) {
	pub, ok := args[0].([]byte)
	if !ok || len(pub) != 33 {
		return nil, errors.New("native: registerCandidate requires a 33-byte compressed public key")
	}
	k := candidateKey(n.ID(), pub)
	if _, err := ctx.Cache.Get(k); err == nil {
		return true, nil // already registered; keep its accumulated votes
	}
	ctx.Cache.Put(k, encodeVotes(0))
	return true, nil
}

func (n *NeoToken) unregisterCandidate(ctx *Context, args []any) (any, error) {
	pub, ok := args[0].([]byte)
	if !ok {
		return nil, errors.New("native: unregisterCandidate requires a public key")
	}
	ctx.Cache.Delete(candidateKey(n.ID(), pub))
	return true, nil
}

func (n *NeoToken) vote(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: vote requires (account, candidatePubkey)")
	}
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: vote requires a Hash160 account")
	}
	pub, _ := args[1].([]byte)
	if len(pub) > 0 {
		if _, err := ctx.Cache.Get(candidateKey(n.ID(), pub)); err != nil {
			return false, errors.New("native: vote target is not a registered candidate")
		}
	}

	a := n.getBalance(ctx, acct)
	if len(a.VoteTarget) > 0 {
		n.adjustVotes(ctx, a.VoteTarget, -a.Balance)
	}
	if len(pub) > 0 {
		n.adjustVotes(ctx, pub, a.Balance)
	}
	a.VoteTarget = pub
	n.setBalance(ctx, acct, a)
	return true, nil
}

// adjustVotes adds delta to pub's accumulated vote total, clamped at
// zero. A pub that isn't a currently-registered candidate (e.g. it was
// unregistered after votes were cast for it) is a no-op: there is no
// tally left to adjust.
func (n *NeoToken) adjustVotes(ctx *Context, pub []byte, delta int64) {
	k := candidateKey(n.ID(), pub)
	raw, err := ctx.Cache.Get(k)
	if err != nil {
		return
	}
	v := decodeVotes(raw) + delta
	if v < 0 {
		v = 0
	}
	ctx.Cache.Put(k, encodeVotes(v))
}

func encodeVotes(v int64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(v))
	return out
}

func decodeVotes(raw []byte) int64 {
	if len(raw) < 8 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(raw))
}

func (n *NeoToken) getCandidates(ctx *Context, _ []any) (any, error) {
	pairs := ctx.Cache.Find(key(n.ID(), neoCandidatePrefix), store.SeekForward)
	out := make([][]byte, 0, len(pairs))
	prefixLen := len(key(n.ID(), neoCandidatePrefix))
	for _, p := range pairs {
		out = append(out, append([]byte(nil), p.Key[prefixLen:]...))
	}
	return out, nil
}

func (n *NeoToken) getCommittee(ctx *Context, _ []any) (any, error) {
	raw, err := ctx.Cache.Get(key(n.ID(), neoCommitteeKey))
	if err != nil {
		return [][]byte{}, nil
	}
	return splitPubkeys(raw), nil
}

// unclaimedGas computes the balance*held-height reward accrued since the
// account's last touch, at the fixed per-block rate the GasToken mints.
func (n *NeoToken) unclaimedGas(ctx *Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("native: unclaimedGas requires (account, endHeight)")
	}
	acct, ok := args[0].(hashing.Hash160)
	if !ok {
		return nil, errors.New("native: unclaimedGas requires a Hash160 account")
	}
	end, ok := args[1].(uint32)
	if !ok {
		return nil, errors.New("native: unclaimedGas requires a uint32 endHeight")
	}
	a := n.getBalance(ctx, acct)
	if end <= a.LastHeight || a.Balance == 0 {
		return int64(0), nil
	}
	delta := int64(end - a.LastHeight)
	return a.Balance * delta * gasPerBlockPerNeo, nil
}

const gasPerBlockPerNeo = 5 // Fixed8-scaled reward unit per NEO per block, a policy-tunable constant in the real network

func encodeNeoAccount(a neoAccount) []byte {
	out := make([]byte, 12, 12+1+len(a.VoteTarget))
	binary.LittleEndian.PutUint64(out[0:8], uint64(a.Balance))
	binary.LittleEndian.PutUint32(out[8:12], a.LastHeight)
	out = append(out, byte(len(a.VoteTarget)))
	out = append(out, a.VoteTarget...)
	return out
}

func decodeNeoAccount(raw []byte) neoAccount {
	if len(raw) < 13 {
		return neoAccount{}
	}
	bal := int64(binary.LittleEndian.Uint64(raw[0:8]))
	height := binary.LittleEndian.Uint32(raw[8:12])
	vtLen := int(raw[12])
	var vt []byte
	if vtLen > 0 && len(raw) >= 13+vtLen {
		vt = append([]byte(nil), raw[13:13+vtLen]...)
	}
	return neoAccount{Balance: bal, LastHeight: height, VoteTarget: vt}
}

func splitPubkeys(raw []byte) [][]byte {
	var out [][]byte
	for i := 0; i+33 <= len(raw); i += 33 {
		out = append(out, append([]byte(nil), raw[i:i+33]...))
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
	return out
}
