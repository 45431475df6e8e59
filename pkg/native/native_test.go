package native

import (
	"testing"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

func freshCtx(flags CallFlags) *Context {
	return &Context{Cache: store.NewDataCacheOverStore(store.NewMemStore()), Flags: flags}
}

func TestInvokeRejectsMissingCallFlags(t *testing.T) {
	n := NewNeoToken()
	ctx := freshCtx(FlagReadStates) // lacks FlagWriteStates
	_, err := Invoke(n, ctx, "transfer", []any{hashing.Hash160{}, hashing.Hash160{}, int64(1)})
	if err == nil {
		t.Fatal("expected missing-call-flags error")
	}
}

func TestInvokeUnknownMethod(t *testing.T) {
	n := NewStdLib()
	ctx := freshCtx(FlagAll)
	if _, err := Invoke(n, ctx, "doesNotExist", nil); err == nil {
		t.Fatal("expected unknown-method error")
	}
}

func TestContractManagementDeployAndGet(t *testing.T) {
	cm := NewContractManagement()
	ctx := freshCtx(FlagStates)
	nef := []byte{0x01, 0x02, 0x03}
	manifest := []byte(`{"name":"test"}`)
	res, err := Invoke(cm, ctx, "deploy", []any{nef, manifest})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	st := res.(ContractState)
	if st.ID != 1 {
		t.Fatalf("first deployed contract id = %d, want 1", st.ID)
	}

	got, err := Invoke(cm, ctx, "getContract", []any{st.ScriptHash})
	if err != nil {
		t.Fatalf("getContract: %v", err)
	}
	gotSt := got.(ContractState)
	if string(gotSt.NEF) != string(nef) {
		t.Fatalf("NEF mismatch: %v != %v", gotSt.NEF, nef)
	}

	if _, err := Invoke(cm, ctx, "deploy", []any{nef, manifest}); err == nil {
		t.Fatal("expected duplicate-deploy error")
	}
}

func TestContractManagementManifestTooLarge(t *testing.T) {
	cm := NewContractManagement()
	ctx := freshCtx(FlagStates)
	huge := make([]byte, 64*1024+1)
	if _, err := Invoke(cm, ctx, "deploy", []any{[]byte{0x01}, huge}); err == nil {
		t.Fatal("expected manifest-too-large error")
	}
}

func TestStdLibBase58CheckRoundTrip(t *testing.T) {
	s := NewStdLib()
	ctx := freshCtx(FlagNone)
	payload := []byte{1, 2, 3, 4, 5}
	enc, err := Invoke(s, ctx, "base58CheckEncode", []any{payload})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := Invoke(s, ctx, "base58CheckDecode", []any{enc.(string)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dec.([]byte)) != string(payload) {
		t.Fatalf("round trip mismatch: %v != %v", dec, payload)
	}
}

func TestStdLibStringLenCountsRunes(t *testing.T) {
	s := NewStdLib()
	ctx := freshCtx(FlagNone)
	n, err := Invoke(s, ctx, "stringLen", []any{"héllo"})
	if err != nil {
		t.Fatal(err)
	}
	if n.(int64) != 5 {
		t.Fatalf("stringLen = %d, want 5", n)
	}
}

func TestNeoTokenGenesisAndTransfer(t *testing.T) {
	n := NewNeoToken()
	ctx := freshCtx(FlagAll)
	if err := n.OnPersist(ctx); err != nil {
		t.Fatalf("OnPersist: %v", err)
	}
	var genesis, alice hashing.Hash160
	alice[0] = 0xAA

	total, _ := Invoke(n, ctx, "totalSupply", nil)
	if total.(int64) != neoTotalSupply {
		t.Fatalf("totalSupply = %d, want %d", total, neoTotalSupply)
	}
	bal, _ := Invoke(n, ctx, "balanceOf", []any{genesis})
	if bal.(int64) != neoTotalSupply {
		t.Fatalf("genesis balance = %d, want %d", bal, neoTotalSupply)
	}

	ok, err := Invoke(n, ctx, "transfer", []any{genesis, alice, int64(1000)})
	if err != nil || ok != true {
		t.Fatalf("transfer failed: %v %v", ok, err)
	}
	aliceBal, _ := Invoke(n, ctx, "balanceOf", []any{alice})
	if aliceBal.(int64) != 1000 {
		t.Fatalf("alice balance = %d, want 1000", aliceBal)
	}
	genesisBal, _ := Invoke(n, ctx, "balanceOf", []any{genesis})
	if genesisBal.(int64) != neoTotalSupply-1000 {
		t.Fatalf("genesis balance after transfer = %d", genesisBal)
	}

	// OnPersist is idempotent: calling it again must not re-mint.
	if err := n.OnPersist(ctx); err != nil {
		t.Fatal(err)
	}
	total2, _ := Invoke(n, ctx, "totalSupply", nil)
	if total2.(int64) != neoTotalSupply {
		t.Fatalf("totalSupply after repeated OnPersist = %d, want unchanged %d", total2, neoTotalSupply)
	}
}

func TestNeoTokenTransferInsufficientBalanceFails(t *testing.T) {
	n := NewNeoToken()
	ctx := freshCtx(FlagAll)
	var a, b hashing.Hash160
	b[0] = 1
	ok, err := Invoke(n, ctx, "transfer", []any{a, b, int64(5)})
	if err != nil {
		t.Fatal(err)
	}
	if ok.(bool) {
		t.Fatal("transfer from empty balance should return false, not error")
	}
}

func TestGasTokenMintBurn(t *testing.T) {
	g := NewGasToken()
	ctx := freshCtx(FlagAll)
	var acct hashing.Hash160
	acct[0] = 7

	if _, err := Invoke(g, ctx, "mint", []any{acct, int64(500)}); err != nil {
		t.Fatal(err)
	}
	bal, _ := Invoke(g, ctx, "balanceOf", []any{acct})
	if bal.(int64) != 500 {
		t.Fatalf("balance = %d, want 500", bal)
	}
	if _, err := Invoke(g, ctx, "burn", []any{acct, int64(200)}); err != nil {
		t.Fatal(err)
	}
	bal2, _ := Invoke(g, ctx, "balanceOf", []any{acct})
	if bal2.(int64) != 300 {
		t.Fatalf("balance after burn = %d, want 300", bal2)
	}
	if _, err := Invoke(g, ctx, "burn", []any{acct, int64(1000)}); err == nil {
		t.Fatal("expected insufficient-balance error")
	}
}

func TestPolicyContractDefaultsAndOverride(t *testing.T) {
	p := NewPolicyContract()
	ctx := freshCtx(FlagAll)
	fee, _ := Invoke(p, ctx, "getFeePerByte", nil)
	if fee.(int64) != defaultFeePerByte {
		t.Fatalf("default fee = %d, want %d", fee, defaultFeePerByte)
	}
	if _, err := Invoke(p, ctx, "setFeePerByte", []any{int64(2000)}); err != nil {
		t.Fatal(err)
	}
	fee2, _ := Invoke(p, ctx, "getFeePerByte", nil)
	if fee2.(int64) != 2000 {
		t.Fatalf("fee after override = %d, want 2000", fee2)
	}
}

func TestPolicyContractBlockedAccounts(t *testing.T) {
	p := NewPolicyContract()
	ctx := freshCtx(FlagAll)
	var acct hashing.Hash160
	acct[0] = 9

	blocked, _ := Invoke(p, ctx, "isBlocked", []any{acct})
	if blocked.(bool) {
		t.Fatal("account should not start blocked")
	}
	if _, err := Invoke(p, ctx, "blockAccount", []any{acct}); err != nil {
		t.Fatal(err)
	}
	blocked2, _ := Invoke(p, ctx, "isBlocked", []any{acct})
	if !blocked2.(bool) {
		t.Fatal("account should be blocked")
	}
	if _, err := Invoke(p, ctx, "unblockAccount", []any{acct}); err != nil {
		t.Fatal(err)
	}
	blocked3, _ := Invoke(p, ctx, "isBlocked", []any{acct})
	if blocked3.(bool) {
		t.Fatal("account should be unblocked")
	}
}

func TestNotaryLockWithdraw(t *testing.T) {
	n := NewNotary()
	ctx := freshCtx(FlagAll)
	var acct hashing.Hash160
	acct[0] = 3

	if _, err := Invoke(n, ctx, "lockDepositUntil", []any{acct, int64(100), uint32(50)}); err != nil {
		t.Fatal(err)
	}
	bal, _ := Invoke(n, ctx, "balanceOf", []any{acct})
	if bal.(int64) != 100 {
		t.Fatalf("deposit = %d, want 100", bal)
	}
	if _, err := Invoke(n, ctx, "withdraw", []any{acct, uint32(10)}); err == nil {
		t.Fatal("expected still-locked error before TillBlock")
	}
	got, err := Invoke(n, ctx, "withdraw", []any{acct, uint32(60)})
	if err != nil {
		t.Fatal(err)
	}
	if got.(int64) != 100 {
		t.Fatalf("withdrawn amount = %d, want 100", got)
	}
	bal2, _ := Invoke(n, ctx, "balanceOf", []any{acct})
	if bal2.(int64) != 0 {
		t.Fatalf("balance after withdraw = %d, want 0", bal2)
	}
}

func TestRoleManagementDesignationHistoryLookup(t *testing.T) {
	r := NewRoleManagement()
	ctx := freshCtx(FlagAll)
	pub1 := make([]byte, 33)
	pub1[0] = 0x02
	pub1[1] = 1
	pub2 := make([]byte, 33)
	pub2[0] = 0x02
	pub2[1] = 2

	if _, err := Invoke(r, ctx, "designateAsRole", []any{RoleOracle, [][]byte{pub1}, uint32(10)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Invoke(r, ctx, "designateAsRole", []any{RoleOracle, [][]byte{pub1, pub2}, uint32(100)}); err != nil {
		t.Fatal(err)
	}

	at5, _ := Invoke(r, ctx, "getDesignatedByRole", []any{RoleOracle, uint32(5)})
	if len(at5.([][]byte)) != 0 {
		t.Fatalf("at height 5 expected no designation, got %v", at5)
	}
	at50, _ := Invoke(r, ctx, "getDesignatedByRole", []any{RoleOracle, uint32(50)})
	if len(at50.([][]byte)) != 1 {
		t.Fatalf("at height 50 expected 1 designee, got %d", len(at50.([][]byte)))
	}
	at200, _ := Invoke(r, ctx, "getDesignatedByRole", []any{RoleOracle, uint32(200)})
	if len(at200.([][]byte)) != 2 {
		t.Fatalf("at height 200 expected 2 designees, got %d", len(at200.([][]byte)))
	}
}

func TestOracleContractRequestAndFinish(t *testing.T) {
	o := NewOracleContract()
	ctx := freshCtx(FlagAll)
	var cb hashing.Hash160
	cb[0] = 0x11

	id, err := Invoke(o, ctx, "request", []any{"https://example.com", "$.price", cb, "callback", []byte("ud"), int64(1_0000_0000)})
	if err != nil {
		t.Fatal(err)
	}
	req, err := Invoke(o, ctx, "getRequest", []any{id.(uint64)})
	if err != nil {
		t.Fatal(err)
	}
	rq := req.(OracleRequest)
	if rq.URL != "https://example.com" || rq.CallbackMethod != "callback" {
		t.Fatalf("round-tripped request mismatch: %+v", rq)
	}
	if _, err := Invoke(o, ctx, "finish", []any{id.(uint64)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Invoke(o, ctx, "getRequest", []any{id.(uint64)}); err == nil {
		t.Fatal("expected request to be gone after finish")
	}
}

func TestStandardRegistryHasAllTenNatives(t *testing.T) {
	reg := NewStandardRegistry()
	all := reg.All()
	if len(all) != 10 {
		t.Fatalf("registry has %d contracts, want 10", len(all))
	}
	for i := range all {
		wantID := int32(i - len(all))
		if all[i].ID() != wantID {
			t.Fatalf("contract at position %d has id %d, want %d", i, all[i].ID(), wantID)
		}
	}
}
