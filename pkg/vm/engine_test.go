package vm

import "testing"

func newTestEngine(gas int64) *Engine {
	return NewEngine(gas, DefaultLimits)
}

func TestEmptyScriptHalts(t *testing.T) {
	e := newTestEngine(1_000_000)
	if err := e.LoadScript([]byte{}); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v, want HALT", st)
	}
	if e.GasConsumed() != 0 {
		t.Fatalf("gas_consumed = %d, want 0", e.GasConsumed())
	}
	if len(e.ResultStack()) != 0 {
		t.Fatalf("result stack not empty: %+v", e.ResultStack())
	}
}

func TestPush1Push2Add(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH1), byte(PUSH2), byte(ADD)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	result := e.ResultStack()
	if len(result) != 1 {
		t.Fatalf("result stack = %+v, want 1 item", result)
	}
	v, ok := result[0].Integer()
	if !ok || v.Int64() != 3 {
		t.Fatalf("result = %v, want Integer(3)", result[0])
	}
	want := BaseCost(PUSH1) + BaseCost(PUSH2) + BaseCost(ADD)
	if e.GasConsumed() != want {
		t.Fatalf("gas_consumed = %d, want %d", e.GasConsumed(), want)
	}
}

// TestTryThrowCatch builds: TRY(catch=+10,finally=null); THROW "boom";
// [catch target] PUSH2; RET — THROW unwinds to the catch target, which
// here is the instruction right after it, with "boom" pushed beneath.
func TestTryThrowCatch(t *testing.T) {
	e := newTestEngine(1_000_000)

	// Layout (byte offsets):
	// 0: TRY catch=+offsetToCatch finally=0
	// 3: PUSHDATA1 len=4 "boom"
	// 9: THROW
	// 10: <catch target> PUSH2
	// 11: RET
	const tryLen = 3
	catchTarget := tryLen + 1 + 1 + 4 + 1 // TRY(3) + PUSHDATA1 header(2) + "boom"(4) + THROW(1)
	script := []byte{
		byte(TRY), byte(catchTarget), 0,
		byte(PUSHDATA1), 4, 'b', 'o', 'o', 'm',
		byte(THROW),
		byte(PUSH2),
		byte(RET),
	}
	if catchTarget != 10 {
		t.Fatalf("test authoring error: catchTarget = %d, want 10", catchTarget)
	}

	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	result := e.ResultStack()
	if len(result) == 0 {
		t.Fatalf("result stack is empty")
	}
	top := result[len(result)-1]
	v, ok := top.Integer()
	if !ok || v.Int64() != 2 {
		t.Fatalf("result stack top = %v, want Integer(2)", top)
	}
}

func TestTryBothTargetsNilFaults(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(TRY), 0, 0, byte(RET)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH1), byte(PUSH0), byte(DIV)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestModuloByZeroFaults(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH1), byte(PUSH0), byte(MOD)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestPowNegativeExponentFaults(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH2), byte(PUSHM1), byte(POW)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestPowZeroExponentReturnsOne(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH5), byte(PUSH0), byte(POW)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	v, _ := e.ResultStack()[0].Integer()
	if v.Int64() != 1 {
		t.Fatalf("5^0 = %v, want 1", v)
	}
}

func TestPowZeroBasePositiveExponentReturnsZero(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH0), byte(PUSH3), byte(POW)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	v, _ := e.ResultStack()[0].Integer()
	if v.Int64() != 0 {
		t.Fatalf("0^3 = %v, want 0", v)
	}
}

func TestConvertIntegerToBooleanZeroIsFalse(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH0), byte(CONVERT), byte(TypeBoolean)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	if e.ResultStack()[0].Boolean() {
		t.Fatalf("CONVERT(0, Boolean) should be false")
	}
}

func TestConvertIntegerToBooleanNonzeroIsTrue(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH5), byte(CONVERT), byte(TypeBoolean)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateHalt {
		t.Fatalf("state = %v (%v), want HALT", st, e.FaultException())
	}
	if !e.ResultStack()[0].Boolean() {
		t.Fatalf("CONVERT(5, Boolean) should be true")
	}
}

func TestPackCountExceedingDepthFaults(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH1), byte(PUSH5), byte(PACK)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestInsufficientGasFaults(t *testing.T) {
	e := newTestEngine(1)
	script := []byte{byte(PUSH1), byte(PUSH2), byte(ADD)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	if st := e.Execute(); st != StateFault {
		t.Fatalf("state = %v, want FAULT", st)
	}
}

func TestGasConservation(t *testing.T) {
	e := newTestEngine(1_000_000)
	script := []byte{byte(PUSH1), byte(PUSH2), byte(ADD)}
	if err := e.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	startLimit := e.gasLimit
	e.Execute()
	if e.GasConsumed()+e.GasLeft() != startLimit {
		t.Fatalf("gas_consumed + gas_left = %d, want %d", e.GasConsumed()+e.GasLeft(), startLimit)
	}
}
