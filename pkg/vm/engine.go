package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// State is the final or current execution state (§4.1).
type State int

const (
	StateNone State = iota
	StateHalt
	StateFault
	StateBreak
)

func (s State) String() string {
	switch s {
	case StateHalt:
		return "HALT"
	case StateFault:
		return "FAULT"
	case StateBreak:
		return "BREAK"
	default:
		return "NONE"
	}
}

// Limits are an engine's immutable resource bounds (§4.1.5).
type Limits struct {
	MaxScriptLength     int
	MaxItemSize         int
	MaxStackSize        int
	MaxInvocationNesting int
}

// DefaultLimits mirror Neo N3 mainnet's protocol constants.
var DefaultLimits = Limits{
	MaxScriptLength:      1024 * 1024,
	MaxItemSize:           1024 * 1024,
	MaxStackSize:          2 * 1024,
	MaxInvocationNesting:  1024,
}

// InteropHandler implements one SYSCALL entry (§4.4): host-provided
// services (pkg/ledger's) register these against the engine's syscall
// table.
type InteropHandler func(e *Engine) error

// InteropDescriptor pairs a handler with its fixed gas price.
type InteropDescriptor struct {
	Handler InteropHandler
	Price   int64
}

// Engine is the stack virtual machine (§4.1): an invocation stack of
// ExecutionContexts, a result stack populated on HALT, gas accounting,
// and a syscall dispatcher.
type Engine struct {
	Limits Limits

	invocation []*ExecutionContext
	result     []StackItem

	state State
	err   error

	gasLimit    int64
	gasConsumed int64

	rc *RefCounter

	syscalls map[uint32]InteropDescriptor

	// Context is an opaque carrier for host-level data (the current
	// block/transaction/trigger) that native-contract syscalls need;
	// pkg/ledger populates it before Execute.
	Context interface{}
}

// NewEngine builds an Engine with the given gas budget and limits.
func NewEngine(gasLimit int64, limits Limits) *Engine {
	e := &Engine{
		Limits:   limits,
		gasLimit: gasLimit,
		syscalls: make(map[uint32]InteropDescriptor),
	}
	e.rc = NewRefCounter(limits.MaxStackSize)
	return e
}

// RegisterSyscall adds an interop service under its 4-byte name hash.
func (e *Engine) RegisterSyscall(id uint32, h InteropHandler, price int64) {
	e.syscalls[id] = InteropDescriptor{Handler: h, Price: price}
}

// GasConsumed and GasLeft report the engine's current gas accounting
// (§8.1 Property 6: their sum is invariant across one Execute).
func (e *Engine) GasConsumed() int64 { return e.gasConsumed }
func (e *Engine) GasLeft() int64     { return e.gasLimit - e.gasConsumed }

// State returns the engine's final or in-progress VM state.
func (e *Engine) State() State { return e.state }

// FaultException returns the human-readable FAULT reason, if any.
func (e *Engine) FaultException() error { return e.err }

// ResultStack returns the items left behind on HALT.
func (e *Engine) ResultStack() []StackItem { return e.result }

// Pop and Push let a registered InteropHandler manipulate the currently
// executing context's evaluation stack — the same primitive SYSCALL
// opcodes use internally, exposed so host-provided syscalls (those
// pkg/ledger registers) can read their arguments and return a result.
func (e *Engine) Pop() (StackItem, error) {
	ctx := e.current()
	if ctx == nil {
		return nil, ErrStackUnderflow
	}
	return ctx.Stack.pop()
}

func (e *Engine) Push(it StackItem) error {
	ctx := e.current()
	if ctx == nil {
		return errors.New("vm: no active context")
	}
	return ctx.Stack.push(it)
}

// LoadScript pushes a new context executing script onto the invocation
// stack, enforcing max_script_length and max_invocation_nesting.
func (e *Engine) LoadScript(script []byte) error {
	if len(script) > e.Limits.MaxScriptLength {
		return errors.New("vm: script exceeds max length")
	}
	if len(e.invocation) >= e.Limits.MaxInvocationNesting {
		return errors.New("vm: exceeds max invocation nesting")
	}
	ctx := newExecutionContext(script, e.rc)
	e.invocation = append(e.invocation, ctx)
	return nil
}

func (e *Engine) current() *ExecutionContext {
	if len(e.invocation) == 0 {
		return nil
	}
	return e.invocation[len(e.invocation)-1]
}

func (e *Engine) fault(reason string) {
	e.state = StateFault
	e.err = errors.New(reason)
}

func (e *Engine) faultf(format string, args ...interface{}) {
	e.fault(fmt.Sprintf(format, args...))
}

// Execute runs the loaded script(s) to completion, returning the final
// VM state. gas_consumed never decreases (§8.1 Property 6); an empty
// script HALTs immediately with zero gas consumed (§8.3 Scenario 1).
func (e *Engine) Execute() State {
	if e.state == StateNone && len(e.invocation) == 0 {
		e.state = StateHalt
		return e.state
	}
	e.state = StateNone
	for e.state == StateNone {
		ctx := e.current()
		if ctx == nil {
			e.state = StateHalt
			break
		}
		if ctx.IP >= len(ctx.Script) {
			e.returnFromContext()
			continue
		}
		e.step(ctx)
	}
	if e.state == StateHalt {
		if top := e.current(); top == nil {
			// result stack already captured at the final RET
		}
	}
	return e.state
}

// returnFromContext pops the finished top context, moving its stack to
// the result stack if it was the last frame, or otherwise moving its top
// item, if any, onto the caller's stack.
func (e *Engine) returnFromContext() {
	ctx := e.invocation[len(e.invocation)-1]
	e.invocation = e.invocation[:len(e.invocation)-1]
	if len(e.invocation) == 0 {
		e.result = append([]StackItem(nil), ctx.Stack.items...)
		e.state = StateHalt
		return
	}
	caller := e.current()
	if ctx.Stack.len() > 0 {
		v, _ := ctx.Stack.pop()
		if err := caller.Stack.push(v); err != nil {
			e.fault(err.Error())
		}
	}
}

func (e *Engine) spend(cost int64) bool {
	if e.gasLimit >= 0 && e.gasConsumed+cost > e.gasLimit {
		e.fault("Insufficient gas")
		return false
	}
	e.gasConsumed += cost
	return true
}

// step decodes and executes the single instruction at ctx.IP.
func (e *Engine) step(ctx *ExecutionContext) {
	op := OpCode(ctx.Script[ctx.IP])
	if !e.spend(BaseCost(op)) {
		return
	}
	ctx.IP++
	if err := e.dispatch(ctx, op); err != nil {
		e.throw(ctx, wrapFault(err))
	}
}

// wrapFault converts a Go error from a handler into the stack item
// THROW/exception machinery expects to carry.
func wrapFault(err error) StackItem {
	return ByteString([]byte(err.Error()))
}

func readI8(ctx *ExecutionContext) int8 {
	v := int8(ctx.Script[ctx.IP])
	ctx.IP++
	return v
}
func readI32(ctx *ExecutionContext) int32 {
	v := int32(binary.LittleEndian.Uint32(ctx.Script[ctx.IP:]))
	ctx.IP += 4
	return v
}
func readU8(ctx *ExecutionContext) uint8 {
	v := ctx.Script[ctx.IP]
	ctx.IP++
	return v
}
func readU16(ctx *ExecutionContext) uint16 {
	v := binary.LittleEndian.Uint16(ctx.Script[ctx.IP:])
	ctx.IP += 2
	return v
}
func readU32(ctx *ExecutionContext) uint32 {
	v := binary.LittleEndian.Uint32(ctx.Script[ctx.IP:])
	ctx.IP += 4
	return v
}
func readBytes(ctx *ExecutionContext, n int) []byte {
	b := ctx.Script[ctx.IP : ctx.IP+n]
	ctx.IP += n
	return b
}

// popInt pops the top item and requires it convert to Integer,
// faulting the engine otherwise.
func popInt(ctx *ExecutionContext) (*big.Int, error) {
	it, err := ctx.Stack.pop()
	if err != nil {
		return nil, err
	}
	v, ok := it.Integer()
	if !ok {
		return nil, errors.New("vm: expected Integer")
	}
	return v, nil
}

func popBool(ctx *ExecutionContext) (bool, error) {
	it, err := ctx.Stack.pop()
	if err != nil {
		return false, err
	}
	return it.Boolean(), nil
}
