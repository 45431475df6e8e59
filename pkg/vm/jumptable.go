package vm

import (
	"errors"
	"math/big"
)

// dispatch executes a single decoded opcode against ctx. Operand bytes
// (jump offsets, slot indices, literal payloads) are consumed from
// ctx.Script via the read* helpers as part of each case, matching how a
// real bytecode interpreter advances its own IP per-operand.
func (e *Engine) dispatch(ctx *ExecutionContext, op OpCode) error {
	switch op {
	case PUSHINT8:
		return ctx.Stack.push(NewInteger(big.NewInt(int64(readI8(ctx)))))
	case PUSHINT16:
		v := int16(readU16(ctx))
		return ctx.Stack.push(NewInteger(big.NewInt(int64(v))))
	case PUSHINT32:
		return ctx.Stack.push(NewInteger(big.NewInt(int64(readI32(ctx)))))
	case PUSHINT64:
		b := readBytes(ctx, 8)
		return ctx.Stack.push(NewInteger(leSignedToBig(b)))
	case PUSHINT128:
		b := readBytes(ctx, 16)
		return ctx.Stack.push(NewInteger(leSignedToBig(b)))
	case PUSHINT256:
		b := readBytes(ctx, 32)
		v := leSignedToBig(b)
		if !InRange(v) {
			return errors.New("vm: PUSHINT256 literal out of range")
		}
		return ctx.Stack.push(NewInteger(v))
	case PUSHT:
		return ctx.Stack.push(Boolean(true))
	case PUSHF:
		return ctx.Stack.push(Boolean(false))
	case PUSHNULL:
		return ctx.Stack.push(Null{})
	case PUSHDATA1:
		n := int(readU8(ctx))
		if !e.spend(PayloadCost(n)) {
			return nil
		}
		return ctx.Stack.push(ByteString(readBytes(ctx, n)))
	case PUSHDATA2:
		n := int(readU16(ctx))
		if !e.spend(PayloadCost(n)) {
			return nil
		}
		return ctx.Stack.push(ByteString(readBytes(ctx, n)))
	case PUSHDATA4:
		n := int(readU32(ctx))
		if !e.spend(PayloadCost(n)) {
			return nil
		}
		return ctx.Stack.push(ByteString(readBytes(ctx, n)))
	case PUSHM1:
		return ctx.Stack.push(NewInteger(big.NewInt(-1)))
	case NOP:
		return nil

	default:
		switch {
		case op >= PUSH0 && op <= PUSH16:
			return ctx.Stack.push(NewInteger(big.NewInt(int64(op) - int64(PUSH0))))
		}
	}

	switch op {
	case JMP, JMP_L, JMPIF, JMPIF_L, JMPIFNOT, JMPIFNOT_L,
		JMPEQ, JMPEQ_L, JMPNE, JMPNE_L, JMPGT, JMPGT_L, JMPGE, JMPGE_L, JMPLT, JMPLT_L, JMPLE, JMPLE_L:
		return e.execJump(ctx, op)
	case CALL, CALL_L:
		return e.execCall(ctx, op)
	case RET:
		e.returnFromContext()
		return nil
	case THROW:
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		e.throw(ctx, it)
		return nil
	case ABORT:
		return errors.New("ABORT")
	case ABORTMSG:
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		b, _ := it.Bytes()
		return errors.New(string(b))
	case ASSERT:
		ok, err := popBool(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("vm: ASSERT failed")
		}
		return nil
	case ASSERTMSG:
		msg, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		ok, err := popBool(ctx)
		if err != nil {
			return err
		}
		if !ok {
			b, _ := msg.Bytes()
			return errors.New(string(b))
		}
		return nil
	case TRY, TRY_L:
		return e.execTry(ctx, op)
	case ENDTRY, ENDTRY_L:
		return e.execEndTry(ctx, op)
	case ENDFINALLY:
		return e.execEndFinally(ctx)
	case SYSCALL:
		return e.execSyscall(ctx)

	case DEPTH:
		return ctx.Stack.push(NewInteger(big.NewInt(int64(ctx.Stack.len()))))
	case DROP:
		_, err := ctx.Stack.pop()
		return err
	case NIP:
		_, err := ctx.Stack.remove(1)
		return err
	case XDROP:
		n, err := popInt(ctx)
		if err != nil {
			return err
		}
		_, err = ctx.Stack.remove(int(n.Int64()))
		return err
	case CLEAR:
		ctx.Stack.clear()
		return nil
	case DUP:
		it, err := ctx.Stack.peek(0)
		if err != nil {
			return err
		}
		return ctx.Stack.push(it)
	case OVER:
		it, err := ctx.Stack.peek(1)
		if err != nil {
			return err
		}
		return ctx.Stack.push(it)
	case PICK:
		n, err := popInt(ctx)
		if err != nil {
			return err
		}
		it, err := ctx.Stack.peek(int(n.Int64()))
		if err != nil {
			return err
		}
		return ctx.Stack.push(it)
	case TUCK:
		it, err := ctx.Stack.peek(0)
		if err != nil {
			return err
		}
		return ctx.Stack.insert(2, it)
	case SWAP:
		return swapTop(ctx, 0, 1)
	case ROT:
		a, err := ctx.Stack.remove(2)
		if err != nil {
			return err
		}
		return ctx.Stack.push(a)
	case ROLL:
		n, err := popInt(ctx)
		if err != nil {
			return err
		}
		it, err := ctx.Stack.remove(int(n.Int64()))
		if err != nil {
			return err
		}
		return ctx.Stack.push(it)
	case REVERSE3:
		return reverseTop(ctx, 3)
	case REVERSE4:
		return reverseTop(ctx, 4)
	case REVERSEN:
		n, err := popInt(ctx)
		if err != nil {
			return err
		}
		return reverseTop(ctx, int(n.Int64()))

	case INITSSLOT:
		n := int(readU8(ctx))
		ctx.StaticFields = make([]StackItem, n)
		for i := range ctx.StaticFields {
			ctx.StaticFields[i] = Null{}
		}
		return nil
	case INITSLOT:
		locals := int(readU8(ctx))
		args := int(readU8(ctx))
		ctx.LocalVars = make([]StackItem, locals)
		for i := range ctx.LocalVars {
			ctx.LocalVars[i] = Null{}
		}
		ctx.Arguments = make([]StackItem, args)
		for i := args - 1; i >= 0; i-- {
			it, err := ctx.Stack.pop()
			if err != nil {
				return err
			}
			ctx.Arguments[i] = it
		}
		return nil

	case ADD, SUB, MUL, DIV, MOD, POW, SHL, SHR, AND, OR, XOR,
		BOOLAND, BOOLOR, NUMEQUAL, NUMNOTEQUAL, LT, LE, GT, GE, MIN, MAX:
		return e.execBinary(ctx, op)
	case NEGATE, ABS, SIGN, INC, DEC, NOT, NZ, INVERT, SQRT:
		return e.execUnary(ctx, op)
	case EQUAL, NOTEQUAL:
		b, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		a, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		eq := a.Equals(b)
		if op == NOTEQUAL {
			eq = !eq
		}
		return ctx.Stack.push(Boolean(eq))
	case WITHIN:
		return e.execWithin(ctx)
	case MODMUL:
		return e.execModMul(ctx)
	case MODPOW:
		return e.execModPow(ctx)

	case PACK:
		return e.execPack(ctx, false)
	case PACKSTRUCT:
		return e.execPack(ctx, true)
	case PACKMAP:
		return e.execPackMap(ctx)
	case UNPACK:
		return e.execUnpack(ctx)
	case NEWARRAY0:
		return ctx.Stack.push(&Array{})
	case NEWARRAY, NEWARRAY_T:
		return e.execNewArray(ctx, false)
	case NEWSTRUCT0:
		return ctx.Stack.push(&Struct{})
	case NEWSTRUCT:
		return e.execNewArray(ctx, true)
	case NEWMAP:
		return ctx.Stack.push(NewMap())
	case SIZE:
		return e.execSize(ctx)
	case HASKEY:
		return e.execHasKey(ctx)
	case KEYS:
		return e.execKeys(ctx)
	case VALUES:
		return e.execValues(ctx)
	case PICKITEM:
		return e.execPickItem(ctx)
	case APPEND:
		return e.execAppend(ctx)
	case SETITEM:
		return e.execSetItem(ctx)
	case REMOVE:
		return e.execRemove(ctx)
	case CLEARITEMS:
		return e.execClearItems(ctx)
	case REVERSEITEMS:
		return e.execReverseItems(ctx)
	case POPITEM:
		return e.execPopItem(ctx)

	case NEWBUFFER:
		n, err := popInt(ctx)
		if err != nil {
			return err
		}
		size := int(n.Int64())
		if !e.spend(PayloadCost(size)) {
			return nil
		}
		return ctx.Stack.push(Buffer(make([]byte, size)))
	case CAT:
		return e.execCat(ctx)
	case SUBSTR:
		return e.execSubstr(ctx)
	case LEFT:
		return e.execLeftRight(ctx, true)
	case RIGHT:
		return e.execLeftRight(ctx, false)

	case ISNULL:
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		_, isNull := it.(Null)
		return ctx.Stack.push(Boolean(isNull))
	case ISTYPE:
		t := ItemType(readU8(ctx))
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		return ctx.Stack.push(Boolean(it.Type() == t))
	case CONVERT:
		t := ItemType(readU8(ctx))
		if !e.spend(PayloadCost(1)) {
			return nil
		}
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		converted, err := convertItem(it, t)
		if err != nil {
			return err
		}
		return ctx.Stack.push(converted)

	default:
		if isSlotOpcode(op) {
			return e.execSlot(ctx, op)
		}
		return errors.New("vm: invalid opcode")
	}
}

func leSignedToBig(b []byte) *big.Int {
	be := reverseBytes(b)
	v := new(big.Int).SetBytes(be)
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		// two's complement: subtract 2^(8*len)
		full := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, full)
	}
	return v
}

func swapTop(ctx *ExecutionContext, i, j int) error {
	a, err := ctx.Stack.remove(j)
	if err != nil {
		return err
	}
	b, err := ctx.Stack.remove(i)
	if err != nil {
		return err
	}
	if err := ctx.Stack.push(a); err != nil {
		return err
	}
	return ctx.Stack.push(b)
}

func reverseTop(ctx *ExecutionContext, n int) error {
	if n < 2 {
		return nil
	}
	items := make([]StackItem, n)
	for i := 0; i < n; i++ {
		it, err := ctx.Stack.remove(0)
		if err != nil {
			return err
		}
		items[i] = it
	}
	for _, it := range items {
		if err := ctx.Stack.push(it); err != nil {
			return err
		}
	}
	return nil
}
