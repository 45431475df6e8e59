package vm

import "errors"

func jumpTarget(ctx *ExecutionContext, op OpCode, baseIP int) int32 {
	if isLongJump(op) {
		return readI32(ctx)
	}
	return int32(readI8(ctx))
}

// isLongJump reports whether op uses the `_L` (i32 offset) encoding; by
// this engine's numbering every `_L` variant is the odd-numbered sibling
// immediately following its short form.
func isLongJump(op OpCode) bool {
	switch op {
	case JMP_L, JMPIF_L, JMPIFNOT_L, JMPEQ_L, JMPNE_L, JMPGT_L, JMPGE_L, JMPLT_L, JMPLE_L, TRY_L, ENDTRY_L, CALL_L:
		return true
	default:
		return false
	}
}

func (e *Engine) execJump(ctx *ExecutionContext, op OpCode) error {
	baseIP := ctx.IP - 1
	offset := jumpTarget(ctx, op, baseIP)

	cond := true
	switch op {
	case JMP, JMP_L:
		cond = true
	case JMPIF, JMPIF_L:
		v, err := popBool(ctx)
		if err != nil {
			return err
		}
		cond = v
	case JMPIFNOT, JMPIFNOT_L:
		v, err := popBool(ctx)
		if err != nil {
			return err
		}
		cond = !v
	case JMPEQ, JMPEQ_L, JMPNE, JMPNE_L, JMPGT, JMPGT_L, JMPGE, JMPGE_L, JMPLT, JMPLT_L, JMPLE, JMPLE_L:
		b, err := popInt(ctx)
		if err != nil {
			return err
		}
		a, err := popInt(ctx)
		if err != nil {
			return err
		}
		c := a.Cmp(b)
		switch op {
		case JMPEQ, JMPEQ_L:
			cond = c == 0
		case JMPNE, JMPNE_L:
			cond = c != 0
		case JMPGT, JMPGT_L:
			cond = c > 0
		case JMPGE, JMPGE_L:
			cond = c >= 0
		case JMPLT, JMPLT_L:
			cond = c < 0
		case JMPLE, JMPLE_L:
			cond = c <= 0
		}
	}
	if cond {
		ctx.IP = baseIP + int(offset)
	}
	return nil
}

func (e *Engine) execCall(ctx *ExecutionContext, op OpCode) error {
	baseIP := ctx.IP - 1
	offset := jumpTarget(ctx, op, baseIP)
	target := baseIP + int(offset)

	if len(e.invocation) >= e.Limits.MaxInvocationNesting {
		return errors.New("vm: exceeds max invocation nesting")
	}
	callee := newExecutionContext(ctx.Script, e.rc)
	callee.IP = target
	e.invocation = append(e.invocation, callee)
	return nil
}

// execTry implements TRY/TRY_L (§4.1.2): both catch_ip and finally_ip
// null is itself a FAULT at the TRY instruction.
func (e *Engine) execTry(ctx *ExecutionContext, op OpCode) error {
	baseIP := ctx.IP - 1
	var catchOff, finallyOff int32
	if isLongJump(op) {
		catchOff = readI32(ctx)
		finallyOff = readI32(ctx)
	} else {
		catchOff = int32(readI8(ctx))
		finallyOff = int32(readI8(ctx))
	}
	h := &ExceptionHandler{State: StateTry}
	if catchOff != 0 {
		h.HasCatch = true
		h.CatchIP = baseIP + int(catchOff)
	}
	if finallyOff != 0 {
		h.HasFinally = true
		h.FinallyIP = baseIP + int(finallyOff)
	}
	if !h.HasCatch && !h.HasFinally {
		return errors.New("vm: TRY requires a catch or finally target")
	}
	ctx.pushHandler(h)
	return nil
}

// execEndTry implements ENDTRY/ENDTRY_L: sets end_ip and enters Finally
// if present, else pops the frame and jumps to end_ip.
func (e *Engine) execEndTry(ctx *ExecutionContext, op OpCode) error {
	baseIP := ctx.IP - 1
	offset := jumpTarget(ctx, op, baseIP)
	endIP := baseIP + int(offset)

	h := ctx.topHandler()
	if h == nil {
		return errors.New("vm: ENDTRY without an active TRY")
	}
	h.EndIP = endIP
	if h.HasFinally && h.State != StateFinally {
		h.State = StateFinally
		ctx.IP = h.FinallyIP
		return nil
	}
	ctx.popHandler()
	ctx.IP = endIP
	return nil
}

// execEndFinally implements ENDFINALLY: pops the frame and either
// rethrows its pending exception or jumps to end_ip.
func (e *Engine) execEndFinally(ctx *ExecutionContext) error {
	h := ctx.popHandler()
	if h == nil {
		return errors.New("vm: ENDFINALLY without an active TRY")
	}
	if h.HasPending {
		e.throw(ctx, h.Pending)
		return nil
	}
	ctx.IP = h.EndIP
	return nil
}

// throw walks the frame stack per §4.1.2, innermost handler first, then
// outward into calling contexts, transitioning to FAULT if nothing
// catches.
func (e *Engine) throw(ctx *ExecutionContext, item StackItem) {
	cur := ctx
	idx := len(e.invocation) - 1
	for {
		for len(cur.Handlers) > 0 {
			h := cur.Handlers[len(cur.Handlers)-1]
			if h.State == StateTry && h.HasCatch {
				h.State = StateCatch
				if err := cur.Stack.push(item); err != nil {
					e.fault(err.Error())
					return
				}
				cur.IP = h.CatchIP
				return
			}
			if h.State != StateFinally && h.HasFinally {
				h.State = StateFinally
				h.Pending = item
				h.HasPending = true
				cur.IP = h.FinallyIP
				return
			}
			cur.Handlers = cur.Handlers[:len(cur.Handlers)-1]
		}
		idx--
		if idx < 0 {
			e.state = StateFault
			if b, ok := item.Bytes(); ok {
				e.err = errors.New(string(b))
			} else {
				e.err = errors.New("vm: unhandled exception")
			}
			return
		}
		e.invocation = e.invocation[:idx+1]
		cur = e.invocation[idx]
	}
}
