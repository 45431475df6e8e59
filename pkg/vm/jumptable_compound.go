package vm

import "errors"

func (e *Engine) execSyscall(ctx *ExecutionContext) error {
	id := readU32(ctx)
	d, ok := e.syscalls[id]
	if !ok {
		return errors.New("vm: unknown syscall")
	}
	if !e.spend(d.Price) {
		return nil
	}
	return d.Handler(e)
}

func (e *Engine) execPack(ctx *ExecutionContext, asStruct bool) error {
	n, err := popInt(ctx)
	if err != nil {
		return err
	}
	count := int(n.Int64())
	if count < 0 || count > ctx.Stack.len() {
		return errors.New("vm: PACK count exceeds stack depth")
	}
	items := make([]StackItem, count)
	for i := count - 1; i >= 0; i-- {
		it, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		items[i] = it
	}
	if asStruct {
		return ctx.Stack.push(&Struct{Items: items})
	}
	return ctx.Stack.push(&Array{Items: items})
}

func (e *Engine) execPackMap(ctx *ExecutionContext) error {
	n, err := popInt(ctx)
	if err != nil {
		return err
	}
	count := int(n.Int64())
	m := NewMap()
	for i := 0; i < count; i++ {
		v, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		k, err := ctx.Stack.pop()
		if err != nil {
			return err
		}
		if err := m.Set(k, v); err != nil {
			return err
		}
	}
	return ctx.Stack.push(m)
}

func (e *Engine) execUnpack(ctx *ExecutionContext) error {
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	items, err := itemsOf(it)
	if err != nil {
		return err
	}
	for i := len(items) - 1; i >= 0; i-- {
		if err := ctx.Stack.push(items[i]); err != nil {
			return err
		}
	}
	return ctx.Stack.push(integerFromInt(len(items)))
}

func (e *Engine) execNewArray(ctx *ExecutionContext, asStruct bool) error {
	n, err := popInt(ctx)
	if err != nil {
		return err
	}
	count := int(n.Int64())
	items := make([]StackItem, count)
	for i := range items {
		items[i] = Null{}
	}
	if asStruct {
		return ctx.Stack.push(&Struct{Items: items})
	}
	return ctx.Stack.push(&Array{Items: items})
}

func itemsOf(it StackItem) ([]StackItem, error) {
	switch v := it.(type) {
	case *Array:
		return v.Items, nil
	case *Struct:
		return v.Items, nil
	default:
		return nil, errors.New("vm: expected Array or Struct")
	}
}

func (e *Engine) execSize(ctx *ExecutionContext) error {
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := it.(type) {
	case *Array:
		return ctx.Stack.push(integerFromInt(len(v.Items)))
	case *Struct:
		return ctx.Stack.push(integerFromInt(len(v.Items)))
	case *Map:
		return ctx.Stack.push(integerFromInt(v.Len()))
	case ByteString:
		return ctx.Stack.push(integerFromInt(len(v)))
	case Buffer:
		return ctx.Stack.push(integerFromInt(len(v)))
	default:
		return errors.New("vm: SIZE not supported for this type")
	}
}

func (e *Engine) execHasKey(ctx *ExecutionContext) error {
	key, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Map:
		_, ok := v.Get(key)
		return ctx.Stack.push(Boolean(ok))
	case *Array:
		idx, ok := key.Integer()
		if !ok {
			return errors.New("vm: HASKEY index must be Integer")
		}
		i := int(idx.Int64())
		return ctx.Stack.push(Boolean(i >= 0 && i < len(v.Items)))
	case *Struct:
		idx, ok := key.Integer()
		if !ok {
			return errors.New("vm: HASKEY index must be Integer")
		}
		i := int(idx.Int64())
		return ctx.Stack.push(Boolean(i >= 0 && i < len(v.Items)))
	}
	return errors.New("vm: HASKEY not supported for this type")
}

func (e *Engine) execKeys(ctx *ExecutionContext) error {
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	m, ok := it.(*Map)
	if !ok {
		return errors.New("vm: KEYS requires a Map")
	}
	return ctx.Stack.push(&Array{Items: m.Keys()})
}

func (e *Engine) execValues(ctx *ExecutionContext) error {
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := it.(type) {
	case *Map:
		return ctx.Stack.push(&Array{Items: v.Values()})
	case *Array:
		cpy := append([]StackItem(nil), v.Items...)
		return ctx.Stack.push(&Array{Items: cpy})
	}
	return errors.New("vm: VALUES not supported for this type")
}

func (e *Engine) execPickItem(ctx *ExecutionContext) error {
	key, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Map:
		val, ok := v.Get(key)
		if !ok {
			return errors.New("vm: key not found in Map")
		}
		return ctx.Stack.push(val)
	case *Array:
		i, err := indexOf(key, len(v.Items))
		if err != nil {
			return err
		}
		return ctx.Stack.push(v.Items[i])
	case *Struct:
		i, err := indexOf(key, len(v.Items))
		if err != nil {
			return err
		}
		return ctx.Stack.push(v.Items[i])
	case ByteString:
		i, err := indexOf(key, len(v))
		if err != nil {
			return err
		}
		return ctx.Stack.push(integerFromInt(int(v[i])))
	case Buffer:
		i, err := indexOf(key, len(v))
		if err != nil {
			return err
		}
		return ctx.Stack.push(integerFromInt(int(v[i])))
	}
	return errors.New("vm: PICKITEM not supported for this type")
}

func indexOf(key StackItem, length int) (int, error) {
	v, ok := key.Integer()
	if !ok {
		return 0, errors.New("vm: index must be Integer")
	}
	i := int(v.Int64())
	if i < 0 || i >= length {
		return 0, errors.New("vm: index out of range")
	}
	return i, nil
}

func (e *Engine) execAppend(ctx *ExecutionContext) error {
	val, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Array:
		v.Items = append(v.Items, val)
		return e.rc.Add(1)
	case *Struct:
		v.Items = append(v.Items, val)
		return e.rc.Add(1)
	}
	return errors.New("vm: APPEND requires an Array or Struct")
}

func (e *Engine) execSetItem(ctx *ExecutionContext) error {
	val, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	key, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Map:
		return v.Set(key, val)
	case *Array:
		i, err := indexOf(key, len(v.Items))
		if err != nil {
			return err
		}
		v.Items[i] = val
		return nil
	case *Struct:
		i, err := indexOf(key, len(v.Items))
		if err != nil {
			return err
		}
		v.Items[i] = val
		return nil
	}
	return errors.New("vm: SETITEM not supported for this type")
}

func (e *Engine) execRemove(ctx *ExecutionContext) error {
	key, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Map:
		v.Delete(key)
		return nil
	case *Array:
		i, err := indexOf(key, len(v.Items))
		if err != nil {
			return err
		}
		v.Items = append(v.Items[:i], v.Items[i+1:]...)
		e.rc.Remove(1)
		return nil
	}
	return errors.New("vm: REMOVE not supported for this type")
}

func (e *Engine) execClearItems(ctx *ExecutionContext) error {
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Array:
		e.rc.Remove(len(v.Items))
		v.Items = nil
	case *Struct:
		e.rc.Remove(len(v.Items))
		v.Items = nil
	case *Map:
		e.rc.Remove(v.Len())
		v.entries = nil
	default:
		return errors.New("vm: CLEARITEMS not supported for this type")
	}
	return nil
}

func (e *Engine) execReverseItems(ctx *ExecutionContext) error {
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	items, err := itemsOf(coll)
	if err != nil {
		return err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return nil
}

func (e *Engine) execPopItem(ctx *ExecutionContext) error {
	coll, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	switch v := coll.(type) {
	case *Array:
		if len(v.Items) == 0 {
			return errors.New("vm: POPITEM on empty Array")
		}
		last := v.Items[len(v.Items)-1]
		v.Items = v.Items[:len(v.Items)-1]
		e.rc.Remove(1)
		return ctx.Stack.push(last)
	case *Struct:
		if len(v.Items) == 0 {
			return errors.New("vm: POPITEM on empty Struct")
		}
		last := v.Items[len(v.Items)-1]
		v.Items = v.Items[:len(v.Items)-1]
		e.rc.Remove(1)
		return ctx.Stack.push(last)
	}
	return errors.New("vm: POPITEM not supported for this type")
}

func (e *Engine) execCat(ctx *ExecutionContext) error {
	b, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	a, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	ab, ok := a.Bytes()
	if !ok {
		return errors.New("vm: CAT requires byte-like operands")
	}
	bb, ok := b.Bytes()
	if !ok {
		return errors.New("vm: CAT requires byte-like operands")
	}
	if !e.spend(PayloadCost(len(ab) + len(bb))) {
		return nil
	}
	return ctx.Stack.push(Buffer(append(append([]byte(nil), ab...), bb...)))
}

func (e *Engine) execSubstr(ctx *ExecutionContext) error {
	count, err := popInt(ctx)
	if err != nil {
		return err
	}
	index, err := popInt(ctx)
	if err != nil {
		return err
	}
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	b, ok := it.Bytes()
	if !ok {
		return errors.New("vm: SUBSTR requires a byte-like operand")
	}
	i, n := int(index.Int64()), int(count.Int64())
	if i < 0 || n < 0 || i+n > len(b) {
		return errors.New("vm: SUBSTR out of range")
	}
	return ctx.Stack.push(Buffer(append([]byte(nil), b[i:i+n]...)))
}

func (e *Engine) execLeftRight(ctx *ExecutionContext, left bool) error {
	count, err := popInt(ctx)
	if err != nil {
		return err
	}
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	b, ok := it.Bytes()
	if !ok {
		return errors.New("vm: LEFT/RIGHT requires a byte-like operand")
	}
	n := int(count.Int64())
	if n < 0 || n > len(b) {
		return errors.New("vm: LEFT/RIGHT out of range")
	}
	if left {
		return ctx.Stack.push(Buffer(append([]byte(nil), b[:n]...)))
	}
	return ctx.Stack.push(Buffer(append([]byte(nil), b[len(b)-n:]...)))
}

// isSlotOpcode reports whether op is one of the dedicated-index slot
// load/store opcodes (LDSFLD0..6/LDSFLD, STSFLD0..6/STSFLD, etc).
func isSlotOpcode(op OpCode) bool {
	return (op >= LDSFLD0 && op <= STARG)
}

func (e *Engine) execSlot(ctx *ExecutionContext, op OpCode) error {
	switch {
	case op >= LDSFLD0 && op < LDSFLD:
		return loadSlot(ctx, ctx.StaticFields, int(op-LDSFLD0))
	case op == LDSFLD:
		return loadSlot(ctx, ctx.StaticFields, int(readU8(ctx)))
	case op >= STSFLD0 && op < STSFLD:
		return storeSlot(ctx, ctx.StaticFields, int(op-STSFLD0))
	case op == STSFLD:
		return storeSlot(ctx, ctx.StaticFields, int(readU8(ctx)))
	case op >= LDLOC0 && op < LDLOC:
		return loadSlot(ctx, ctx.LocalVars, int(op-LDLOC0))
	case op == LDLOC:
		return loadSlot(ctx, ctx.LocalVars, int(readU8(ctx)))
	case op >= STLOC0 && op < STLOC:
		return storeSlot(ctx, ctx.LocalVars, int(op-STLOC0))
	case op == STLOC:
		return storeSlot(ctx, ctx.LocalVars, int(readU8(ctx)))
	case op >= LDARG0 && op < LDARG:
		return loadSlot(ctx, ctx.Arguments, int(op-LDARG0))
	case op == LDARG:
		return loadSlot(ctx, ctx.Arguments, int(readU8(ctx)))
	case op >= STARG0 && op < STARG:
		return storeSlot(ctx, ctx.Arguments, int(op-STARG0))
	case op == STARG:
		return storeSlot(ctx, ctx.Arguments, int(readU8(ctx)))
	}
	return errors.New("vm: invalid opcode")
}

func loadSlot(ctx *ExecutionContext, slots []StackItem, idx int) error {
	if idx < 0 || idx >= len(slots) {
		return errors.New("vm: slot index out of range")
	}
	return ctx.Stack.push(slots[idx])
}

func storeSlot(ctx *ExecutionContext, slots []StackItem, idx int) error {
	if idx < 0 || idx >= len(slots) {
		return errors.New("vm: slot index out of range")
	}
	it, err := ctx.Stack.pop()
	if err != nil {
		return err
	}
	slots[idx] = it
	return nil
}
