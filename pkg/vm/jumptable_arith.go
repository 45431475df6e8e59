package vm

import (
	"errors"
	"math/big"
)

func checkRange(v *big.Int) (*big.Int, error) {
	if !InRange(v) {
		return nil, errors.New("vm: integer result out of 256-bit range")
	}
	return v, nil
}

func (e *Engine) execBinary(ctx *ExecutionContext, op OpCode) error {
	switch op {
	case BOOLAND, BOOLOR:
		b, err := popBool(ctx)
		if err != nil {
			return err
		}
		a, err := popBool(ctx)
		if err != nil {
			return err
		}
		var r bool
		if op == BOOLAND {
			r = a && b
		} else {
			r = a || b
		}
		return ctx.Stack.push(Boolean(r))
	}

	b, err := popInt(ctx)
	if err != nil {
		return err
	}
	a, err := popInt(ctx)
	if err != nil {
		return err
	}

	switch op {
	case ADD:
		v, err := checkRange(new(big.Int).Add(a, b))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case SUB:
		v, err := checkRange(new(big.Int).Sub(a, b))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case MUL:
		v, err := checkRange(new(big.Int).Mul(a, b))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case DIV:
		if b.Sign() == 0 {
			return errors.New("vm: division by zero")
		}
		v, err := checkRange(new(big.Int).Quo(a, b))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case MOD:
		if b.Sign() == 0 {
			return errors.New("vm: modulo by zero")
		}
		return ctx.Stack.push(NewInteger(new(big.Int).Rem(a, b)))
	case POW:
		if b.Sign() < 0 {
			return errors.New("vm: negative exponent")
		}
		if b.Sign() == 0 {
			return ctx.Stack.push(NewInteger(big.NewInt(1)))
		}
		if a.Sign() == 0 {
			return ctx.Stack.push(NewInteger(big.NewInt(0)))
		}
		v, err := checkRange(new(big.Int).Exp(a, b, nil))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case SHL:
		if b.Sign() < 0 || b.Cmp(big.NewInt(256)) > 0 {
			return errors.New("vm: shift out of range")
		}
		v, err := checkRange(new(big.Int).Lsh(a, uint(b.Int64())))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case SHR:
		if b.Sign() < 0 || b.Cmp(big.NewInt(256)) > 0 {
			return errors.New("vm: shift out of range")
		}
		return ctx.Stack.push(NewInteger(new(big.Int).Rsh(a, uint(b.Int64()))))
	case AND:
		return ctx.Stack.push(NewInteger(new(big.Int).And(a, b)))
	case OR:
		return ctx.Stack.push(NewInteger(new(big.Int).Or(a, b)))
	case XOR:
		return ctx.Stack.push(NewInteger(new(big.Int).Xor(a, b)))
	case NUMEQUAL:
		return ctx.Stack.push(Boolean(a.Cmp(b) == 0))
	case NUMNOTEQUAL:
		return ctx.Stack.push(Boolean(a.Cmp(b) != 0))
	case LT:
		return ctx.Stack.push(Boolean(a.Cmp(b) < 0))
	case LE:
		return ctx.Stack.push(Boolean(a.Cmp(b) <= 0))
	case GT:
		return ctx.Stack.push(Boolean(a.Cmp(b) > 0))
	case GE:
		return ctx.Stack.push(Boolean(a.Cmp(b) >= 0))
	case MIN:
		if a.Cmp(b) < 0 {
			return ctx.Stack.push(NewInteger(a))
		}
		return ctx.Stack.push(NewInteger(b))
	case MAX:
		if a.Cmp(b) > 0 {
			return ctx.Stack.push(NewInteger(a))
		}
		return ctx.Stack.push(NewInteger(b))
	}
	return errors.New("vm: unhandled binary opcode")
}

func (e *Engine) execUnary(ctx *ExecutionContext, op OpCode) error {
	if op == NOT {
		v, err := popBool(ctx)
		if err != nil {
			return err
		}
		return ctx.Stack.push(Boolean(!v))
	}
	if op == NZ {
		a, err := popInt(ctx)
		if err != nil {
			return err
		}
		return ctx.Stack.push(Boolean(a.Sign() != 0))
	}

	a, err := popInt(ctx)
	if err != nil {
		return err
	}
	switch op {
	case NEGATE:
		v, err := checkRange(new(big.Int).Neg(a))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case ABS:
		v, err := checkRange(new(big.Int).Abs(a))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case SIGN:
		return ctx.Stack.push(NewInteger(big.NewInt(int64(a.Sign()))))
	case INC:
		v, err := checkRange(new(big.Int).Add(a, big.NewInt(1)))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case DEC:
		v, err := checkRange(new(big.Int).Sub(a, big.NewInt(1)))
		if err != nil {
			return err
		}
		return ctx.Stack.push(NewInteger(v))
	case INVERT:
		return ctx.Stack.push(NewInteger(new(big.Int).Not(a)))
	case SQRT:
		if a.Sign() < 0 {
			return errors.New("vm: SQRT of negative integer")
		}
		return ctx.Stack.push(NewInteger(new(big.Int).Sqrt(a)))
	}
	return errors.New("vm: unhandled unary opcode")
}

func (e *Engine) execWithin(ctx *ExecutionContext) error {
	b, err := popInt(ctx)
	if err != nil {
		return err
	}
	a, err := popInt(ctx)
	if err != nil {
		return err
	}
	x, err := popInt(ctx)
	if err != nil {
		return err
	}
	return ctx.Stack.push(Boolean(x.Cmp(a) >= 0 && x.Cmp(b) < 0))
}

func (e *Engine) execModMul(ctx *ExecutionContext) error {
	m, err := popInt(ctx)
	if err != nil {
		return err
	}
	b, err := popInt(ctx)
	if err != nil {
		return err
	}
	a, err := popInt(ctx)
	if err != nil {
		return err
	}
	if m.Sign() == 0 {
		return errors.New("vm: modulo by zero")
	}
	return ctx.Stack.push(NewInteger(new(big.Int).Mod(new(big.Int).Mul(a, b), m)))
}

func (e *Engine) execModPow(ctx *ExecutionContext) error {
	m, err := popInt(ctx)
	if err != nil {
		return err
	}
	b, err := popInt(ctx)
	if err != nil {
		return err
	}
	a, err := popInt(ctx)
	if err != nil {
		return err
	}
	if m.Sign() == 0 {
		return errors.New("vm: modulo by zero")
	}
	if b.Sign() < 0 {
		return errors.New("vm: negative exponent")
	}
	return ctx.Stack.push(NewInteger(new(big.Int).Exp(a, b, m)))
}
