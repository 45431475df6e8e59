package vm

// GasFactor scales fixed-point gas costs to the smallest unit, matching
// Fixed8's 10^8 scale (§3.1) so gas and GAS-token amounts share a unit.
const GasFactor = 1_0000_0000

// baseCost is the fixed per-opcode cost table of §4.1.3. Unlisted
// opcodes default to opBaseDefault.
var baseCost = map[OpCode]int64{
	PUSHINT8: 1 << 0, PUSHINT16: 1 << 0, PUSHINT32: 1 << 0,
	PUSHINT64: 1 << 0, PUSHINT128: 1 << 2, PUSHINT256: 1 << 2,
	PUSHT: 1 << 0, PUSHF: 1 << 0, PUSHA: 1 << 2, PUSHNULL: 1 << 0,
	PUSHM1: 1 << 0,
	NOP:    1 << 0,
	JMP: 1 << 1, JMP_L: 1 << 1,
	JMPIF: 1 << 1, JMPIF_L: 1 << 1, JMPIFNOT: 1 << 1, JMPIFNOT_L: 1 << 1,
	CALL: 1 << 9, CALL_L: 1 << 9, CALLA: 1 << 9, CALLT: 1 << 15,
	ABORT: 0, ASSERT: 1 << 0, THROW: 1 << 9,
	TRY: 1 << 1, TRY_L: 1 << 1, ENDTRY: 1 << 1, ENDTRY_L: 1 << 1, ENDFINALLY: 1 << 1,
	RET: 0, SYSCALL: 0,
	DEPTH: 1 << 1, DROP: 1 << 1, NIP: 1 << 1, XDROP: 1 << 4, CLEAR: 1 << 4,
	DUP: 1 << 1, OVER: 1 << 1, PICK: 1 << 1, TUCK: 1 << 1, SWAP: 1 << 1,
	ROT: 1 << 1, ROLL: 1 << 4, REVERSE3: 1 << 1, REVERSE4: 1 << 1, REVERSEN: 1 << 4,
	INITSSLOT: 1 << 4, INITSLOT: 1 << 6,
	ADD: 1 << 3, SUB: 1 << 3, MUL: 1 << 3, DIV: 1 << 3, MOD: 1 << 3,
	POW: 1 << 6, SQRT: 1 << 6, MODMUL: 1 << 5, MODPOW: 1 << 11,
	SHL: 1 << 3, SHR: 1 << 3, NOT: 1 << 1, BOOLAND: 1 << 1, BOOLOR: 1 << 1,
	NZ: 1 << 1, NUMEQUAL: 1 << 1, NUMNOTEQUAL: 1 << 1,
	LT: 1 << 3, LE: 1 << 3, GT: 1 << 3, GE: 1 << 3,
	MIN: 1 << 3, MAX: 1 << 3, WITHIN: 1 << 3,
	AND: 1 << 3, OR: 1 << 3, XOR: 1 << 3, INVERT: 1 << 2,
	EQUAL: 1 << 5, NOTEQUAL: 1 << 5, SIGN: 1 << 2, ABS: 1 << 2,
	NEGATE: 1 << 2, INC: 1 << 2, DEC: 1 << 2,
	PACK: 1 << 11, UNPACK: 1 << 11, PACKMAP: 1 << 11, PACKSTRUCT: 1 << 11,
	NEWARRAY0: 1 << 4, NEWARRAY: 1 << 9, NEWARRAY_T: 1 << 9,
	NEWSTRUCT0: 1 << 4, NEWSTRUCT: 1 << 9, NEWMAP: 1 << 3,
	SIZE: 1 << 2, HASKEY: 1 << 6, KEYS: 1 << 4, VALUES: 1 << 13,
	PICKITEM: 1 << 6, APPEND: 1 << 13, SETITEM: 1 << 13,
	REVERSEITEMS: 1 << 13, REMOVE: 1 << 4, CLEARITEMS: 1 << 4, POPITEM: 1 << 4,
	NEWBUFFER: 1 << 8, MEMCPY: 1 << 11, CAT: 1 << 11,
	SUBSTR: 1 << 11, LEFT: 1 << 11, RIGHT: 1 << 11,
	ISNULL: 1 << 1, ISTYPE: 1 << 1, CONVERT: 1 << 13,
}

// opBaseDefault is charged for any opcode not listed in baseCost.
const opBaseDefault = 1 << 1

// BaseCost returns op's fixed gas cost (§4.1.3).
func BaseCost(op OpCode) int64 {
	if c, ok := baseCost[op]; ok {
		return c
	}
	return opBaseDefault
}

// PayloadCost scales proportionally with n bytes; PUSHDATA*, NEWBUFFER
// and CAT charge it on their byte length, CONVERT on a flat n of 1.
func PayloadCost(n int) int64 { return int64(n) * (1 << 2) }
