package objects

import "fmt"

// BinaryOp is a binary arithmetic or bitwise operator.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mult
	MatMult
	Div
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	FloorDiv
)

var binaryOps = [...]struct {
	symbol string
	name   string
}{
	Add:      {"+", "add"},
	Sub:      {"-", "sub"},
	Mult:     {"*", "mul"},
	MatMult:  {"@", "matmul"},
	Div:      {"/", "truediv"},
	Mod:      {"%", "mod"},
	Pow:      {"**", "pow"},
	LShift:   {"<<", "lshift"},
	RShift:   {">>", "rshift"},
	BitOr:    {"|", "or"},
	BitXor:   {"^", "xor"},
	BitAnd:   {"&", "and"},
	FloorDiv: {"//", "floordiv"},
}

func (op BinaryOp) String() string { return binaryOps[op].symbol }

// Dunder returns the forward method name, e.g. __add__.
func (op BinaryOp) Dunder() string { return "__" + binaryOps[op].name + "__" }

// Reflected returns the reflected method name, e.g. __radd__.
func (op BinaryOp) Reflected() string { return "__r" + binaryOps[op].name + "__" }

// Inplace returns the in-place method name, e.g. __iadd__.
func (op BinaryOp) Inplace() string { return "__i" + binaryOps[op].name + "__" }

// ParseBinaryOp maps a source operator spelling to a BinaryOp.
func ParseBinaryOp(symbol string) (BinaryOp, error) {
	for op, info := range binaryOps {
		if info.symbol == symbol {
			return BinaryOp(op), nil
		}
	}
	return 0, fmt.Errorf("unknown binary operator %q", symbol)
}

// UnaryOp is a unary operator.
type UnaryOp uint8

const (
	Invert UnaryOp = iota
	Not
	UAdd
	USub
)

var unaryOps = [...]struct {
	symbol string
	dunder string
}{
	Invert: {"~", "__invert__"},
	Not:    {"not", ""},
	UAdd:   {"+", "__pos__"},
	USub:   {"-", "__neg__"},
}

func (op UnaryOp) String() string { return unaryOps[op].symbol }

// Dunder returns the method name; Not has none.
func (op UnaryOp) Dunder() string { return unaryOps[op].dunder }

// ParseUnaryOp maps a source operator spelling to a UnaryOp.
func ParseUnaryOp(symbol string) (UnaryOp, error) {
	for op, info := range unaryOps {
		if info.symbol == symbol {
			return UnaryOp(op), nil
		}
	}
	return 0, fmt.Errorf("unknown unary operator %q", symbol)
}

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	Eq CmpOp = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

var cmpOps = [...]struct {
	symbol  string
	dunder  string
	swapped CmpOp
}{
	Eq:    {"==", "__eq__", Eq},
	NotEq: {"!=", "__ne__", NotEq},
	Lt:    {"<", "__lt__", Gt},
	LtE:   {"<=", "__le__", GtE},
	Gt:    {">", "__gt__", Lt},
	GtE:   {">=", "__ge__", LtE},
	Is:    {"is", "", Is},
	IsNot: {"is not", "", IsNot},
	In:    {"in", "", In},
	NotIn: {"not in", "", NotIn},
}

func (op CmpOp) String() string { return cmpOps[op].symbol }

// Dunder returns the rich comparison method name; identity and membership
// operators have none.
func (op CmpOp) Dunder() string { return cmpOps[op].dunder }

// Swapped returns the operator that compares with operands exchanged:
// a < b is b > a.
func (op CmpOp) Swapped() CmpOp { return cmpOps[op].swapped }

// ParseCmpOp maps a source operator spelling to a CmpOp.
func ParseCmpOp(symbol string) (CmpOp, error) {
	for op, info := range cmpOps {
		if info.symbol == symbol {
			return CmpOp(op), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", symbol)
}
