package objects

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
)

// maxIntBits bounds the size of integers produced by ** and <<.
const maxIntBits = 1 << 16

// floorDivMod returns Python floor division and modulo.
func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 && m.Sign() != b.Sign() {
		q.Sub(q, big.NewInt(1))
		m.Add(m, b)
	}
	return q, m
}

func bigToFloat(ctx *CallerContext, n *big.Int) (float64, bool) {
	f, _ := new(big.Float).SetInt(n).Float64()
	if math.IsInf(f, 0) {
		ctx.Raise(builtins.OverflowError, "int too large to convert to float")
		return 0, false
	}
	return f, true
}

// intArith applies op to two integers. Unsupported ops return the
// sentinel.
func intArith(ctx *CallerContext, op BinaryOp, a, b *big.Int) Value {
	r := builtins
	switch op {
	case Add:
		return NewIntBig(new(big.Int).Add(a, b))
	case Sub:
		return NewIntBig(new(big.Int).Sub(a, b))
	case Mult:
		if a.BitLen()+b.BitLen() > maxIntBits {
			ctx.Error(ir.KindLimitError, "integer result exceeds %d bits", maxIntBits)
			return NewUnknown("large integer")
		}
		return NewIntBig(new(big.Int).Mul(a, b))
	case FloorDiv, Mod:
		if b.Sign() == 0 {
			return ctx.Raise(r.ZeroDivisionError, "integer division or modulo by zero")
		}
		q, m := floorDivMod(a, b)
		if op == FloorDiv {
			return NewIntBig(q)
		}
		return NewIntBig(m)
	case Div:
		if b.Sign() == 0 {
			return ctx.Raise(r.ZeroDivisionError, "division by zero")
		}
		f, _ := new(big.Rat).SetFrac(a, b).Float64()
		if math.IsInf(f, 0) {
			return ctx.Raise(r.OverflowError, "integer division result too large for a float")
		}
		return NewFloat(f)
	case Pow:
		if b.Sign() < 0 {
			x, ok1 := bigToFloat(ctx, a)
			y, ok2 := bigToFloat(ctx, b)
			if !ok1 || !ok2 {
				return NewUnknown("pow")
			}
			return floatArith(ctx, Pow, x, y)
		}
		if !b.IsInt64() || int64(a.BitLen())*b.Int64() > maxIntBits {
			if a.CmpAbs(big.NewInt(1)) <= 0 {
				return NewIntBig(new(big.Int).Exp(a, b, nil))
			}
			ctx.Error(ir.KindLimitError, "integer result exceeds %d bits", maxIntBits)
			return NewUnknown("large integer")
		}
		return NewIntBig(new(big.Int).Exp(a, b, nil))
	case LShift, RShift:
		if b.Sign() < 0 {
			return ctx.Raise(r.ValueError, "negative shift count")
		}
		if op == RShift {
			if !b.IsInt64() || b.Int64() > int64(a.BitLen()) {
				if a.Sign() < 0 {
					return NewInt(-1)
				}
				return NewInt(0)
			}
			return NewIntBig(new(big.Int).Rsh(a, uint(b.Int64())))
		}
		if !b.IsInt64() || int64(a.BitLen())+b.Int64() > maxIntBits {
			if a.Sign() == 0 {
				return NewInt(0)
			}
			ctx.Error(ir.KindLimitError, "integer result exceeds %d bits", maxIntBits)
			return NewUnknown("large integer")
		}
		return NewIntBig(new(big.Int).Lsh(a, uint(b.Int64())))
	case BitAnd:
		return NewIntBig(new(big.Int).And(a, b))
	case BitOr:
		return NewIntBig(new(big.Int).Or(a, b))
	case BitXor:
		return NewIntBig(new(big.Int).Xor(a, b))
	}
	return r.NotImplemented
}

func floatArith(ctx *CallerContext, op BinaryOp, a, b float64) Value {
	r := builtins
	switch op {
	case Add:
		return NewFloat(a + b)
	case Sub:
		return NewFloat(a - b)
	case Mult:
		return NewFloat(a * b)
	case Div:
		if b == 0 {
			return ctx.Raise(r.ZeroDivisionError, "float division by zero")
		}
		return NewFloat(a / b)
	case FloorDiv:
		if b == 0 {
			return ctx.Raise(r.ZeroDivisionError, "float floor division by zero")
		}
		return NewFloat(math.Floor(a / b))
	case Mod:
		if b == 0 {
			return ctx.Raise(r.ZeroDivisionError, "float modulo")
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return NewFloat(m)
	case Pow:
		if a == 0 && b < 0 {
			return ctx.Raise(r.ZeroDivisionError, "0.0 cannot be raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			ctx.Opaque("complex result of a negative number raised to a fractional power")
			return NewUnknown("complex")
		}
		res := math.Pow(a, b)
		if math.IsInf(res, 0) && !math.IsInf(a, 0) {
			return ctx.Raise(r.OverflowError, "(34, 'Numerical result out of range')")
		}
		return NewFloat(res)
	}
	return r.NotImplemented
}

// numericOperand converts an int, bool or float operand to float64.
func numericOperand(ctx *CallerContext, v Value) (float64, bool, bool) {
	if f, ok := AsFloat(v); ok {
		return f, true, true
	}
	if n, ok := AsInt(v); ok {
		f, ok := bigToFloat(ctx, n)
		return f, ok, true
	}
	return 0, false, false
}

func cmpResult(op CmpOp, c int) Value {
	switch op {
	case Eq:
		return NewBool(c == 0)
	case NotEq:
		return NewBool(c != 0)
	case Lt:
		return NewBool(c < 0)
	case LtE:
		return NewBool(c <= 0)
	case Gt:
		return NewBool(c > 0)
	case GtE:
		return NewBool(c >= 0)
	}
	return builtins.NotImplemented
}

func floatCmp(op CmpOp, a, b float64) Value {
	if math.IsNaN(a) || math.IsNaN(b) {
		return NewBool(op == NotEq)
	}
	switch {
	case a < b:
		return cmpResult(op, -1)
	case a > b:
		return cmpResult(op, 1)
	}
	return cmpResult(op, 0)
}

// compareMethods installs the six rich comparisons through cmp, which
// returns NotImplemented for foreign operands.
func (r *Registry) compareMethods(t *Type, cmp func(ctx *CallerContext, op CmpOp, a, b Value) Value) {
	for _, op := range []CmpOp{Eq, NotEq, Lt, LtE, Gt, GtE} {
		r.def(t, op.Dunder(), func(ctx *CallerContext, args []Value, names []string) Value {
			if len(args) != 2 || len(names) > 0 {
				return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
			}
			return cmp(ctx, op, args[0], args[1])
		})
	}
}

func (r *Registry) setupInt() {
	t := r.IntType
	ops := []BinaryOp{Add, Sub, Mult, Div, FloorDiv, Mod, Pow, LShift, RShift, BitAnd, BitOr, BitXor}
	for _, op := range ops {
		r.binaryMethods(t, op, func(ctx *CallerContext, a, b Value) Value {
			x, ok1 := AsInt(a)
			y, ok2 := AsInt(b)
			if !ok1 || !ok2 {
				return r.NotImplemented
			}
			return intArith(ctx, op, x, y)
		})
	}
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		x, _ := AsInt(a)
		y, ok := AsInt(b)
		if !ok {
			if f, ok := AsFloat(b); ok {
				xf, _ := new(big.Float).SetInt(x).Float64()
				return floatCmp(op, xf, f)
			}
			return r.NotImplemented
		}
		return cmpResult(op, x.Cmp(y))
	})
	r.unaryMethod(t, "__neg__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewIntBig(new(big.Int).Neg(x))
	})
	r.unaryMethod(t, "__pos__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewIntBig(x)
	})
	r.unaryMethod(t, "__abs__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewIntBig(new(big.Int).Abs(x))
	})
	r.unaryMethod(t, "__invert__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewIntBig(new(big.Int).Not(x))
	})
	r.unaryMethod(t, "__bool__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewBool(x.Sign() != 0)
	})
	toInt := func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewIntBig(x)
	}
	r.unaryMethod(t, "__index__", toInt)
	r.unaryMethod(t, "__int__", toInt)
	r.unaryMethod(t, "__hash__", toInt)
	r.unaryMethod(t, "__float__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		f, ok := bigToFloat(ctx, x)
		if !ok {
			return NewUnknown("float")
		}
		return NewFloat(f)
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewStr(x.String())
	})
	r.unaryMethod(t, "bit_length", func(ctx *CallerContext, self Value) Value {
		x, _ := AsInt(self)
		return NewInt(int64(x.BitLen()))
	})
	r.def(t, "__format__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__format__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__format__")
		}
		return formatValue(ctx, a[0], a[1])
	})
	r.defStatic(t, "__new__", intNew)
	r.defGetSet(t, "real", func(ctx *CallerContext, obj Value) Value { return toInt(ctx, obj) }, nil)
	r.defGetSet(t, "imag", func(ctx *CallerContext, obj Value) Value { return NewInt(0) }, nil)
}

func intNew(ctx *CallerContext, args []Value, names []string) Value {
	r := builtins
	cls, ok := args[0].(*Type)
	if !ok || !cls.IsSubtype(r.IntType) {
		return ctx.Raise(r.TypeError, "int.__new__(X): X is not a subtype of int")
	}
	a, ok := bindArgs(ctx, "int", args[1:], names, []string{"x", "base"}, 0)
	if !ok {
		return NewUnknown("int")
	}
	n := intFrom(ctx, a[0], a[1])
	if n == nil {
		return NewUnknown("int")
	}
	if cls == r.IntType {
		return NewIntBig(n)
	}
	inst := cls.ConstructInstance()
	inst.payload = n
	return inst
}

// intFrom implements int(x, base). nil means the result is unknown or an
// exception was raised.
func intFrom(ctx *CallerContext, x, base Value) *big.Int {
	r := builtins
	if x == nil {
		if base != nil {
			ctx.Raise(r.TypeError, "int() missing string argument")
			return nil
		}
		return new(big.Int)
	}
	if IsUnknown(x) || (base != nil && IsUnknown(base)) {
		ctx.Opaque("int() of an unknown value")
		return nil
	}
	if s, ok := AsStr(x); ok {
		b := int64(10)
		if base != nil {
			bn, ok := AsInt(base)
			if !ok {
				ctx.Raise(r.TypeError, "'%s' object cannot be interpreted as an integer", base.Type().name)
				return nil
			}
			b = bn.Int64()
			if b != 0 && (b < 2 || b > 36) {
				ctx.Raise(r.ValueError, "int() base must be >= 2 and <= 36, or 0")
				return nil
			}
		}
		n, ok := parseIntLiteral(strings.TrimSpace(s), int(b))
		if !ok {
			ctx.Raise(r.ValueError, "invalid literal for int() with base %d: %s", b, pyQuote(s))
			return nil
		}
		return n
	}
	if base != nil {
		ctx.Raise(r.TypeError, "int() can't convert non-string with explicit base")
		return nil
	}
	if n, ok := AsInt(x); ok {
		return new(big.Int).Set(n)
	}
	if f, ok := AsFloat(x); ok {
		if math.IsInf(f, 0) {
			ctx.Raise(r.OverflowError, "cannot convert float infinity to integer")
			return nil
		}
		if math.IsNaN(f) {
			ctx.Raise(r.ValueError, "cannot convert float NaN to integer")
			return nil
		}
		n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
		return n
	}
	for _, name := range []string{"__int__", "__index__"} {
		if fn, _, ok := x.Type().Lookup(name); ok {
			res := callSpecial(ctx, fn, x, nil, nil)
			if IsUnknown(res) {
				return nil
			}
			n, ok := AsInt(res)
			if !ok {
				ctx.Raise(r.TypeError, "%s returned non-int (type %s)", name, res.Type().name)
				return nil
			}
			return new(big.Int).Set(n)
		}
	}
	ctx.Raise(r.TypeError, "int() argument must be a string, a bytes-like object or a real number, not '%s'", x.Type().name)
	return nil
}

// parseIntLiteral parses an integer literal with underscores and an
// optional prefix. base 0 infers the base from the prefix.
func parseIntLiteral(s string, base int) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	lower := strings.ToLower(s)
	prefixBase := 0
	switch {
	case strings.HasPrefix(lower, "0x"):
		prefixBase = 16
	case strings.HasPrefix(lower, "0o"):
		prefixBase = 8
	case strings.HasPrefix(lower, "0b"):
		prefixBase = 2
	}
	if prefixBase != 0 && (base == 0 || base == prefixBase) {
		s = s[2:]
		base = prefixBase
	}
	if base == 0 {
		base = 10
		if len(s) > 1 && s[0] == '0' && strings.Trim(s, "0_") != "" {
			return nil, false
		}
	}
	if s == "" || strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") {
		return nil, false
	}
	n, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), base)
	if !ok {
		return nil, false
	}
	if neg {
		n.Neg(n)
	}
	return n, true
}

func (r *Registry) setupBool() {
	t := r.BoolType
	for _, op := range []BinaryOp{BitAnd, BitOr, BitXor} {
		r.binaryMethods(t, op, func(ctx *CallerContext, a, b Value) Value {
			x, ok1 := AsInt(a)
			y, ok2 := AsInt(b)
			if !ok1 || !ok2 {
				return r.NotImplemented
			}
			res := intArith(ctx, op, x, y)
			if a.Type() == r.BoolType && b.Type() == r.BoolType {
				n, _ := AsInt(res)
				return NewBool(n.Sign() != 0)
			}
			return res
		})
	}
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		if self == r.True {
			return NewStr("True")
		}
		return NewStr("False")
	})
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "bool", args[1:], names, 0, 1)
		if !ok {
			return NewUnknown("bool")
		}
		if len(a) == 0 {
			return r.False
		}
		return Truth(ctx, a[0])
	})
}

func (r *Registry) setupFloat() {
	t := r.FloatType
	ops := []BinaryOp{Add, Sub, Mult, Div, FloorDiv, Mod, Pow}
	for _, op := range ops {
		r.binaryMethods(t, op, func(ctx *CallerContext, a, b Value) Value {
			x, ok1, num1 := numericOperand(ctx, a)
			y, ok2, num2 := numericOperand(ctx, b)
			if !num1 || !num2 {
				return r.NotImplemented
			}
			if !ok1 || !ok2 {
				return NewUnknown("float %s", op)
			}
			return floatArith(ctx, op, x, y)
		})
	}
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		x, _ := AsFloat(a)
		if y, ok := AsFloat(b); ok {
			return floatCmp(op, x, y)
		}
		if n, ok := AsInt(b); ok {
			y, _ := new(big.Float).SetInt(n).Float64()
			return floatCmp(op, x, y)
		}
		return r.NotImplemented
	})
	r.unaryMethod(t, "__neg__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewFloat(-x)
	})
	r.unaryMethod(t, "__pos__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewFloat(x)
	})
	r.unaryMethod(t, "__abs__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewFloat(math.Abs(x))
	})
	r.unaryMethod(t, "__bool__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewBool(x != 0)
	})
	r.unaryMethod(t, "__int__", func(ctx *CallerContext, self Value) Value {
		n := intFrom(ctx, self, nil)
		if n == nil {
			return NewUnknown("int")
		}
		return NewIntBig(n)
	})
	r.unaryMethod(t, "__float__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewFloat(x)
	})
	r.unaryMethod(t, "__hash__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			n, _ := big.NewFloat(x).Int(nil)
			return NewIntBig(n)
		}
		return NewUnknown("float hash")
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewStr(formatFloat(x))
	})
	r.unaryMethod(t, "is_integer", func(ctx *CallerContext, self Value) Value {
		x, _ := AsFloat(self)
		return NewBool(x == math.Trunc(x) && !math.IsInf(x, 0))
	})
	r.def(t, "__format__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__format__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__format__")
		}
		return formatValue(ctx, a[0], a[1])
	})
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		cls, ok := args[0].(*Type)
		if !ok || !cls.IsSubtype(r.FloatType) {
			return ctx.Raise(r.TypeError, "float.__new__(X): X is not a subtype of float")
		}
		a, ok := positional(ctx, "float", args[1:], names, 0, 1)
		if !ok {
			return NewUnknown("float")
		}
		f := 0.0
		if len(a) == 1 {
			v, ok := floatFrom(ctx, a[0])
			if !ok {
				return NewUnknown("float")
			}
			f = v
		}
		if cls == r.FloatType {
			return NewFloat(f)
		}
		inst := cls.ConstructInstance()
		inst.payload = f
		return inst
	})
}

func floatFrom(ctx *CallerContext, x Value) (float64, bool) {
	r := builtins
	if IsUnknown(x) {
		ctx.Opaque("float() of an unknown value")
		return 0, false
	}
	if s, ok := AsStr(x); ok {
		f, err := ParseFloatLiteral(strings.TrimSpace(s))
		if err != nil {
			ctx.Raise(r.ValueError, "could not convert string to float: %s", pyQuote(s))
			return 0, false
		}
		return f, true
	}
	if f, ok, num := numericOperand(ctx, x); num {
		return f, ok
	}
	if fn, _, ok := x.Type().Lookup("__float__"); ok {
		res := callSpecial(ctx, fn, x, nil, nil)
		if f, ok := AsFloat(res); ok {
			return f, true
		}
		if !IsUnknown(res) {
			ctx.Raise(r.TypeError, "%s.__float__ returned non-float (type %s)", x.Type().name, res.Type().name)
		}
		return 0, false
	}
	ctx.Raise(r.TypeError, "float() argument must be a string or a real number, not '%s'", x.Type().name)
	return 0, false
}

// ParseFloatLiteral parses the textual form of a float constant.
func ParseFloatLiteral(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	case "nan", "+nan", "-nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
}

// formatFloat renders a float the way repr does.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
