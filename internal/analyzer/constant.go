package analyzer

import (
	"fmt"
	"math/big"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// constant converts a literal from the syntax tree into a value.
func constant(typ, literal string) (objects.Value, error) {
	r := objects.Builtins()
	switch typ {
	case ir.ConstInt:
		n, ok := new(big.Int).SetString(literal, 0)
		if !ok {
			return nil, fmt.Errorf("invalid int literal %q", literal)
		}
		return objects.NewIntBig(n), nil
	case ir.ConstFloat:
		f, err := objects.ParseFloatLiteral(literal)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q", literal)
		}
		return objects.NewFloat(f), nil
	case ir.ConstStr:
		return objects.NewStr(literal), nil
	case ir.ConstBytes:
		return objects.NewBytes([]byte(literal)), nil
	case ir.ConstBool:
		switch literal {
		case "True":
			return r.True, nil
		case "False":
			return r.False, nil
		}
		return nil, fmt.Errorf("invalid bool literal %q", literal)
	case ir.ConstNone:
		return r.None, nil
	case ir.ConstEllipsis:
		return r.Ellipsis, nil
	}
	return nil, fmt.Errorf("unsupported constant type %q", typ)
}
