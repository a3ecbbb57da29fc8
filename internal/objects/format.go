package objects

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// pyQuote renders s as a str literal: single quotes unless s contains a
// single quote and no double quote.
func pyQuote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for _, c := range s {
		switch {
		case c == rune(q) || c == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		case c < 0x80 || unicode.IsPrint(c):
			sb.WriteRune(c)
		case c <= 0xff:
			fmt.Fprintf(&sb, `\x%02x`, c)
		case c <= 0xffff:
			fmt.Fprintf(&sb, `\u%04x`, c)
		default:
			fmt.Fprintf(&sb, `\U%08x`, c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

// bytesQuote renders b as a bytes literal.
func bytesQuote(b []byte) string {
	q := byte('\'')
	if strings.IndexByte(string(b), '\'') >= 0 && strings.IndexByte(string(b), '"') < 0 {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteString("b")
	sb.WriteByte(q)
	for _, c := range b {
		switch {
		case c == q || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

// formatSpec is a parsed format specification mini-language string.
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	zero      bool
	width     int
	grouping  byte
	precision int
	verb      byte
}

func parseFormatSpec(s string) (formatSpec, error) {
	spec := formatSpec{fill: ' ', precision: -1}
	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, n := utf8.DecodeRuneInString(s); n > 0 && n < len(s) && isAlign(s[n]) {
		spec.fill, spec.align = r, s[n]
		s = s[n+1:]
	} else if len(s) > 0 && isAlign(s[0]) {
		spec.align = s[0]
		s = s[1:]
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		spec.sign = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '#' {
		spec.alt = true
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		spec.zero = true
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		w, err := strconv.Atoi(s[:i])
		if err != nil {
			return spec, errTooManyDigits
		}
		spec.width = w
		s = s[i:]
	}
	if len(s) > 0 && (s[0] == ',' || s[0] == '_') {
		spec.grouping = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		i = 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 1 {
			return spec, fmt.Errorf("Format specifier missing precision")
		}
		p, err := strconv.Atoi(s[1:i])
		if err != nil {
			return spec, errTooManyDigits
		}
		spec.precision = p
		s = s[i:]
	}
	if len(s) > 1 {
		return spec, fmt.Errorf("Invalid format specifier")
	}
	if len(s) == 1 {
		spec.verb = s[0]
	}
	return spec, nil
}

var errTooManyDigits = errors.New("Too many decimal digits in format string")

// checkSize reports a LimitError when the width or precision would build a
// string past MaxContainerSize.
func (f formatSpec) checkSize(ctx *CallerContext) bool {
	return checkSize(ctx, int64(f.width)) && checkSize(ctx, int64(f.precision))
}

// appendDigit adds a decimal digit to n, saturating instead of wrapping.
func appendDigit(n int, d byte) int {
	if n > (math.MaxInt32-9)/10 {
		return math.MaxInt32
	}
	return n*10 + int(d-'0')
}

// pad applies width, fill and alignment. body excludes the sign, which
// '=' alignment places before the padding.
func (f formatSpec) pad(sign, body string, defAlign byte) string {
	align := f.align
	fill := f.fill
	if align == 0 && f.zero {
		align, fill = '=', '0'
	}
	if align == 0 {
		align = defAlign
	}
	n := f.width - utf8.RuneCountInString(sign) - utf8.RuneCountInString(body)
	if n <= 0 {
		return sign + body
	}
	fills := strings.Repeat(string(fill), n)
	switch align {
	case '<':
		return sign + body + fills
	case '^':
		left := strings.Repeat(string(fill), n/2)
		return left + sign + body + strings.Repeat(string(fill), n-n/2)
	case '=':
		return sign + fills + body
	}
	return fills + sign + body
}

func group(digits string, sep byte, every int) string {
	if sep == 0 || len(digits) <= every {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % every
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += every {
		if sb.Len() > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteString(digits[i : i+every])
	}
	return sb.String()
}

func signOf(neg bool, mode byte) string {
	switch {
	case neg:
		return "-"
	case mode == '+':
		return "+"
	case mode == ' ':
		return " "
	}
	return ""
}

// formatInt applies spec to an integer.
func formatInt(n *big.Int, f formatSpec) (string, error) {
	if f.precision >= 0 {
		return "", fmt.Errorf("Precision not allowed in integer format specifier")
	}
	abs := new(big.Int).Abs(n)
	var digits, prefix string
	every := 3
	switch f.verb {
	case 0, 'd', 'n':
		digits = abs.String()
	case 'b':
		digits, prefix, every = abs.Text(2), "0b", 4
	case 'o':
		digits, prefix, every = abs.Text(8), "0o", 4
	case 'x':
		digits, prefix, every = abs.Text(16), "0x", 4
	case 'X':
		digits, prefix, every = strings.ToUpper(abs.Text(16)), "0X", 4
	case 'c':
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > unicode.MaxRune {
			return "", fmt.Errorf("%%c arg not in range(0x110000)")
		}
		return f.pad("", string(rune(n.Int64())), '<'), nil
	default:
		return "", fmt.Errorf("Unknown format code '%c' for object of type 'int'", f.verb)
	}
	digits = group(digits, f.grouping, every)
	if !f.alt {
		prefix = ""
	}
	return f.pad(signOf(n.Sign() < 0, f.sign)+prefix, digits, '>'), nil
}

// formatFloatSpec applies spec to a float.
func formatFloatSpec(x float64, f formatSpec) (string, error) {
	neg := math.Signbit(x) && !math.IsNaN(x)
	a := math.Abs(x)
	prec := f.precision
	var body string
	switch f.verb {
	case 0:
		if prec < 0 {
			body = formatFloat(a)
		} else {
			body = strconv.FormatFloat(a, 'g', max(prec, 1), 64)
			if !strings.ContainsAny(body, ".einN") {
				body += ".0"
			}
		}
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a, 'f', prec, 64)
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a, 'e', prec, 64)
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a, 'g', max(prec, 1), 64)
	case '%':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(a*100, 'f', prec, 64) + "%"
	default:
		return "", fmt.Errorf("Unknown format code '%c' for object of type 'float'", f.verb)
	}
	switch {
	case math.IsInf(a, 0):
		body = "inf"
	case math.IsNaN(a):
		body = "nan"
	}
	if f.verb == 'F' || f.verb == 'E' || f.verb == 'G' {
		body = strings.ToUpper(body)
	}
	if f.grouping != 0 {
		intPart, rest := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			intPart, rest = body[:i], body[i:]
		}
		body = group(intPart, f.grouping, 3) + rest
	}
	return f.pad(signOf(neg, f.sign), body, '>'), nil
}

func formatString(s string, f formatSpec) (string, error) {
	if f.verb != 0 && f.verb != 's' {
		return "", fmt.Errorf("Unknown format code '%c' for object of type 'str'", f.verb)
	}
	if f.sign != 0 {
		return "", fmt.Errorf("Sign not allowed in string format specifier")
	}
	if f.align == '=' {
		return "", fmt.Errorf("'=' alignment not allowed in string format specifier")
	}
	if f.precision >= 0 {
		if r := []rune(s); len(r) > f.precision {
			s = string(r[:f.precision])
		}
	}
	return f.pad("", s, '<'), nil
}

// formatValue implements the built-in __format__ of int, float and str.
func formatValue(ctx *CallerContext, v, specVal Value) Value {
	s, ok := AsStr(specVal)
	if !ok {
		if IsUnknown(specVal) {
			return NewUnknown("formatted value")
		}
		return ctx.Raise(builtins.TypeError, "format spec must be a str, not %s", specVal.Type().name)
	}
	spec, err := parseFormatSpec(s)
	if err != nil {
		return ctx.Raise(builtins.ValueError, "%s", err.Error())
	}
	if !spec.checkSize(ctx) {
		return NewUnknown("formatted value")
	}
	var out string
	switch p := v.(*Instance).payload.(type) {
	case *big.Int:
		switch spec.verb {
		case 'e', 'E', 'f', 'F', 'g', 'G', '%':
			x, ok := bigToFloat(ctx, p)
			if !ok {
				return NewUnknown("formatted value")
			}
			out, err = formatFloatSpec(x, spec)
		default:
			if s == "" && v.Type().IsSubtype(builtins.BoolType) {
				return Str(ctx, v)
			}
			out, err = formatInt(p, spec)
		}
	case float64:
		out, err = formatFloatSpec(p, spec)
	case string:
		out, err = formatString(p, spec)
	default:
		return ctx.Raise(builtins.TypeError, "unsupported format string passed to %s.__format__", v.Type().name)
	}
	if err != nil {
		return ctx.Raise(builtins.ValueError, "%s", err.Error())
	}
	return NewStr(out)
}

// Format evaluates format(v, spec) through __format__.
func Format(ctx *CallerContext, v Value, spec string) Value {
	if IsUnknown(v) {
		ctx.Opaque("formatting of an unknown value")
		return NewUnknown("formatted value")
	}
	res := CallMethod(ctx, v, "__format__", NewStr(spec))
	if IsUnknown(res) {
		return res
	}
	if _, ok := AsStr(res); !ok {
		return ctx.Raise(builtins.TypeError, "__format__ must return a str, not %s", res.Type().name)
	}
	return res
}

// percentFormat implements str % args.
func percentFormat(ctx *CallerContext, format string, arg Value) Value {
	r := builtins
	var items []Value
	var mapping Value
	if t, ok := tupleItems(arg); ok {
		items = t
	} else if IsUnknown(arg) {
		ctx.Opaque("%% formatting with unknown arguments")
		return NewUnknown("formatted string")
	} else if _, ok := AsDict(arg); ok {
		mapping = arg
		items = []Value{arg}
	} else if arg.Type().IsSubtype(r.TupleType) {
		ctx.Opaque("%% formatting with an opaque tuple")
		return NewUnknown("formatted string")
	} else {
		items = []Value{arg}
	}
	next := 0
	take := func() (Value, bool) {
		if next >= len(items) {
			ctx.Raise(r.TypeError, "not enough arguments for format string")
			return nil, false
		}
		v := items[next]
		next++
		return v, true
	}
	var sb strings.Builder
	usedMapping := false
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return ctx.Raise(r.ValueError, "incomplete format")
		}
		var v Value
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return ctx.Raise(r.ValueError, "incomplete format key")
			}
			if mapping == nil {
				return ctx.Raise(r.TypeError, "format requires a mapping")
			}
			v = GetItem(ctx, mapping, NewStr(format[i+1:i+end]))
			usedMapping = true
			i += end + 1
		}
		spec := formatSpec{fill: ' ', precision: -1}
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				spec.align = '<'
			case '+':
				spec.sign = '+'
			case ' ':
				if spec.sign == 0 {
					spec.sign = ' '
				}
			case '#':
				spec.alt = true
			case '0':
				spec.zero = true
			default:
				break flags
			}
		}
		for ; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			spec.width = appendDigit(spec.width, format[i])
		}
		if i < len(format) && format[i] == '.' {
			spec.precision = 0
			for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
				spec.precision = appendDigit(spec.precision, format[i])
			}
		}
		if !spec.checkSize(ctx) {
			return NewUnknown("formatted string")
		}
		if i >= len(format) {
			return ctx.Raise(r.ValueError, "incomplete format")
		}
		verb := format[i]
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		if v == nil {
			var ok bool
			if v, ok = take(); !ok {
				return NewUnknown("formatted string")
			}
		}
		if IsUnknown(v) {
			ctx.Opaque("%% formatting of an unknown value")
			return NewUnknown("formatted string")
		}
		if spec.align == '<' {
			spec.zero = false
		}
		var out string
		var err error
		switch verb {
		case 's', 'r', 'a':
			var sv Value
			if verb == 's' {
				sv = Str(ctx, v)
			} else {
				sv = Repr(ctx, v)
			}
			s, ok := AsStr(sv)
			if !ok {
				return NewUnknown("formatted string")
			}
			if spec.precision >= 0 && len([]rune(s)) > spec.precision {
				s = string([]rune(s)[:spec.precision])
			}
			spec.zero = false
			out = spec.pad("", s, '>')
		case 'd', 'i', 'u', 'x', 'X', 'o':
			n, ok := AsInt(v)
			if !ok {
				if f, isFloat := AsFloat(v); isFloat && verb != 'x' && verb != 'X' && verb != 'o' {
					n, _ = big.NewFloat(math.Trunc(f)).Int(nil)
				} else {
					return ctx.Raise(r.TypeError, "%%%c format: an integer is required, not %s", verb, v.Type().name)
				}
			}
			if verb == 'i' || verb == 'u' {
				verb = 'd'
			}
			spec.precision, spec.verb = -1, verb
			out, err = formatInt(n, spec)
		case 'e', 'E', 'f', 'F', 'g', 'G':
			x, isNum, ok := numericOperand(ctx, v)
			if !ok {
				return ctx.Raise(r.TypeError, "must be real number, not %s", v.Type().name)
			}
			if !isNum {
				return NewUnknown("formatted string")
			}
			spec.verb = verb
			out, err = formatFloatSpec(x, spec)
		case 'c':
			if s, ok := AsStr(v); ok && utf8.RuneCountInString(s) == 1 {
				out = spec.pad("", s, '>')
				break
			}
			n, ok := AsInt(v)
			if !ok {
				return ctx.Raise(r.TypeError, "%%c requires an int or a unicode character, not %s", v.Type().name)
			}
			spec.verb = 'c'
			out, err = formatInt(n, spec)
		default:
			return ctx.Raise(r.ValueError, "unsupported format character '%c' (0x%x) at index %d", verb, verb, i)
		}
		if err != nil {
			return ctx.Raise(r.ValueError, "%s", err.Error())
		}
		sb.WriteString(out)
	}
	if next < len(items) && !usedMapping && mapping == nil {
		return ctx.Raise(r.TypeError, "not all arguments converted during string formatting")
	}
	return NewStr(sb.String())
}

// strFormat implements str.format.
func strFormat(ctx *CallerContext, format string, args []Value, names []string) Value {
	r := builtins
	pos, kw := splitArgs(args, names)
	auto := 0
	manual := false
	var sb strings.Builder
	field := func(ref string) (Value, bool) {
		i := strings.IndexAny(ref, ".[")
		head, rest := ref, ""
		if i >= 0 {
			head, rest = ref[:i], ref[i:]
		}
		var v Value
		switch n, err := strconv.Atoi(head); {
		case head == "":
			if manual {
				ctx.Raise(r.ValueError, "cannot switch from manual field specification to automatic field numbering")
				return nil, false
			}
			if auto >= len(pos) {
				ctx.Raise(r.IndexError, "Replacement index %d out of range for positional args tuple", auto)
				return nil, false
			}
			v = pos[auto]
			auto++
		case err == nil:
			manual = true
			if n >= len(pos) {
				ctx.Raise(r.IndexError, "Replacement index %d out of range for positional args tuple", n)
				return nil, false
			}
			v = pos[n]
		default:
			for j, name := range names {
				if name == head {
					v = kw[j]
				}
			}
			if v == nil {
				ctx.RaiseKey(NewStr(head))
				return nil, false
			}
		}
		for rest != "" {
			if rest[0] == '.' {
				end := strings.IndexAny(rest[1:], ".[")
				if end < 0 {
					end = len(rest) - 1
				}
				v = LoadAttr(ctx, v, rest[1:end+1])
				rest = rest[end+1:]
				continue
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				ctx.Raise(r.ValueError, "Missing ']' in format string")
				return nil, false
			}
			key := rest[1:end]
			var kv Value = NewStr(key)
			if n, err := strconv.Atoi(key); err == nil {
				kv = NewInt(int64(n))
			}
			v = GetItem(ctx, v, kv)
			rest = rest[end+1:]
		}
		return v, true
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '}' {
			if i+1 < len(format) && format[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return ctx.Raise(r.ValueError, "Single '}' encountered in format string")
		}
		if c != '{' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '{' {
			sb.WriteByte('{')
			i++
			continue
		}
		depth, end := 1, -1
		for j := i + 1; j < len(format); j++ {
			if format[j] == '{' {
				depth++
			} else if format[j] == '}' {
				depth--
				if depth == 0 {
					end = j
					break
				}
			}
		}
		if end < 0 {
			return ctx.Raise(r.ValueError, "expected '}' before end of string")
		}
		body := format[i+1 : end]
		i = end
		ref, conv, spec := body, "", ""
		if k := strings.IndexByte(ref, ':'); k >= 0 {
			ref, spec = ref[:k], ref[k+1:]
		}
		if k := strings.IndexByte(ref, '!'); k >= 0 {
			ref, conv = ref[:k], ref[k+1:]
		}
		v, ok := field(ref)
		if !ok {
			return NewUnknown("formatted string")
		}
		if strings.Contains(spec, "{") {
			nested := strFormat(ctx, spec, args, names)
			if spec, ok = AsStr(nested); !ok {
				return NewUnknown("formatted string")
			}
		}
		switch conv {
		case "":
		case "r", "a":
			v = Repr(ctx, v)
		case "s":
			v = Str(ctx, v)
		default:
			return ctx.Raise(r.ValueError, "Unknown conversion specifier %s", conv)
		}
		out, ok := AsStr(Format(ctx, v, spec))
		if !ok {
			return NewUnknown("formatted string")
		}
		sb.WriteString(out)
	}
	return NewStr(sb.String())
}
