package objects

import (
	"bytes"
	"encoding/hex"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/strictmod/internal/ir"
)

type strIter struct {
	s []rune
	i int
}

func (it *strIter) Next() (Value, bool) {
	if it.i >= len(it.s) {
		return nil, false
	}
	v := NewStr(string(it.s[it.i]))
	it.i++
	return v, true
}

type bytesIter struct {
	b []byte
	i int
}

func (it *bytesIter) Next() (Value, bool) {
	if it.i >= len(it.b) {
		return nil, false
	}
	v := NewInt(int64(it.b[it.i]))
	it.i++
	return v, true
}

func strOf(v Value) string {
	return v.(*Instance).payload.(string)
}

func bytesOf(v Value) []byte {
	return v.(*Instance).payload.([]byte)
}

// strArg reads a str argument, raising TypeError for anything else.
func strArg(ctx *CallerContext, v Value, what string) (string, bool) {
	if s, ok := AsStr(v); ok {
		return s, true
	}
	if IsUnknown(v) {
		ctx.Opaque("%s with an unknown argument", what)
		return "", false
	}
	ctx.Raise(builtins.TypeError, "%s arg must be str, not %s", what, v.Type().name)
	return "", false
}

// strArgs reads every argument of a str method as str.
func strArgs(ctx *CallerContext, what string, vs []Value) ([]string, bool) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, ok := strArg(ctx, v, what)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// intArg reads an optional integer argument.
func intArg(ctx *CallerContext, v Value, def int64) (int64, bool) {
	if v == nil || v == builtins.None {
		return def, true
	}
	return indexOf(ctx, v, "'%s' object cannot be interpreted as an integer")
}

// sideEffectHash reports hashing of a value whose hash is randomized per
// process.
func sideEffectHash(ctx *CallerContext, self Value) Value {
	if !ctx.Module.SideEffectAllowed("hash") {
		ctx.Error(ir.KindSideEffectError, "hash() of a '%s' object is randomized per process", self.Type().name)
	}
	return NewUnknown("randomized hash")
}

// strRange narrows s to the optional start and end arguments.
func strRange(ctx *CallerContext, runes []rune, start, end Value) (lo, hi int, ok bool) {
	s := &Slice{Start: orNone(start), Stop: orNone(end), Step: builtins.None}
	lo, hi, _, ok = sliceIndices(ctx, s, len(runes))
	return lo, max(lo, hi), ok
}

func (r *Registry) setupStr() {
	t := r.StrType
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		cls, ok := args[0].(*Type)
		if !ok || !cls.IsSubtype(r.StrType) {
			return ctx.Raise(r.TypeError, "str.__new__(X): X is not a subtype of str")
		}
		a, ok := bindArgs(ctx, "str", args[1:], names, []string{"object", "encoding", "errors"}, 0)
		if !ok {
			return NewUnknown("str")
		}
		var s Value = NewStr("")
		switch {
		case a[0] == nil:
		case a[1] != nil || a[2] != nil:
			b, ok := AsBytes(a[0])
			if !ok {
				return ctx.Raise(r.TypeError, "decoding to str: need a bytes-like object, %s found", a[0].Type().name)
			}
			s = decodeBytes(ctx, b, orNone(a[1]))
		default:
			s = Str(ctx, a[0])
		}
		if cls == r.StrType || IsUnknown(s) {
			return s
		}
		inst := cls.ConstructInstance()
		inst.payload = strOf(s)
		return inst
	})
	r.unaryMethod(t, "__str__", func(ctx *CallerContext, self Value) Value {
		if self.Type() == r.StrType {
			return self
		}
		return NewStr(strOf(self))
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(pyQuote(strOf(self)))
	})
	r.unaryMethod(t, "__hash__", sideEffectHash)
	r.unaryMethod(t, "__len__", func(ctx *CallerContext, self Value) Value {
		return NewInt(int64(utf8.RuneCountInString(strOf(self))))
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		return NewIterator(&strIter{s: []rune(strOf(self))})
	})
	r.def(t, "__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("item")
		}
		runes := []rune(strOf(a[0]))
		if IsUnknown(a[1]) {
			ctx.Opaque("str subscript with an unknown index")
			return NewUnknown("item")
		}
		if s, ok := asSlice(a[1]); ok {
			start, stop, step, ok := sliceIndices(ctx, s, len(runes))
			if !ok {
				return NewUnknown("slice")
			}
			return NewStr(string(selectItems(runes, start, stop, step)))
		}
		i, ok := seqIndex(ctx, a[1], len(runes), "string")
		if !ok {
			return NewUnknown("item")
		}
		return NewStr(string(runes[i]))
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		sub, ok := AsStr(a[1])
		if !ok {
			if IsUnknown(a[1]) {
				return NewUnknown("membership")
			}
			return ctx.Raise(r.TypeError, "'in <string>' requires string as left operand, not %s", a[1].Type().name)
		}
		return NewBool(strings.Contains(strOf(a[0]), sub))
	})
	r.binaryMethodsForward(t, Add, func(ctx *CallerContext, a, b Value) Value {
		y, ok := AsStr(b)
		if !ok {
			return r.NotImplemented
		}
		x := strOf(a)
		if !checkSize(ctx, int64(len(x)+len(y))) {
			return NewUnknown("concatenation")
		}
		return NewStr(x + y)
	})
	repeat := func(ctx *CallerContext, a, b Value) Value {
		n, ok := repeatCount(b)
		if !ok {
			return r.NotImplemented
		}
		s := strOf(a)
		if !checkRepeat(ctx, n, len(s)) {
			return NewUnknown("repetition")
		}
		return NewStr(strings.Repeat(s, int(n)))
	}
	r.binaryMethods(t, Mult, repeat)
	r.def(t, "__rmul__", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return repeat(ctx, args[0], args[1])
	})
	r.binaryMethodsForward(t, Mod, func(ctx *CallerContext, a, b Value) Value {
		return percentFormat(ctx, strOf(a), b)
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		y, ok := AsStr(b)
		if !ok {
			return r.NotImplemented
		}
		return cmpResult(op, strings.Compare(strOf(a), y))
	})
	r.def(t, "__format__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__format__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__format__")
		}
		return formatValue(ctx, NewStr(strOf(a[0])), a[1])
	})
	r.def(t, "format", func(ctx *CallerContext, args []Value, names []string) Value {
		return strFormat(ctx, strOf(args[0]), args[1:], names)
	})

	// Case and predicates.
	mapStr := func(name string, fn func(string) string) {
		r.unaryMethod(t, name, func(ctx *CallerContext, self Value) Value {
			return NewStr(fn(strOf(self)))
		})
	}
	mapStr("upper", strings.ToUpper)
	mapStr("lower", strings.ToLower)
	mapStr("casefold", strings.ToLower)
	mapStr("swapcase", func(s string) string {
		return strings.Map(func(c rune) rune {
			if unicode.IsUpper(c) {
				return unicode.ToLower(c)
			}
			return unicode.ToUpper(c)
		}, s)
	})
	mapStr("capitalize", func(s string) string {
		runes := []rune(strings.ToLower(s))
		if len(runes) > 0 {
			runes[0] = unicode.ToTitle(runes[0])
		}
		return string(runes)
	})
	mapStr("title", func(s string) string {
		prev := false
		return strings.Map(func(c rune) rune {
			out := c
			if unicode.IsLetter(c) {
				if prev {
					out = unicode.ToLower(c)
				} else {
					out = unicode.ToTitle(c)
				}
			}
			prev = unicode.IsLetter(c)
			return out
		}, s)
	})
	pred := func(name string, fn func(rune) bool, empty bool) {
		r.unaryMethod(t, name, func(ctx *CallerContext, self Value) Value {
			s := strOf(self)
			if s == "" {
				return NewBool(empty)
			}
			for _, c := range s {
				if !fn(c) {
					return r.False
				}
			}
			return r.True
		})
	}
	pred("isdigit", unicode.IsDigit, false)
	pred("isdecimal", unicode.IsDigit, false)
	pred("isnumeric", unicode.IsNumber, false)
	pred("isalpha", unicode.IsLetter, false)
	pred("isalnum", func(c rune) bool { return unicode.IsLetter(c) || unicode.IsNumber(c) }, false)
	pred("isspace", unicode.IsSpace, false)
	pred("isascii", func(c rune) bool { return c < utf8.RuneSelf }, true)
	pred("isprintable", unicode.IsPrint, true)
	caseCheck := func(name string, want, other func(rune) bool) {
		r.unaryMethod(t, name, func(ctx *CallerContext, self Value) Value {
			seen := false
			for _, c := range strOf(self) {
				if other(c) {
					return r.False
				}
				seen = seen || want(c)
			}
			return NewBool(seen)
		})
	}
	caseCheck("isupper", unicode.IsUpper, unicode.IsLower)
	caseCheck("islower", unicode.IsLower, unicode.IsUpper)
	r.unaryMethod(t, "isidentifier", func(ctx *CallerContext, self Value) Value {
		s := strOf(self)
		for i, c := range s {
			if !(c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c))) {
				return r.False
			}
		}
		return NewBool(s != "")
	})

	// Searching.
	find := func(name string, last, raise bool) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 4)
			if !ok {
				return NewUnknown("%s", name)
			}
			sub, ok := strArg(ctx, a[1], name)
			if !ok {
				return NewUnknown("%s", name)
			}
			runes := []rune(strOf(a[0]))
			var start, end Value
			if len(a) > 2 {
				start = a[2]
			}
			if len(a) > 3 {
				end = a[3]
			}
			lo, hi, ok := strRange(ctx, runes, start, end)
			if !ok {
				return NewUnknown("%s", name)
			}
			hay := string(runes[lo:hi])
			var i int
			if last {
				i = strings.LastIndex(hay, sub)
			} else {
				i = strings.Index(hay, sub)
			}
			if i < 0 {
				if raise {
					return ctx.Raise(r.ValueError, "substring not found")
				}
				return NewInt(-1)
			}
			return NewInt(int64(lo + utf8.RuneCountInString(hay[:i])))
		})
	}
	find("find", false, false)
	find("rfind", true, false)
	find("index", false, true)
	find("rindex", true, true)
	r.def(t, "count", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "count", args, names, 2, 4)
		if !ok {
			return NewUnknown("count")
		}
		sub, ok := strArg(ctx, a[1], "count")
		if !ok {
			return NewUnknown("count")
		}
		runes := []rune(strOf(a[0]))
		var start, end Value
		if len(a) > 2 {
			start = a[2]
		}
		if len(a) > 3 {
			end = a[3]
		}
		lo, hi, ok := strRange(ctx, runes, start, end)
		if !ok {
			return NewUnknown("count")
		}
		hay := string(runes[lo:hi])
		if sub == "" {
			return NewInt(int64(utf8.RuneCountInString(hay) + 1))
		}
		return NewInt(int64(strings.Count(hay, sub)))
	})
	affix := func(name string, fn func(s, p string) bool) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 4)
			if !ok {
				return NewUnknown("%s", name)
			}
			runes := []rune(strOf(a[0]))
			var start, end Value
			if len(a) > 2 {
				start = a[2]
			}
			if len(a) > 3 {
				end = a[3]
			}
			lo, hi, ok := strRange(ctx, runes, start, end)
			if !ok {
				return NewUnknown("%s", name)
			}
			s := string(runes[lo:hi])
			cands := []Value{a[1]}
			if items, ok := tupleItems(a[1]); ok {
				cands = items
			}
			for _, c := range cands {
				p, ok := AsStr(c)
				if !ok {
					if IsUnknown(c) {
						return NewUnknown("%s", name)
					}
					return ctx.Raise(r.TypeError, "%s first arg must be str or a tuple of str, not %s", name, c.Type().name)
				}
				if fn(s, p) {
					return r.True
				}
			}
			return r.False
		})
	}
	affix("startswith", strings.HasPrefix)
	affix("endswith", strings.HasSuffix)

	// Transformations.
	r.def(t, "replace", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "replace", args, names, 3, 4)
		if !ok {
			return NewUnknown("replace")
		}
		ss, ok := strArgs(ctx, "replace", a[1:3])
		if !ok {
			return NewUnknown("replace")
		}
		var count Value
		if len(a) == 4 {
			count = a[3]
		}
		n, ok := intArg(ctx, count, -1)
		if !ok {
			return NewUnknown("replace")
		}
		out := strings.Replace(strOf(a[0]), ss[0], ss[1], int(n))
		if !checkSize(ctx, int64(len(out))) {
			return NewUnknown("replace")
		}
		return NewStr(out)
	})
	strip := func(name string, fn func(string, string) string, space func(string) string) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 1, 2)
			if !ok {
				return NewUnknown("%s", name)
			}
			if len(a) == 1 || a[1] == r.None {
				return NewStr(space(strOf(a[0])))
			}
			chars, ok := strArg(ctx, a[1], name)
			if !ok {
				return NewUnknown("%s", name)
			}
			return NewStr(fn(strOf(a[0]), chars))
		})
	}
	strip("strip", strings.Trim, strings.TrimSpace)
	strip("lstrip", strings.TrimLeft, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })
	strip("rstrip", strings.TrimRight, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })
	trimAffix := func(name string, fn func(string, string) string) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 2)
			if !ok {
				return NewUnknown("%s", name)
			}
			p, ok := strArg(ctx, a[1], name)
			if !ok {
				return NewUnknown("%s", name)
			}
			return NewStr(fn(strOf(a[0]), p))
		})
	}
	trimAffix("removeprefix", strings.TrimPrefix)
	trimAffix("removesuffix", strings.TrimSuffix)
	split := func(name string, right bool) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := bindArgs(ctx, name, args[1:], names, []string{"sep", "maxsplit"}, 0)
			if !ok {
				return NewUnknown("%s", name)
			}
			s := strOf(args[0])
			n, ok := intArg(ctx, a[1], -1)
			if !ok {
				return NewUnknown("%s", name)
			}
			var parts []string
			if a[0] == nil || a[0] == r.None {
				parts = splitSpace(s, int(n), right)
			} else {
				sep, ok := strArg(ctx, a[0], name)
				if !ok {
					return NewUnknown("%s", name)
				}
				if sep == "" {
					return ctx.Raise(r.ValueError, "empty separator")
				}
				parts = splitSep(s, sep, int(n), right)
			}
			items := make([]Value, len(parts))
			for i, p := range parts {
				items[i] = NewStr(p)
			}
			return NewList(items)
		})
	}
	split("split", false)
	split("rsplit", true)
	r.def(t, "splitlines", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "splitlines", args[1:], names, []string{"keepends"}, 0)
		if !ok {
			return NewUnknown("splitlines")
		}
		keep := a[0] != nil && Truth(ctx, a[0]) == r.True
		var items []Value
		s := strOf(args[0])
		for s != "" {
			i := strings.IndexAny(s, "\n\r")
			if i < 0 {
				items = append(items, NewStr(s))
				break
			}
			end := i + 1
			if s[i] == '\r' && end < len(s) && s[end] == '\n' {
				end++
			}
			if keep {
				items = append(items, NewStr(s[:end]))
			} else {
				items = append(items, NewStr(s[:i]))
			}
			s = s[end:]
		}
		return NewList(items)
	})
	partition := func(name string, right bool) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 2)
			if !ok {
				return NewUnknown("%s", name)
			}
			sep, ok := strArg(ctx, a[1], name)
			if !ok {
				return NewUnknown("%s", name)
			}
			if sep == "" {
				return ctx.Raise(r.ValueError, "empty separator")
			}
			s := strOf(a[0])
			i := strings.Index(s, sep)
			if right {
				i = strings.LastIndex(s, sep)
			}
			if i < 0 {
				if right {
					return NewTuple([]Value{NewStr(""), NewStr(""), NewStr(s)})
				}
				return NewTuple([]Value{NewStr(s), NewStr(""), NewStr("")})
			}
			return NewTuple([]Value{NewStr(s[:i]), NewStr(sep), NewStr(s[i+len(sep):])})
		})
	}
	partition("partition", false)
	partition("rpartition", true)
	r.def(t, "join", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "join", args, names, 2, 2)
		if !ok {
			return NewUnknown("join")
		}
		items, opaque := materialize(ctx, a[1])
		if opaque {
			return NewUnknown("joined string")
		}
		parts := make([]string, len(items))
		for i, item := range items {
			s, ok := AsStr(item)
			if !ok {
				if IsUnknown(item) {
					return NewUnknown("joined string")
				}
				return ctx.Raise(r.TypeError, "sequence item %d: expected str instance, %s found", i, item.Type().name)
			}
			parts[i] = s
		}
		out := strings.Join(parts, strOf(a[0]))
		if !checkSize(ctx, int64(len(out))) {
			return NewUnknown("joined string")
		}
		return NewStr(out)
	})
	justify := func(name string, align byte) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 3)
			if !ok {
				return NewUnknown("%s", name)
			}
			w, ok := indexOf(ctx, a[1], "'%s' object cannot be interpreted as an integer")
			if !ok {
				return NewUnknown("%s", name)
			}
			if !checkSize(ctx, w) {
				return NewUnknown("%s", name)
			}
			fill := ' '
			if len(a) == 3 {
				f, ok := strArg(ctx, a[2], name)
				if !ok {
					return NewUnknown("%s", name)
				}
				if utf8.RuneCountInString(f) != 1 {
					return ctx.Raise(r.TypeError, "The fill character must be exactly one character long")
				}
				fill, _ = utf8.DecodeRuneInString(f)
			}
			spec := formatSpec{fill: fill, align: align, width: int(w)}
			s := strOf(a[0])
			if align == '^' {
				n := int(w) - utf8.RuneCountInString(s)
				if n > 0 && n%2 == 1 && w%2 == 1 {
					left := strings.Repeat(string(fill), n/2+1)
					return NewStr(left + s + strings.Repeat(string(fill), n/2))
				}
			}
			return NewStr(spec.pad("", s, align))
		})
	}
	justify("ljust", '<')
	justify("rjust", '>')
	justify("center", '^')
	r.def(t, "zfill", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "zfill", args, names, 2, 2)
		if !ok {
			return NewUnknown("zfill")
		}
		w, ok := indexOf(ctx, a[1], "'%s' object cannot be interpreted as an integer")
		if !ok || !checkSize(ctx, w) {
			return NewUnknown("zfill")
		}
		s := strOf(a[0])
		sign := ""
		if s != "" && (s[0] == '+' || s[0] == '-') {
			sign, s = s[:1], s[1:]
		}
		spec := formatSpec{fill: '0', align: '=', width: int(w)}
		return NewStr(spec.pad(sign, s, '='))
	})
	r.def(t, "encode", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "encode", args[1:], names, []string{"encoding", "errors"}, 0)
		if !ok {
			return NewUnknown("encode")
		}
		enc := "utf-8"
		if a[0] != nil {
			if enc, ok = strArg(ctx, a[0], "encode"); !ok {
				return NewUnknown("encode")
			}
		}
		s := strOf(args[0])
		switch normalizeEncoding(enc) {
		case "utf-8":
			return NewBytes([]byte(s))
		case "ascii", "latin-1":
			limit := rune(0x7f)
			if normalizeEncoding(enc) == "latin-1" {
				limit = 0xff
			}
			out := make([]byte, 0, len(s))
			for i, c := range []rune(s) {
				if c > limit {
					return ctx.Raise(r.ValueError, "'%s' codec can't encode character %s in position %d", enc, pyQuote(string(c)), i)
				}
				out = append(out, byte(c))
			}
			return NewBytes(out)
		}
		return ctx.Raise(r.LookupError, "unknown encoding: %s", enc)
	})
}

func normalizeEncoding(enc string) string {
	switch strings.ReplaceAll(strings.ToLower(enc), "_", "-") {
	case "utf-8", "utf8":
		return "utf-8"
	case "ascii", "us-ascii":
		return "ascii"
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return "latin-1"
	}
	return enc
}

func decodeBytes(ctx *CallerContext, b []byte, encoding Value) Value {
	enc := "utf-8"
	if encoding != builtins.None {
		var ok bool
		if enc, ok = strArg(ctx, encoding, "decode"); !ok {
			return NewUnknown("decoded string")
		}
	}
	switch normalizeEncoding(enc) {
	case "utf-8":
		if !utf8.Valid(b) {
			return ctx.Raise(builtins.ValueError, "'utf-8' codec can't decode bytes")
		}
		return NewStr(string(b))
	case "ascii":
		for i, c := range b {
			if c > 0x7f {
				return ctx.Raise(builtins.ValueError, "'ascii' codec can't decode byte 0x%02x in position %d", c, i)
			}
		}
		return NewStr(string(b))
	case "latin-1":
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return NewStr(string(runes))
	}
	return ctx.Raise(builtins.LookupError, "unknown encoding: %s", enc)
}

// splitSpace splits on runs of whitespace, at most n times when n >= 0.
func splitSpace(s string, n int, right bool) []string {
	fields := strings.Fields(s)
	if n < 0 || len(fields) <= n+1 {
		return fields
	}
	if !right {
		out := slices.Clone(fields[:n])
		rest := s
		for range n {
			rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
			i := strings.IndexFunc(rest, unicode.IsSpace)
			rest = rest[i:]
		}
		return append(out, strings.TrimLeftFunc(rest, unicode.IsSpace))
	}
	rest := s
	for range n {
		rest = strings.TrimRightFunc(rest, unicode.IsSpace)
		i := strings.LastIndexFunc(rest, unicode.IsSpace)
		rest = rest[:i+1]
	}
	head := strings.TrimRightFunc(rest, unicode.IsSpace)
	return append([]string{head}, fields[len(fields)-n:]...)
}

func splitSep(s, sep string, n int, right bool) []string {
	if n < 0 {
		return strings.Split(s, sep)
	}
	if !right {
		return strings.SplitN(s, sep, n+1)
	}
	var tail []string
	for range n {
		i := strings.LastIndex(s, sep)
		if i < 0 {
			break
		}
		tail = append(tail, s[i+len(sep):])
		s = s[:i]
	}
	slices.Reverse(tail)
	return append([]string{s}, tail...)
}

func (r *Registry) setupBytes() {
	t := r.BytesType
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		cls, ok := args[0].(*Type)
		if !ok || !cls.IsSubtype(r.BytesType) {
			return ctx.Raise(r.TypeError, "bytes.__new__(X): X is not a subtype of bytes")
		}
		a, ok := bindArgs(ctx, "bytes", args[1:], names, []string{"source", "encoding", "errors"}, 0)
		if !ok {
			return NewUnknown("bytes")
		}
		var out []byte
		switch src := a[0]; {
		case src == nil:
			out = []byte{}
		case IsUnknown(src):
			ctx.Opaque("bytes() of an unknown value")
			return NewUnknown("bytes")
		case a[1] != nil:
			s, ok := AsStr(src)
			if !ok {
				return ctx.Raise(r.TypeError, "encoding without a string argument")
			}
			enc := CallMethod(ctx, NewStr(s), "encode", a[1])
			b, ok := AsBytes(enc)
			if !ok {
				return enc
			}
			out = b
		default:
			if _, ok := AsStr(src); ok {
				return ctx.Raise(r.TypeError, "string argument without an encoding")
			}
			if b, ok := AsBytes(src); ok {
				out = slices.Clone(b)
				break
			}
			if n, ok := AsInt(src); ok {
				if n.Sign() < 0 {
					return ctx.Raise(r.ValueError, "negative count")
				}
				if !n.IsInt64() || !checkSize(ctx, n.Int64()) {
					return NewUnknown("bytes")
				}
				out = make([]byte, n.Int64())
				break
			}
			items, opaque := materialize(ctx, src)
			if opaque {
				return NewUnknown("bytes")
			}
			for _, item := range items {
				n, ok := AsInt(item)
				if !ok {
					if IsUnknown(item) {
						return NewUnknown("bytes")
					}
					return ctx.Raise(r.TypeError, "'%s' object cannot be interpreted as an integer", item.Type().name)
				}
				if !n.IsInt64() || n.Int64() < 0 || n.Int64() > 255 {
					return ctx.Raise(r.ValueError, "bytes must be in range(0, 256)")
				}
				out = append(out, byte(n.Int64()))
			}
		}
		inst := cls.ConstructInstance()
		inst.payload = out
		return inst
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(bytesQuote(bytesOf(self)))
	})
	r.unaryMethod(t, "__hash__", sideEffectHash)
	r.unaryMethod(t, "__len__", func(ctx *CallerContext, self Value) Value {
		return NewInt(int64(len(bytesOf(self))))
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		return NewIterator(&bytesIter{b: bytesOf(self)})
	})
	r.def(t, "__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("item")
		}
		b := bytesOf(a[0])
		if IsUnknown(a[1]) {
			ctx.Opaque("bytes subscript with an unknown index")
			return NewUnknown("item")
		}
		if s, ok := asSlice(a[1]); ok {
			start, stop, step, ok := sliceIndices(ctx, s, len(b))
			if !ok {
				return NewUnknown("slice")
			}
			return NewBytes(selectItems(b, start, stop, step))
		}
		i, ok := seqIndex(ctx, a[1], len(b), "index")
		if !ok {
			return NewUnknown("item")
		}
		return NewInt(int64(b[i]))
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		b := bytesOf(a[0])
		if sub, ok := AsBytes(a[1]); ok {
			return NewBool(bytes.Contains(b, sub))
		}
		if n, ok := AsInt(a[1]); ok {
			if !n.IsInt64() || n.Int64() < 0 || n.Int64() > 255 {
				return ctx.Raise(r.ValueError, "byte must be in range(0, 256)")
			}
			return NewBool(bytes.IndexByte(b, byte(n.Int64())) >= 0)
		}
		if IsUnknown(a[1]) {
			return NewUnknown("membership")
		}
		return ctx.Raise(r.TypeError, "a bytes-like object is required, not '%s'", a[1].Type().name)
	})
	r.binaryMethodsForward(t, Add, func(ctx *CallerContext, a, b Value) Value {
		y, ok := AsBytes(b)
		if !ok {
			return r.NotImplemented
		}
		x := bytesOf(a)
		if !checkSize(ctx, int64(len(x)+len(y))) {
			return NewUnknown("concatenation")
		}
		return NewBytes(append(slices.Clone(x), y...))
	})
	repeat := func(ctx *CallerContext, a, b Value) Value {
		n, ok := repeatCount(b)
		if !ok {
			return r.NotImplemented
		}
		x := bytesOf(a)
		if !checkRepeat(ctx, n, len(x)) {
			return NewUnknown("repetition")
		}
		return NewBytes(bytes.Repeat(x, int(n)))
	}
	r.binaryMethods(t, Mult, repeat)
	r.def(t, "__rmul__", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return repeat(ctx, args[0], args[1])
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		y, ok := AsBytes(b)
		if !ok {
			return r.NotImplemented
		}
		return cmpResult(op, bytes.Compare(bytesOf(a), y))
	})
	r.def(t, "decode", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "decode", args[1:], names, []string{"encoding", "errors"}, 0)
		if !ok {
			return NewUnknown("decode")
		}
		return decodeBytes(ctx, bytesOf(args[0]), orNone(a[0]))
	})
	r.unaryMethod(t, "hex", func(ctx *CallerContext, self Value) Value {
		return NewStr(hex.EncodeToString(bytesOf(self)))
	})
	r.def(t, "join", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "join", args, names, 2, 2)
		if !ok {
			return NewUnknown("join")
		}
		items, opaque := materialize(ctx, a[1])
		if opaque {
			return NewUnknown("joined bytes")
		}
		parts := make([][]byte, len(items))
		for i, item := range items {
			b, ok := AsBytes(item)
			if !ok {
				if IsUnknown(item) {
					return NewUnknown("joined bytes")
				}
				return ctx.Raise(r.TypeError, "sequence item %d: expected a bytes-like object, %s found", i, item.Type().name)
			}
			parts[i] = b
		}
		return NewBytes(bytes.Join(parts, bytesOf(a[0])))
	})
	affix := func(name string, fn func(s, p []byte) bool) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 2)
			if !ok {
				return NewUnknown("%s", name)
			}
			cands := []Value{a[1]}
			if items, ok := tupleItems(a[1]); ok {
				cands = items
			}
			for _, c := range cands {
				p, ok := AsBytes(c)
				if !ok {
					return ctx.Raise(r.TypeError, "%s first arg must be bytes or a tuple of bytes, not %s", name, c.Type().name)
				}
				if fn(bytesOf(a[0]), p) {
					return r.True
				}
			}
			return r.False
		})
	}
	affix("startswith", bytes.HasPrefix)
	affix("endswith", bytes.HasSuffix)
	r.unaryMethod(t, "upper", func(ctx *CallerContext, self Value) Value { return NewBytes(bytes.ToUpper(bytesOf(self))) })
	r.unaryMethod(t, "lower", func(ctx *CallerContext, self Value) Value { return NewBytes(bytes.ToLower(bytesOf(self))) })
}
