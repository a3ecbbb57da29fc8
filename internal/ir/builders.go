package ir

import "strconv"

// Builders construct syntax trees in Go code. Tests and the scenario harness
// use them in place of parser output.

// NewModule returns a module with the given body.
func NewModule(name string, body ...*Node) *Module {
	return &Module{Name: name, File: name + ".py", Body: body}
}

// At sets the node's source line and returns the node.
func (n *Node) At(line int) *Node {
	n.Line = line
	return n
}

// Int builds an int constant.
func Int(v int64) *Node {
	return &Node{Kind: KindConstant, Type: ConstInt, Literal: strconv.FormatInt(v, 10)}
}

// BigInt builds an int constant from its decimal text.
func BigInt(text string) *Node {
	return &Node{Kind: KindConstant, Type: ConstInt, Literal: text}
}

// Float builds a float constant from its literal text.
func Float(text string) *Node {
	return &Node{Kind: KindConstant, Type: ConstFloat, Literal: text}
}

// Str builds a str constant.
func Str(s string) *Node {
	return &Node{Kind: KindConstant, Type: ConstStr, Literal: s}
}

// Bool builds True or False.
func Bool(b bool) *Node {
	lit := "False"
	if b {
		lit = "True"
	}
	return &Node{Kind: KindConstant, Type: ConstBool, Literal: lit}
}

// None builds the None constant.
func None() *Node {
	return &Node{Kind: KindConstant, Type: ConstNone}
}

// Name builds a name reference or assignment target.
func Name(id string) *Node {
	return &Node{Kind: KindName, ID: id}
}

// Attribute builds value.attr.
func Attribute(value *Node, attr string) *Node {
	return &Node{Kind: KindAttribute, Value: value, Attr: attr}
}

// Subscript builds value[index].
func Subscript(value, index *Node) *Node {
	return &Node{Kind: KindSubscript, Value: value, Index: index}
}

// SliceOf builds lower:upper:step; any part may be nil.
func SliceOf(lower, upper, step *Node) *Node {
	return &Node{Kind: KindSlice, Lower: lower, Upper: upper, Step: step}
}

// Call builds fn(args...).
func Call(fn *Node, args ...*Node) *Node {
	return &Node{Kind: KindCall, Func: fn, Args: args}
}

// CallKw builds fn(args..., name=value...).
func CallKw(fn *Node, args []*Node, keywords ...*Node) *Node {
	return &Node{Kind: KindCall, Func: fn, Args: args, Keywords: keywords}
}

// Keyword builds name=value. An empty name is a **mapping splat.
func Keyword(name string, value *Node) *Node {
	return &Node{Kind: KindKeyword, ID: name, Value: value}
}

// BinOp builds left op right, with op spelled as in source ("+", "//", ...).
func BinOp(left *Node, op string, right *Node) *Node {
	return &Node{Kind: KindBinOp, Left: left, Op: op, Right: right}
}

// Unary builds op operand ("-", "+", "~", "not").
func Unary(op string, operand *Node) *Node {
	return &Node{Kind: KindUnaryOp, Op: op, Operand: operand}
}

// BoolOp builds an and/or chain.
func BoolOp(op string, values ...*Node) *Node {
	return &Node{Kind: KindBoolOp, Op: op, Values: values}
}

// Compare builds left op0 c0 op1 c1 ...
func Compare(left *Node, ops []string, comparators ...*Node) *Node {
	return &Node{Kind: KindCompare, Left: left, Ops: ops, Comparators: comparators}
}

// Cmp builds a single comparison.
func Cmp(left *Node, op string, right *Node) *Node {
	return Compare(left, []string{op}, right)
}

// IfExp builds then if test else orelse.
func IfExp(test, then, orelse *Node) *Node {
	return &Node{Kind: KindIfExp, Test: test, Then: then, Else: orelse}
}

// List builds a list display.
func List(elts ...*Node) *Node {
	return &Node{Kind: KindList, Elts: elts}
}

// Tuple builds a tuple display.
func Tuple(elts ...*Node) *Node {
	return &Node{Kind: KindTuple, Elts: elts}
}

// Set builds a set display.
func Set(elts ...*Node) *Node {
	return &Node{Kind: KindSet, Elts: elts}
}

// Dict builds a dict display from parallel key and value lists.
func Dict(keys []*Node, values []*Node) *Node {
	return &Node{Kind: KindDict, Keys: keys, Values: values}
}

// Starred builds *value.
func Starred(value *Node) *Node {
	return &Node{Kind: KindStarred, Value: value}
}

// Lambda builds lambda params: body.
func Lambda(params []*Param, body *Node) *Node {
	return &Node{Kind: KindLambda, Params: params, Value: body}
}

// ListComp builds [elt for ...].
func ListComp(elt *Node, generators ...*Node) *Node {
	return &Node{Kind: KindListComp, Elt: elt, Generators: generators}
}

// Comprehension builds one comprehension clause "for target in iter if ifs...".
func Comprehension(target, iter *Node, ifs ...*Node) *Node {
	return &Node{Kind: KindComprehension, Target: target, Iter: iter, Ifs: ifs}
}

// FString builds a JoinedStr from literal and formatted parts.
func FString(parts ...*Node) *Node {
	return &Node{Kind: KindJoinedStr, Values: parts}
}

// Formatted builds the {value} part of an f-string.
func Formatted(value *Node) *Node {
	return &Node{Kind: KindFormattedValue, Value: value}
}

// FormattedAs builds {value!conv:spec}; conv may be empty and spec nil.
func FormattedAs(value *Node, conv string, spec *Node) *Node {
	return &Node{Kind: KindFormattedValue, Value: value, Op: conv, Spec: spec}
}

// ExprStmt builds an expression statement.
func ExprStmt(value *Node) *Node {
	return &Node{Kind: KindExpr, Value: value}
}

// Assign builds target = value.
func Assign(target *Node, value *Node) *Node {
	return &Node{Kind: KindAssign, Targets: []*Node{target}, Value: value}
}

// AssignName builds name = value.
func AssignName(name string, value *Node) *Node {
	return Assign(Name(name), value)
}

// AugAssign builds target op= value, with op spelled without "=".
func AugAssign(target *Node, op string, value *Node) *Node {
	return &Node{Kind: KindAugAssign, Target: target, Op: op, Value: value}
}

// AnnAssign builds target: annotation = value; value may be nil.
func AnnAssign(target, annotation, value *Node) *Node {
	return &Node{Kind: KindAnnAssign, Target: target, Annotation: annotation, Value: value}
}

// Delete builds del targets.
func Delete(targets ...*Node) *Node {
	return &Node{Kind: KindDelete, Targets: targets}
}

// Pass builds pass.
func Pass() *Node {
	return &Node{Kind: KindPass}
}

// If builds an if statement.
func If(test *Node, body []*Node, orelse ...*Node) *Node {
	return &Node{Kind: KindIf, Test: test, Body: body, Orelse: orelse}
}

// While builds a while loop.
func While(test *Node, body ...*Node) *Node {
	return &Node{Kind: KindWhile, Test: test, Body: body}
}

// ForLoop builds for target in iter: body.
func ForLoop(target, iter *Node, body ...*Node) *Node {
	return &Node{Kind: KindFor, Target: target, Iter: iter, Body: body}
}

// Break builds break.
func Break() *Node {
	return &Node{Kind: KindBreak}
}

// Continue builds continue.
func Continue() *Node {
	return &Node{Kind: KindContinue}
}

// P builds a positional parameter.
func P(name string) *Param {
	return &Param{Name: name, Kind: ParamPositional}
}

// PDefault builds a positional parameter with a default.
func PDefault(name string, def *Node) *Param {
	return &Param{Name: name, Kind: ParamPositional, Default: def}
}

// PVar builds *name.
func PVar(name string) *Param {
	return &Param{Name: name, Kind: ParamVarArgs}
}

// PKwOnly builds a keyword-only parameter; def may be nil.
func PKwOnly(name string, def *Node) *Param {
	return &Param{Name: name, Kind: ParamKwOnly, Default: def}
}

// PKw builds **name.
func PKw(name string) *Param {
	return &Param{Name: name, Kind: ParamKwArgs}
}

// FunctionDef builds def name(params): body.
func FunctionDef(name string, params []*Param, body ...*Node) *Node {
	return &Node{Kind: KindFunctionDef, ID: name, Params: params, Body: body}
}

// Decorated attaches decorators (outermost first) to a def or class.
func Decorated(def *Node, decorators ...*Node) *Node {
	def.Decorators = decorators
	return def
}

// Return builds return value; value may be nil.
func Return(value *Node) *Node {
	return &Node{Kind: KindReturn, Value: value}
}

// ClassDef builds class name(bases): body.
func ClassDef(name string, bases []*Node, body ...*Node) *Node {
	return &Node{Kind: KindClassDef, ID: name, Bases: bases, Body: body}
}

// WithKeywords attaches class keywords such as metaclass= and returns def.
func WithKeywords(def *Node, keywords ...*Node) *Node {
	def.Keywords = keywords
	return def
}

// RaiseFrom builds raise exc from cause.
func RaiseFrom(exc, cause *Node) *Node {
	return &Node{Kind: KindRaise, Value: exc, Cause: cause}
}

// Import builds import a.b as c, ...
func Import(names ...*Alias) *Node {
	return &Node{Kind: KindImport, Names: names}
}

// ImportFrom builds from module import names.
func ImportFrom(module string, names ...*Alias) *Node {
	return &Node{Kind: KindImportFrom, Module: module, Names: names}
}

// As builds an import alias; asName may be empty.
func As(name, asName string) *Alias {
	return &Alias{Name: name, AsName: asName}
}

// Global builds global names.
func Global(names ...string) *Node {
	return &Node{Kind: KindGlobal, Identifiers: names}
}

// Nonlocal builds nonlocal names.
func Nonlocal(names ...string) *Node {
	return &Node{Kind: KindNonlocal, Identifiers: names}
}

// Raise builds raise exc; exc may be nil for a bare re-raise.
func Raise(exc *Node) *Node {
	return &Node{Kind: KindRaise, Value: exc}
}

// Try builds a try statement.
func Try(body []*Node, handlers []*Node, orelse []*Node, finalbody []*Node) *Node {
	return &Node{Kind: KindTry, Body: body, Handlers: handlers, Orelse: orelse, Finalbody: finalbody}
}

// Except builds except typ as name: body; typ and name may be empty.
func Except(typ *Node, name string, body ...*Node) *Node {
	return &Node{Kind: KindExceptHandler, Value: typ, ID: name, Body: body}
}

// Assert builds assert test, msg; msg may be nil.
func Assert(test, msg *Node) *Node {
	return &Node{Kind: KindAssert, Test: test, Msg: msg}
}
