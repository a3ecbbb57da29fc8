package ir

// NodeKind discriminates the syntax tree node variants.
//
// The set mirrors the host language grammar one-to-one for the statements and
// expressions the analyzer understands. DecodeModule rejects unknown kinds;
// trees built in code may still carry them, and the analyzer reports those
// as SyntaxError diagnostics and keeps going.
type NodeKind string

// Statement kinds.
const (
	KindExpr        NodeKind = "Expr"
	KindAssign      NodeKind = "Assign"
	KindAugAssign   NodeKind = "AugAssign"
	KindAnnAssign   NodeKind = "AnnAssign"
	KindDelete      NodeKind = "Delete"
	KindPass        NodeKind = "Pass"
	KindIf          NodeKind = "If"
	KindWhile       NodeKind = "While"
	KindFor         NodeKind = "For"
	KindBreak       NodeKind = "Break"
	KindContinue    NodeKind = "Continue"
	KindFunctionDef NodeKind = "FunctionDef"
	KindReturn      NodeKind = "Return"
	KindClassDef    NodeKind = "ClassDef"
	KindImport      NodeKind = "Import"
	KindImportFrom  NodeKind = "ImportFrom"
	KindGlobal      NodeKind = "Global"
	KindNonlocal    NodeKind = "Nonlocal"
	KindRaise       NodeKind = "Raise"
	KindTry         NodeKind = "Try"
	KindAssert      NodeKind = "Assert"
)

// Expression kinds.
const (
	KindConstant       NodeKind = "Constant"
	KindName           NodeKind = "Name"
	KindAttribute      NodeKind = "Attribute"
	KindSubscript      NodeKind = "Subscript"
	KindSlice          NodeKind = "Slice"
	KindCall           NodeKind = "Call"
	KindKeyword        NodeKind = "keyword"
	KindBinOp          NodeKind = "BinOp"
	KindUnaryOp        NodeKind = "UnaryOp"
	KindBoolOp         NodeKind = "BoolOp"
	KindCompare        NodeKind = "Compare"
	KindIfExp          NodeKind = "IfExp"
	KindList           NodeKind = "List"
	KindTuple          NodeKind = "Tuple"
	KindDict           NodeKind = "Dict"
	KindSet            NodeKind = "Set"
	KindLambda         NodeKind = "Lambda"
	KindListComp       NodeKind = "ListComp"
	KindComprehension  NodeKind = "comprehension"
	KindStarred        NodeKind = "Starred"
	KindJoinedStr      NodeKind = "JoinedStr"
	KindFormattedValue NodeKind = "FormattedValue"
	KindExceptHandler  NodeKind = "ExceptHandler"
)

// Constant literal types. Literal text is kept verbatim so the IR never
// carries floats.
const (
	ConstInt      = "int"
	ConstStr      = "str"
	ConstBool     = "bool"
	ConstNone     = "none"
	ConstFloat    = "float"
	ConstBytes    = "bytes"
	ConstEllipsis = "ellipsis"
)

// Parameter kinds for FunctionDef and Lambda.
const (
	ParamPositional = "positional"
	ParamVarArgs    = "vararg"
	ParamKwOnly     = "kwonly"
	ParamKwArgs     = "kwarg"
)

// Module is a parsed module as produced by the external parser.
type Module struct {
	Name string  `json:"name" yaml:"name"`
	File string  `json:"file,omitempty" yaml:"file,omitempty"`
	Body []*Node `json:"body" yaml:"body"`
}

// Node is a single syntax tree node. Only the fields relevant to Kind are
// populated; the rest stay at their zero value and are omitted on encode.
type Node struct {
	Kind NodeKind `json:"kind" yaml:"kind"`
	Line int      `json:"line,omitempty" yaml:"line,omitempty"`
	Col  int      `json:"col,omitempty" yaml:"col,omitempty"`

	// Names and literals.
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Attr    string `json:"attr,omitempty" yaml:"attr,omitempty"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty"` // operator, or FormattedValue conversion

	// Single children.
	Value      *Node `json:"value,omitempty" yaml:"value,omitempty"`
	Index      *Node `json:"index,omitempty" yaml:"index,omitempty"`
	Lower      *Node `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper      *Node `json:"upper,omitempty" yaml:"upper,omitempty"`
	Step       *Node `json:"step,omitempty" yaml:"step,omitempty"`
	Func       *Node `json:"func,omitempty" yaml:"func,omitempty"`
	Left       *Node `json:"left,omitempty" yaml:"left,omitempty"`
	Right      *Node `json:"right,omitempty" yaml:"right,omitempty"`
	Operand    *Node `json:"operand,omitempty" yaml:"operand,omitempty"`
	Test       *Node `json:"test,omitempty" yaml:"test,omitempty"`
	Then       *Node `json:"then,omitempty" yaml:"then,omitempty"`
	Else       *Node `json:"else,omitempty" yaml:"else,omitempty"`
	Target     *Node `json:"target,omitempty" yaml:"target,omitempty"`
	Annotation *Node `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Iter       *Node `json:"iter,omitempty" yaml:"iter,omitempty"`
	Elt        *Node `json:"elt,omitempty" yaml:"elt,omitempty"`
	Cause      *Node `json:"cause,omitempty" yaml:"cause,omitempty"`
	Msg        *Node `json:"msg,omitempty" yaml:"msg,omitempty"`
	Spec       *Node `json:"spec,omitempty" yaml:"spec,omitempty"` // FormattedValue format spec

	// Child lists.
	Args        []*Node  `json:"args,omitempty" yaml:"args,omitempty"`
	Keywords    []*Node  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Values      []*Node  `json:"values,omitempty" yaml:"values,omitempty"`
	Ops         []string `json:"ops,omitempty" yaml:"ops,omitempty"`
	Comparators []*Node  `json:"comparators,omitempty" yaml:"comparators,omitempty"`
	Elts        []*Node  `json:"elts,omitempty" yaml:"elts,omitempty"`
	Keys        []*Node  `json:"keys,omitempty" yaml:"keys,omitempty"`
	Targets     []*Node  `json:"targets,omitempty" yaml:"targets,omitempty"`
	Body        []*Node  `json:"body,omitempty" yaml:"body,omitempty"`
	Orelse      []*Node  `json:"orelse,omitempty" yaml:"orelse,omitempty"`
	Finalbody   []*Node  `json:"finalbody,omitempty" yaml:"finalbody,omitempty"`
	Handlers    []*Node  `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Ifs         []*Node  `json:"ifs,omitempty" yaml:"ifs,omitempty"`
	Generators  []*Node  `json:"generators,omitempty" yaml:"generators,omitempty"`
	Decorators  []*Node  `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Bases       []*Node  `json:"bases,omitempty" yaml:"bases,omitempty"`
	Params      []*Param `json:"params,omitempty" yaml:"params,omitempty"`
	Names       []*Alias `json:"names,omitempty" yaml:"names,omitempty"`
	Identifiers []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`

	// ImportFrom.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
	Level  int    `json:"level,omitempty" yaml:"level,omitempty"`
}

// Param is one formal parameter of a function or lambda.
type Param struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"` // defaults to "positional"
	Default *Node  `json:"default,omitempty" yaml:"default,omitempty"`
}

// Alias is one imported name: "import a.b as c" or "from m import x as y".
type Alias struct {
	Name   string `json:"name" yaml:"name"`
	AsName string `json:"asname,omitempty" yaml:"asname,omitempty"`
}

// Loc returns the node location within file.
func (n *Node) Loc(file string) Location {
	if n == nil {
		return Location{File: file}
	}
	return Location{File: file, Line: n.Line, Col: n.Col}
}

// BoundName returns the name an import alias binds in the importing scope.
func (a *Alias) BoundName() string {
	if a.AsName != "" {
		return a.AsName
	}
	for i := 0; i < len(a.Name); i++ {
		if a.Name[i] == '.' {
			return a.Name[:i]
		}
	}
	return a.Name
}
