package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var knownKinds = map[NodeKind]bool{
	KindExpr: true, KindAssign: true, KindAugAssign: true, KindAnnAssign: true,
	KindDelete: true, KindPass: true, KindIf: true, KindWhile: true, KindFor: true,
	KindBreak: true, KindContinue: true, KindFunctionDef: true, KindReturn: true,
	KindClassDef: true, KindImport: true, KindImportFrom: true, KindGlobal: true,
	KindNonlocal: true, KindRaise: true, KindTry: true, KindAssert: true,

	KindConstant: true, KindName: true, KindAttribute: true, KindSubscript: true,
	KindSlice: true, KindCall: true, KindKeyword: true, KindBinOp: true,
	KindUnaryOp: true, KindBoolOp: true, KindCompare: true, KindIfExp: true,
	KindList: true, KindTuple: true, KindDict: true, KindSet: true,
	KindLambda: true, KindListComp: true, KindComprehension: true,
	KindStarred: true, KindJoinedStr: true, KindFormattedValue: true,
	KindExceptHandler: true,
}

// IsKnownKind reports whether k is a node kind the analyzer understands.
func IsKnownKind(k NodeKind) bool {
	return knownKinds[k]
}

// DecodeError reports a syntax tree that could not be decoded.
type DecodeError struct {
	File    string
	Path    string // node path, e.g. body[2].value.args[0]
	Message string
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// DecodeModule decodes a syntax tree. YAML is accepted for any input that is
// not a JSON object, so hand-written fixtures can use either form. Unknown
// fields and unknown node kinds are rejected.
func DecodeModule(data []byte) (*Module, error) {
	var m Module
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, &DecodeError{Message: fmt.Sprintf("invalid YAML: %v", err)}
		}
	}
	if m.Name == "" {
		return nil, &DecodeError{Message: "module name is required"}
	}
	if err := checkKinds(m.Body, "body"); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeModuleFile reads and decodes a syntax tree file. The module's File
// defaults to path when the tree does not name one.
func DecodeModuleFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	m, err := DecodeModule(data)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.File = path
		}
		return nil, err
	}
	if m.File == "" {
		m.File = filepath.ToSlash(path)
	}
	return m, nil
}

func checkKinds(nodes []*Node, path string) error {
	for i, n := range nodes {
		if err := checkKind(n, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(n *Node, path string) error {
	if n == nil {
		return nil
	}
	if !knownKinds[n.Kind] {
		return &DecodeError{Path: path, Message: fmt.Sprintf("unknown node kind %q", n.Kind)}
	}
	singles := []struct {
		name string
		node *Node
	}{
		{"value", n.Value}, {"index", n.Index}, {"lower", n.Lower}, {"upper", n.Upper},
		{"step", n.Step}, {"func", n.Func}, {"left", n.Left}, {"right", n.Right},
		{"operand", n.Operand}, {"test", n.Test}, {"then", n.Then}, {"else", n.Else},
		{"target", n.Target}, {"annotation", n.Annotation}, {"iter", n.Iter},
		{"elt", n.Elt}, {"cause", n.Cause}, {"msg", n.Msg}, {"spec", n.Spec},
	}
	for _, s := range singles {
		if err := checkKind(s.node, path+"."+s.name); err != nil {
			return err
		}
	}
	lists := []struct {
		name  string
		nodes []*Node
	}{
		{"args", n.Args}, {"keywords", n.Keywords}, {"values", n.Values},
		{"comparators", n.Comparators}, {"elts", n.Elts}, {"keys", n.Keys},
		{"targets", n.Targets}, {"body", n.Body}, {"orelse", n.Orelse},
		{"finalbody", n.Finalbody}, {"handlers", n.Handlers}, {"ifs", n.Ifs},
		{"generators", n.Generators}, {"decorators", n.Decorators}, {"bases", n.Bases},
	}
	for _, l := range lists {
		if err := checkKinds(l.nodes, path+"."+l.name); err != nil {
			return err
		}
	}
	for i, p := range n.Params {
		if p == nil {
			continue
		}
		if err := checkKind(p.Default, fmt.Sprintf("%s.params[%d].default", path, i)); err != nil {
			return err
		}
	}
	return nil
}
