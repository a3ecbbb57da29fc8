package objects

import (
	"fmt"
	"math/big"
)

// Kind identifies which Value variant a value is.
type Kind uint8

const (
	KindInstance Kind = iota + 1
	KindType
	KindUnknown
	kindNotHandled
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindType:
		return "type"
	case KindUnknown:
		return "unknown"
	case kindNotHandled:
		return "not-handled"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is an abstract value: a concrete instance, a type object, or an
// unknown placeholder.
//
// The interface is sealed. Only *Instance, *Type, *Unknown and the operator
// engine's private sentinel implement it. Type never returns nil.
type Value interface {
	Type() *Type
	Kind() Kind
	sealed()
}

// Instance is a concrete value of some type. dict is nil for instances that
// have no attribute namespace (ints, strings and other built-in immutables).
// payload carries native state for built-in types and their subclasses.
type Instance struct {
	typ     *Type
	dict    *Namespace
	payload any
}

func (i *Instance) Type() *Type { return i.typ }
func (i *Instance) Kind() Kind  { return KindInstance }
func (*Instance) sealed()       {}

// Dict returns the instance namespace, or nil.
func (i *Instance) Dict() *Namespace { return i.dict }

// Payload returns the native state of a built-in value.
func (i *Instance) Payload() any { return i.payload }

// NewInstance creates an instance with an explicit payload. A namespace is
// allocated when the type's instances carry one.
func NewInstance(t *Type, payload any) *Instance {
	inst := &Instance{typ: t, payload: payload}
	if t.hasInstanceDict() {
		inst.dict = NewNamespace()
	}
	return inst
}

// Unknown stands for a value the analyzer cannot determine. Every protocol
// operation accepts it and answers with another Unknown.
type Unknown struct {
	Reason string

	// tail marks the placeholder that stands for the unmaterialized rest of
	// an iteration.
	tail bool
}

// NewUnknown creates an Unknown carrying a short reason for diagnostics.
func NewUnknown(format string, args ...any) *Unknown {
	return &Unknown{Reason: fmt.Sprintf(format, args...)}
}

func (*Unknown) Type() *Type { return builtins.OpaqueType }
func (*Unknown) Kind() Kind  { return KindUnknown }
func (*Unknown) sealed()     {}

// IsUnknown reports whether v is an Unknown placeholder.
func IsUnknown(v Value) bool {
	_, ok := v.(*Unknown)
	return ok
}

// anyUnknown reports whether any of vs is Unknown.
func anyUnknown(vs ...Value) bool {
	for _, v := range vs {
		if IsUnknown(v) {
			return true
		}
	}
	return false
}

// notHandled is returned by a single operator attempt that did not apply.
// It never escapes the operator engine.
type notHandled struct{}

func (notHandled) Type() *Type { return builtins.NotImplementedType }
func (notHandled) Kind() Kind  { return kindNotHandled }
func (notHandled) sealed()     {}

var sentinel Value = notHandled{}

func isNotHandled(v Value) bool {
	_, ok := v.(notHandled)
	return ok
}

// Same reports whether a and b are interchangeable for branch merging:
// the same object, two Unknowns, or equal built-in scalars.
func Same(a, b Value) bool {
	if a == b {
		return true
	}
	if IsUnknown(a) && IsUnknown(b) {
		return true
	}
	ai, ok1 := a.(*Instance)
	bi, ok2 := b.(*Instance)
	if !ok1 || !ok2 || ai.typ != bi.typ || ai.dict != nil || bi.dict != nil {
		return false
	}
	switch x := ai.payload.(type) {
	case *big.Int:
		y, ok := bi.payload.(*big.Int)
		return ok && x.Cmp(y) == 0
	case float64:
		y, ok := bi.payload.(float64)
		return ok && x == y
	case string:
		y, ok := bi.payload.(string)
		return ok && x == y
	case []byte:
		y, ok := bi.payload.([]byte)
		return ok && string(x) == string(y)
	}
	return false
}
