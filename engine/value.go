package engine

import (
	"fmt"
	"strconv"
)

// Value represents a Hazel script value.
//
// Values are small tagged structs rather than boxed interfaces: the tag
// selects which payload field is meaningful, and the accessor methods
// panic when called with the wrong tag. Callers are expected to check
// the predicate first, exactly like slot access on objects.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	obj  *Object
	fn   *Function
}

// Kind identifies the type of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
	KindFunction
)

// Pre-defined singleton values.
var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBoolean, b: true}
	False     = Value{kind: KindBoolean, b: false}
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// FromBool creates a boolean Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromNumber creates a number Value.
func FromNumber(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// FromString creates a string Value.
func FromString(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromObject creates an object Value. A nil object yields Null.
func FromObject(obj *Object) Value {
	if obj == nil {
		return Null
	}
	return Value{kind: KindObject, obj: obj}
}

// FromFunction creates a function Value. A nil function yields Null.
func FromFunction(fn *Function) Value {
	if fn == nil {
		return Null
	}
	return Value{kind: KindFunction, fn: fn}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined returns true if v is the undefined value.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull returns true if v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBool returns true if v is a boolean.
func (v Value) IsBool() bool { return v.kind == KindBoolean }

// IsNumber returns true if v is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsString returns true if v is a string.
func (v Value) IsString() bool { return v.kind == KindString }

// IsObject returns true if v is a plain object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsFunction returns true if v is a callable function value.
func (v Value) IsFunction() bool { return v.kind == KindFunction }

// ---------------------------------------------------------------------------
// Payload accessors
// ---------------------------------------------------------------------------

// Bool returns the boolean payload. Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.kind != KindBoolean {
		panic("Value.Bool: not a boolean")
	}
	return v.b
}

// Num returns the number payload. Panics if v is not a number.
func (v Value) Num() float64 {
	if v.kind != KindNumber {
		panic("Value.Num: not a number")
	}
	return v.num
}

// Str returns the string payload. Panics if v is not a string.
func (v Value) Str() string {
	if v.kind != KindString {
		panic("Value.Str: not a string")
	}
	return v.str
}

// Object returns the object payload. Panics if v is not an object.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		panic("Value.Object: not an object")
	}
	return v.obj
}

// Function returns the function payload. Panics if v is not a function.
func (v Value) Function() *Function {
	if v.kind != KindFunction {
		panic("Value.Function: not a function")
	}
	return v.fn
}

// Same reports whether two values are identical: same tag and, for
// objects and functions, the same referent. Numbers, strings, and
// booleans compare by payload.
func (v Value) Same(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindObject:
		return v.obj == other.obj
	case KindFunction:
		return v.fn == other.fn
	case KindBoolean:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	}
	return true // undefined == undefined, null == null
}

// String returns a debug representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindObject:
		return fmt.Sprintf("object@%p", v.obj)
	case KindFunction:
		return fmt.Sprintf("function %s", v.fn.Name())
	}
	return "invalid"
}
