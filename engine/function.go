package engine

// NativeFunc is the signature of a native callback backing a script
// function value. The callback reads its arguments from the CallInfo and
// reports its result through CallInfo.Return; a callback that never calls
// Return yields Undefined.
type NativeFunc func(call *CallInfo)

// Function is a callable script value backed by a native callback.
//
// A Function carries opaque bound data supplied at construction time;
// the callback retrieves it through CallInfo.Data. This is how bridges
// thread their own state through shared function values without
// allocating a closure per script object.
//
// Function values never root script state: the collector's mark phase
// traverses object-valued properties only, so an object reachable
// solely through a function's bound data is still collectable. Bridges
// that need an object kept alive hold it through a strong handle or the
// root set, not through bound data.
type Function struct {
	name string
	fn   NativeFunc
	data any
}

// NewFunction creates a function value with the given diagnostic name,
// bound data, and native callback.
func NewFunction(name string, data any, fn NativeFunc) *Function {
	if fn == nil {
		panic("NewFunction: nil callback")
	}
	return &Function{name: name, fn: fn, data: data}
}

// Name returns the function's diagnostic name.
func (f *Function) Name() string { return f.name }

// Data returns the opaque data bound at construction time.
func (f *Function) Data() any { return f.data }

// ---------------------------------------------------------------------------
// CallInfo
// ---------------------------------------------------------------------------

// CallInfo carries the arguments and context of a single native call.
type CallInfo struct {
	eng       *Engine
	this      *Object
	args      []Value
	construct bool
	data      any
	ret       Value
}

// Engine returns the engine performing the call.
func (c *CallInfo) Engine() *Engine { return c.eng }

// This returns the receiver object, or nil for a bare call.
func (c *CallInfo) This() *Object { return c.this }

// Len returns the number of arguments.
func (c *CallInfo) Len() int { return len(c.args) }

// Arg returns the i'th argument, or Undefined if out of range.
func (c *CallInfo) Arg(i int) Value {
	if i < 0 || i >= len(c.args) {
		return Undefined
	}
	return c.args[i]
}

// Args returns the argument list.
func (c *CallInfo) Args() []Value { return c.args }

// IsConstructCall returns true if the function was invoked as a
// constructor.
func (c *CallInfo) IsConstructCall() bool { return c.construct }

// Data returns the opaque data bound to the function at construction.
func (c *CallInfo) Data() any { return c.data }

// Return sets the call's result value.
func (c *CallInfo) Return(v Value) { c.ret = v }
