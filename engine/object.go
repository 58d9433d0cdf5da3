package engine

import (
	"sort"
)

// Object represents a heap-allocated script object.
//
// An object carries two stores:
//   - named properties, visible to script enumeration
//   - hidden slots, which hold native values and are invisible to script
//
// Hidden slots are the engine's private channel for stashing pointer-sized
// native state on an object; nothing reachable through them participates
// in marking.
type Object struct {
	props  map[string]Value
	hidden map[string]any
}

// NewObject creates a new, empty script object.
func NewObject() *Object {
	return &Object{}
}

// ---------------------------------------------------------------------------
// Named properties (script-visible)
// ---------------------------------------------------------------------------

// Set stores a named property on the object.
func (o *Object) Set(name string, v Value) {
	if o.props == nil {
		o.props = make(map[string]Value)
	}
	o.props[name] = v
}

// Get returns the named property, or Undefined if it does not exist.
func (o *Object) Get(name string) Value {
	v, ok := o.props[name]
	if !ok {
		return Undefined
	}
	return v
}

// Has returns true if the object has the named property.
func (o *Object) Has(name string) bool {
	_, ok := o.props[name]
	return ok
}

// Delete removes the named property if present.
func (o *Object) Delete(name string) {
	delete(o.props, name)
}

// PropertyNames returns the script-visible property names in sorted order.
// Hidden slots are never included.
func (o *Object) PropertyNames() []string {
	if len(o.props) == 0 {
		return nil
	}
	names := make([]string, 0, len(o.props))
	for name := range o.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Hidden slots (script-invisible)
// ---------------------------------------------------------------------------

// SetHidden stores a native value in a hidden slot. Passing nil stores
// the slot's null sentinel; the slot itself remains present.
func (o *Object) SetHidden(key string, v any) {
	if o.hidden == nil {
		o.hidden = make(map[string]any)
	}
	o.hidden[key] = v
}

// GetHidden returns the native value stored in a hidden slot, or nil if
// the slot is unset or holds the null sentinel.
func (o *Object) GetHidden(key string) any {
	return o.hidden[key]
}

// HasHidden returns true if the hidden slot has ever been written,
// regardless of whether it currently holds the null sentinel.
func (o *Object) HasHidden(key string) bool {
	_, ok := o.hidden[key]
	return ok
}
