package engine

// Finalizer is a finalization callback attached to a weak handle. The
// collector invokes it once the handle's referent is unreachable through
// any path other than the handle itself, passing the opaque parameter
// supplied to SetWeak.
//
// A finalizer normally either Resets the handle (releasing it) or calls
// SetWeak again from inside itself (re-arming it for a future collection
// cycle). A finalizer that does neither leaves a spent handle behind,
// which the collector detaches.
type Finalizer func(e *Engine, param any)

// Handle is a GC-tracked reference to a script object.
//
// A handle is created strong: it keeps its referent reachable on its
// own. SetWeak downgrades it so the referent's reachability is decided
// by everything else, and arms a finalization callback. Reset detaches
// the handle from the collector and invalidates it.
//
// Use of a handle after Reset is a protocol violation, not an expected
// error path; Deref and SetWeak panic on a dead handle so that tests
// surface the violation immediately.
type Handle struct {
	eng      *Engine
	referent *Object
	weak     bool
	fin      Finalizer
	param    any
	dead     bool

	// Finalization bookkeeping, touched only by the collector and by
	// SetWeak re-arming from inside the handle's own finalizer.
	inFinalizer bool
	rearmed     bool
	deferrals   int
}

// NewHandle creates a strong GC-tracked handle to the given object and
// registers it with the engine's collector.
func (e *Engine) NewHandle(obj *Object) *Handle {
	if obj == nil {
		panic("NewHandle: nil object")
	}
	h := &Handle{eng: e, referent: obj}
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
	return h
}

// Deref returns the handle's referent. The referent stays dereferenceable
// throughout finalization, including from another handle's finalizer in
// the same cycle. Panics if the handle has been Reset.
func (h *Handle) Deref() *Object {
	if h.dead {
		panic("Handle.Deref: handle has been reset")
	}
	return h.referent
}

// SetWeak downgrades the handle to weak and arms fin with the given
// opaque parameter. Called from inside the handle's own finalizer it
// re-arms the handle instead, deferring its release to a future
// collection cycle. Panics if the handle has been Reset or fin is nil.
func (h *Handle) SetWeak(param any, fin Finalizer) {
	if h.dead {
		panic("Handle.SetWeak: handle has been reset")
	}
	if fin == nil {
		panic("Handle.SetWeak: nil finalizer")
	}
	h.weak = true
	h.fin = fin
	h.param = param
	if h.inFinalizer {
		h.rearmed = true
	}
}

// ClearWeak upgrades the handle back to strong and disarms its
// finalizer. Panics if the handle has been Reset.
func (h *Handle) ClearWeak() {
	if h.dead {
		panic("Handle.ClearWeak: handle has been reset")
	}
	h.weak = false
	h.fin = nil
	h.param = nil
}

// Reset detaches the handle from the collector and invalidates it.
// The collector drops dead handles on its next cycle. Panics on a
// second Reset: a double release is a protocol violation.
func (h *Handle) Reset() {
	if h.dead {
		panic("Handle.Reset: handle already reset")
	}
	h.dead = true
	h.referent = nil
	h.fin = nil
	h.param = nil
}

// IsWeak returns true if the handle is weak (armed or spent).
func (h *Handle) IsWeak() bool { return h.weak }

// IsLive returns true if the handle has not been Reset.
func (h *Handle) IsLive() bool { return !h.dead }

// Deferrals returns how many times the handle's finalizer has re-armed
// it instead of releasing it.
func (h *Handle) Deferrals() int { return h.deferrals }
