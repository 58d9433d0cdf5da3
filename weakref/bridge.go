// Package weakref implements the WeakRef script primitive on top of the
// Hazel engine: a script-visible handle that observes whether an object
// is still reachable without keeping it alive.
package weakref

import (
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/hazel/engine"
)

// targetSlot is the hidden slot on a WeakRef instance holding either the
// live target *engine.Handle or nil, the "no live target" sentinel. It
// is the single source of truth that get and clear consult.
const targetSlot = "weakref:target"

// Bridge registers the WeakRef constructor and owns the get and clear
// function values shared by every instance it creates.
//
// The lazy function caches are check-then-create with no lock: the
// engine's execution model is single-threaded cooperative, and first use
// from concurrent goroutines is not supported.
type Bridge struct {
	getterFn engine.Value
	clearFn  engine.Value
	log      commonlog.Logger

	// outstanding counts coordinators that have been allocated but not
	// yet released by the finalization protocol.
	outstanding atomic.Int64
}

// NewBridge creates a bridge with the default "hazel.weakref" log scope.
func NewBridge() *Bridge {
	return &Bridge{
		getterFn: engine.Undefined,
		clearFn:  engine.Undefined,
		log:      commonlog.GetLogger("hazel.weakref"),
	}
}

// Init registers the WeakRef constructor in the engine's global
// namespace. No side effects beyond registration.
func (b *Bridge) Init(e *engine.Engine) {
	ctor := engine.NewFunction("WeakRef", b, b.construct)
	e.Register("WeakRef", engine.FromFunction(ctor))
	b.log.Debug("registered WeakRef constructor")
}

// Outstanding returns the number of live coordinators: instances whose
// finalization protocol has not yet completed.
func (b *Bridge) Outstanding() int64 {
	return b.outstanding.Load()
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// construct implements `new WeakRef(target)`.
//
// On success two finalization callbacks are armed against the collector;
// both must eventually run for the coordinator to be released.
func (b *Bridge) construct(call *engine.CallInfo) {
	if !call.IsConstructCall() {
		engine.Throw("WeakRef must be used as a construct call.")
	}
	if call.Len() != 1 {
		engine.Throw("The WeakRef constructor expects single parameter.")
	}
	target := call.Arg(0)
	if !target.IsObject() {
		engine.Throw("The WeakRef constructor expects an object argument.")
	}

	e := call.Engine()
	wrapper := engine.NewObject()

	hTarget := e.NewHandle(target.Object())
	hWrapper := e.NewHandle(wrapper)
	state := newCoordinator(b, hTarget, hWrapper)

	hTarget.SetWeak(state, finalizeTarget)
	hWrapper.SetWeak(state, finalizeWrapper)

	wrapper.Set("get", b.GetGetterFunction())
	wrapper.Set("clear", b.GetClearFunction())
	wrapper.SetHidden(targetSlot, hTarget)

	call.Return(engine.FromObject(wrapper))
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// GetGetterFunction returns the shared get function value, building and
// caching it on first use.
func (b *Bridge) GetGetterFunction() engine.Value {
	if !b.getterFn.IsUndefined() {
		return b.getterFn
	}
	b.getterFn = engine.FromFunction(engine.NewFunction("get", b, b.getter))
	return b.getterFn
}

// GetClearFunction returns the shared clear function value, building and
// caching it on first use.
func (b *Bridge) GetClearFunction() engine.Value {
	if !b.clearFn.IsUndefined() {
		return b.clearFn
	}
	b.clearFn = engine.FromFunction(engine.NewFunction("clear", b, b.clear))
	return b.clearFn
}

// getter implements weakRef.get(): a fresh strong reference to the
// target, or null once the private slot holds the sentinel. It reads
// only the slot, never the coordinator.
func (b *Bridge) getter(call *engine.CallInfo) {
	holder := call.This()
	if holder == nil {
		engine.Throw("get called without a receiver")
	}
	h, _ := holder.GetHidden(targetSlot).(*engine.Handle)
	if h != nil {
		call.Return(engine.FromObject(h.Deref()))
		return
	}
	call.Return(engine.Null)
}

// clear implements weakRef.clear(): unconditionally stores the null
// sentinel, making get behave as if the target were already collected.
// The underlying target handle is not released here; that happens only
// when the collector finalizes the target naturally.
func (b *Bridge) clear(call *engine.CallInfo) {
	holder := call.This()
	if holder == nil {
		engine.Throw("clear called without a receiver")
	}
	holder.SetHidden(targetSlot, nil)
}
