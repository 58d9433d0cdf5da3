package weakref

import (
	"github.com/chazu/hazel/engine"
)

// coordinator is the record shared by a WeakRef instance's two
// finalization callbacks. Each callback nulls only its own field and
// reads the other to decide whether it is the one to release the
// record; the record is released exactly once, by whichever callback
// observes the second field become nil. This needs no lock because both
// callbacks run on the same cooperative execution context and never
// overlap in time.
type coordinator struct {
	bridge  *Bridge
	target  *engine.Handle // nil once the target has been finalized
	wrapper *engine.Handle // nil once the wrapper has been finalized

	released bool
}

func newCoordinator(b *Bridge, target, wrapper *engine.Handle) *coordinator {
	b.outstanding.Add(1)
	return &coordinator{
		bridge:  b,
		target:  target,
		wrapper: wrapper,
	}
}

// release marks the coordinator freed. A second release is a protocol
// violation, never an expected error path.
func (st *coordinator) release() {
	if st.released {
		panic("weakref: coordinator released twice")
	}
	st.released = true
	st.bridge.outstanding.Add(-1)
}

// finalizeTarget runs when the target object is unreachable except
// through the target handle. It releases the target handle, then tells
// the wrapper object that the target is gone by overwriting its private
// slot with the null sentinel; a subsequent get() observes that write.
// If the wrapper was finalized first, this side releases the
// coordinator.
//
// The collector catches any fault raised here at the callback boundary
// and surfaces it on the embedding's error channel, so a failing slot
// write cannot corrupt collector state for unrelated objects.
func finalizeTarget(e *engine.Engine, param any) {
	st := param.(*coordinator)

	st.target.Reset()
	st.target = nil

	if st.wrapper != nil {
		holder := st.wrapper.Deref()
		holder.SetHidden(targetSlot, nil)
	}

	if st.wrapper == nil {
		st.release()
	}
}

// finalizeWrapper runs when the WeakRef instance itself is unreachable
// except through the wrapper handle. It consults the wrapper's private
// slot, not the coordinator: while the slot still holds a live target
// handle, the target side may yet need to dereference the wrapper
// handle, so this side defers by re-arming itself for a future
// collection cycle. Once the slot holds the sentinel it releases the
// wrapper handle, and the coordinator too if the target side has
// already run.
//
// A single instance may defer any number of times; each pass is a full
// round-trip through the collector, so this callback stays idempotent
// and cheap.
func finalizeWrapper(e *engine.Engine, param any) {
	st := param.(*coordinator)

	holder := st.wrapper.Deref()
	h, _ := holder.GetHidden(targetSlot).(*engine.Handle)
	if h != nil {
		st.wrapper.SetWeak(st, finalizeWrapper)
		return
	}

	st.wrapper.Reset()
	st.wrapper = nil

	if st.target == nil {
		st.release()
	}
}
