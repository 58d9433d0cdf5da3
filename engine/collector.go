package engine

import (
	"time"
)

// ---------------------------------------------------------------------------
// Garbage Collection
// ---------------------------------------------------------------------------

// CollectStats holds statistics from a single collection cycle.
type CollectStats struct {
	Cycle     uint64        `cbor:"cycle"`
	Marked    int           `cbor:"marked"`
	Finalized int           `cbor:"finalized"`
	Deferred  int           `cbor:"deferred"`
	Faults    int           `cbor:"faults"`
	Swept     int           `cbor:"swept"`
	Duration  time.Duration `cbor:"duration"`
	Timestamp time.Time     `cbor:"timestamp"`
}

// Collect performs one mark-and-finalize cycle.
//
// The mark phase finds every object reachable from the globals, the
// explicit root set, and strong handles. Each weak handle whose referent
// is unmarked then has its finalizer invoked exactly once; a finalizer
// that re-arms its handle is reconsidered on the next cycle, one that
// Resets it releases it, and one that does neither leaves a spent handle
// that is detached. Dead handles are swept from the registry at the end.
//
// The relative order in which two handles dying in the same cycle are
// finalized follows handle creation order; across cycles no ordering is
// guaranteed, matching the causal-only contract of finalization.
//
// Collect runs on the script goroutine: marking walks object properties
// that script code mutates without synchronization. Other goroutines
// trigger collection through RequestCollect instead.
func (e *Engine) Collect() *CollectStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	stats := &CollectStats{
		Cycle:     e.cycleCount.Add(1),
		Timestamp: start,
	}

	// Mark phase
	marked := make(map[*Object]struct{})
	for _, v := range e.globals {
		e.markValue(v, marked)
	}
	for obj := range e.roots {
		e.markObject(obj, marked)
	}
	for _, h := range e.handles {
		if !h.dead && !h.weak {
			e.markObject(h.referent, marked)
		}
	}
	stats.Marked = len(marked)

	// Gather weak handles whose referent is unreachable. The due list is
	// snapshotted before any finalizer runs so that one finalizer's
	// mutations (Reset, re-arm) cannot change which handles this cycle
	// considers.
	var due []*Handle
	for _, h := range e.handles {
		if h.dead || !h.weak || h.fin == nil {
			continue
		}
		if _, ok := marked[h.referent]; !ok {
			due = append(due, h)
		}
	}

	for _, h := range due {
		e.runFinalizer(h, stats)
	}

	// Sweep dead handles from the registry.
	live := e.handles[:0]
	for _, h := range e.handles {
		if h.dead {
			stats.Swept++
			continue
		}
		live = append(live, h)
	}
	e.handles = live

	stats.Duration = time.Since(start)
	e.lastStats.Store(stats)
	return stats
}

// runFinalizer invokes one handle's finalizer with the collector's
// bookkeeping around it. A panic inside the finalizer is recovered and
// surfaced on the embedding's error channel; it never escapes into the
// collection cycle, so one instance's faulty finalization cannot corrupt
// another's.
func (e *Engine) runFinalizer(h *Handle, stats *CollectStats) {
	// An earlier finalizer in this cycle may have reset or disarmed the
	// handle; its registration is gone, so there is nothing to run.
	if h.dead || h.fin == nil {
		return
	}
	fin, param := h.fin, h.param

	// The weak registration is consumed by this invocation; SetWeak from
	// inside the finalizer re-establishes it.
	h.fin = nil
	h.param = nil
	h.inFinalizer = true
	h.rearmed = false

	func() {
		defer func() {
			if r := recover(); r != nil {
				stats.Faults++
				e.log.Errorf("finalizer fault: %s", asScriptError(r).Message)
			}
		}()
		fin(e, param)
	}()

	h.inFinalizer = false
	switch {
	case h.rearmed:
		stats.Deferred++
		h.deferrals++
		if e.deferralWarning > 0 && h.deferrals == e.deferralWarning {
			e.log.Warningf("weak handle deferred finalization %d times", h.deferrals)
		}
	case !h.dead:
		// Neither re-armed nor released: the referent is gone and the
		// handle is spent. Detach it so it is swept this cycle.
		h.dead = true
		h.referent = nil
		stats.Finalized++
	default:
		stats.Finalized++
	}
}

// markValue marks the object graph reachable from a value. Only object
// values root anything: function values carry native state, not script
// state, and hidden slots are deliberately non-rooting.
func (e *Engine) markValue(v Value, marked map[*Object]struct{}) {
	if !v.IsObject() {
		return
	}
	e.markObject(v.Object(), marked)
}

// markObject recursively marks an object and everything reachable
// through its script-visible properties.
func (e *Engine) markObject(obj *Object, marked map[*Object]struct{}) {
	if obj == nil {
		return
	}
	if _, exists := marked[obj]; exists {
		return
	}
	marked[obj] = struct{}{}
	for _, v := range obj.props {
		e.markValue(v, marked)
	}
}

// RequestCollect flags that a collection cycle should run at the next
// safepoint. Safe to call from any goroutine; the request is serviced
// on the script goroutine, before the next top-level call or construct
// or by an explicit CollectIfRequested, so finalizers never overlap
// script execution in time.
func (e *Engine) RequestCollect() {
	e.collectWanted.Store(true)
}

// CollectRequested reports whether a collection request is pending.
func (e *Engine) CollectRequested() bool {
	return e.collectWanted.Load()
}

// CollectIfRequested runs one cycle if a request is pending, consuming
// the request, and returns its stats; it returns nil when no request
// was pending. Call it from the script goroutine at points where no
// script frame is active (a REPL between commands, an event loop
// between turns).
func (e *Engine) CollectIfRequested() *CollectStats {
	if !e.collectWanted.CompareAndSwap(true, false) {
		return nil
	}
	return e.Collect()
}

// LastCollectStats returns statistics from the most recent collection
// cycle, or nil if none has run yet.
func (e *Engine) LastCollectStats() *CollectStats {
	v := e.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*CollectStats)
}

// CollectCount returns the total number of collection cycles performed.
func (e *Engine) CollectCount() uint64 {
	return e.cycleCount.Load()
}

// HandleCount returns the number of registered (non-swept) handles.
// Useful for testing and leak diagnostics.
func (e *Engine) HandleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}
