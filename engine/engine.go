// Package engine implements the Hazel host runtime.
//
// This package contains:
//   - Tagged script value representation
//   - Object layout with named properties and hidden slots
//   - GC-tracked handles with weak registration and finalization
//   - Mark-based collection over an explicit root set
//   - Native function values and the call/construct boundary
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Engine is a Hazel host runtime instance.
//
// The engine owns the global namespace, the explicit root set that
// stands in for script-held references, and the handle registry the
// collector operates on. Script execution is single-threaded and
// cooperative: finalizers run synchronously inside Collect, interleaved
// with script work only at safepoints between top-level calls. Other
// goroutines (the AutoCollector, embedding timers) never run Collect
// themselves; they flag a request with RequestCollect and the script
// goroutine services it at the next safepoint.
type Engine struct {
	mu      sync.Mutex
	globals map[string]Value
	roots   map[*Object]int
	handles []*Handle

	cycleCount    atomic.Uint64
	lastStats     atomic.Value // *CollectStats
	collectWanted atomic.Bool

	// callDepth tracks native-call nesting on the script goroutine so a
	// requested collection runs only between top-level calls, never
	// inside an active script frame. Touched only by the script
	// goroutine.
	callDepth int

	deferralWarning int
	log             commonlog.Logger
}

// Options configures a new Engine.
type Options struct {
	// DeferralWarning logs a warning once a single weak handle has
	// deferred its finalization this many times. Zero disables it.
	DeferralWarning int

	// Logger overrides the engine's error channel. Defaults to the
	// "hazel.engine" commonlog scope.
	Logger commonlog.Logger
}

// NewEngine creates an engine with default options.
func NewEngine() *Engine {
	return NewEngineWithOptions(Options{})
}

// NewEngineWithOptions creates an engine with the given options.
func NewEngineWithOptions(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("hazel.engine")
	}
	return &Engine{
		globals:         make(map[string]Value),
		roots:           make(map[*Object]int),
		deferralWarning: opts.DeferralWarning,
		log:             log,
	}
}

// Log returns the engine's error-channel logger.
func (e *Engine) Log() commonlog.Logger { return e.log }

// ---------------------------------------------------------------------------
// Global namespace
// ---------------------------------------------------------------------------

// Register binds a value under a name in the global namespace,
// replacing any previous binding.
func (e *Engine) Register(name string, v Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = v
}

// Global returns the value bound to a global name, or Undefined.
func (e *Engine) Global(name string) Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.globals[name]
	if !ok {
		return Undefined
	}
	return v
}

// ---------------------------------------------------------------------------
// Root set
//
// Script code holding a reference to an object is modeled by retaining
// it; dropping the last script reference is releasing it. Retain counts
// nest, like any other reference a script environment hands out.
// ---------------------------------------------------------------------------

// Retain adds the object to the collector's root set.
func (e *Engine) Retain(obj *Object) {
	if obj == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roots[obj]++
}

// Release drops one retain of the object, removing it from the root set
// when the count reaches zero. Releasing an unretained object is a no-op.
func (e *Engine) Release(obj *Object) {
	if obj == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if n, ok := e.roots[obj]; ok {
		if n <= 1 {
			delete(e.roots, obj)
		} else {
			e.roots[obj] = n - 1
		}
	}
}

// RootCount returns the number of distinct rooted objects.
func (e *Engine) RootCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.roots)
}

// ---------------------------------------------------------------------------
// Call boundary
// ---------------------------------------------------------------------------

// Construct invokes a function value as a constructor. A ScriptError
// thrown by the callback is returned as the error; any other panic is
// translated into a native-fault ScriptError and also logged.
func (e *Engine) Construct(fn Value, args ...Value) (Value, error) {
	if !fn.IsFunction() {
		return Undefined, NewScriptError("value is not constructible")
	}
	return e.invoke(fn.Function(), nil, args, true)
}

// Call invokes a function value with the given receiver.
func (e *Engine) Call(fn Value, this *Object, args ...Value) (Value, error) {
	if !fn.IsFunction() {
		return Undefined, NewScriptError("value is not callable")
	}
	return e.invoke(fn.Function(), this, args, false)
}

// CallMethod looks up a named property on the object and calls it with
// the object as receiver.
func (e *Engine) CallMethod(obj *Object, name string, args ...Value) (Value, error) {
	if obj == nil {
		return Undefined, NewScriptError("cannot call method on null")
	}
	fn := obj.Get(name)
	if !fn.IsFunction() {
		return Undefined, NewScriptError(fmt.Sprintf("object has no method %q", name))
	}
	return e.invoke(fn.Function(), obj, args, false)
}

func (e *Engine) invoke(fn *Function, this *Object, args []Value, construct bool) (result Value, err error) {
	if e.callDepth == 0 {
		e.CollectIfRequested()
	}
	e.callDepth++
	defer func() { e.callDepth-- }()

	call := &CallInfo{
		eng:       e,
		this:      this,
		args:      args,
		construct: construct,
		data:      fn.data,
		ret:       Undefined,
	}
	defer func() {
		if r := recover(); r != nil {
			se := asScriptError(r)
			if _, wasScript := r.(*ScriptError); !wasScript {
				e.log.Errorf("native fault in %s: %s", fn.Name(), se.Message)
			}
			result = Undefined
			err = se
		}
	}()
	fn.fn(call)
	return call.ret, nil
}
