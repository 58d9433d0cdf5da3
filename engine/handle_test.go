package engine

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Handle lifecycle
// ---------------------------------------------------------------------------

func TestHandleStrongByDefault(t *testing.T) {
	e := NewEngine()
	obj := NewObject()
	h := e.NewHandle(obj)

	if h.IsWeak() {
		t.Error("new handle should be strong")
	}
	if h.Deref() != obj {
		t.Error("Deref should return the referent")
	}
}

func TestStrongHandleKeepsReferentReachable(t *testing.T) {
	e := NewEngine()
	obj := NewObject()
	strong := e.NewHandle(obj)

	// A second, weak handle observes whether obj survives collection.
	ran := false
	observer := e.NewHandle(obj)
	observer.SetWeak(nil, func(e *Engine, param any) {
		ran = true
		observer.Reset()
	})

	e.Collect()
	if ran {
		t.Error("finalizer ran while a strong handle kept the referent reachable")
	}

	strong.Reset()
	e.Collect()
	if !ran {
		t.Error("finalizer should run once the strong handle is gone")
	}
}

func TestWeakHandleFinalizedWhenUnrooted(t *testing.T) {
	e := NewEngine()
	obj := NewObject()
	e.Retain(obj)

	var gotParam any
	h := e.NewHandle(obj)
	h.SetWeak("state", func(e *Engine, param any) {
		gotParam = param
		h.Reset()
	})

	e.Collect()
	if gotParam != nil {
		t.Error("finalizer ran while the referent was rooted")
	}

	e.Release(obj)
	e.Collect()
	if gotParam != "state" {
		t.Errorf("finalizer param = %v, want %q", gotParam, "state")
	}
	if h.IsLive() {
		t.Error("handle should be dead after Reset")
	}
	if e.HandleCount() != 0 {
		t.Errorf("HandleCount = %d, want 0 after sweep", e.HandleCount())
	}
}

func TestFinalizerRunsOncePerRegistration(t *testing.T) {
	e := NewEngine()
	obj := NewObject()

	runs := 0
	h := e.NewHandle(obj)
	h.SetWeak(nil, func(e *Engine, param any) {
		runs++
		h.Reset()
	})

	e.Collect()
	e.Collect()
	e.Collect()
	if runs != 1 {
		t.Errorf("finalizer ran %d times, want 1", runs)
	}
}

func TestRearmDefersFinalization(t *testing.T) {
	e := NewEngine()
	obj := NewObject()

	runs := 0
	var h *Handle
	var fin Finalizer
	fin = func(e *Engine, param any) {
		runs++
		if runs < 3 {
			h.SetWeak(param, fin) // defer to a later cycle
			return
		}
		h.Reset()
	}
	h = e.NewHandle(obj)
	h.SetWeak(nil, fin)

	for i := 0; i < 5; i++ {
		e.Collect()
	}
	if runs != 3 {
		t.Errorf("finalizer ran %d times, want 3", runs)
	}
	if e.HandleCount() != 0 {
		t.Error("handle should be swept after final release")
	}
}

func TestSpentHandleDetached(t *testing.T) {
	e := NewEngine()
	obj := NewObject()

	// Finalizer neither resets nor re-arms: the handle is spent and the
	// collector detaches it.
	runs := 0
	h := e.NewHandle(obj)
	h.SetWeak(nil, func(e *Engine, param any) { runs++ })

	e.Collect()
	e.Collect()
	if runs != 1 {
		t.Errorf("spent handle finalizer ran %d times, want 1", runs)
	}
	if e.HandleCount() != 0 {
		t.Error("spent handle should be swept")
	}
}

func TestClearWeakDisarms(t *testing.T) {
	e := NewEngine()
	obj := NewObject()

	ran := false
	h := e.NewHandle(obj)
	h.SetWeak(nil, func(e *Engine, param any) { ran = true })
	h.ClearWeak()

	e.Collect()
	if ran {
		t.Error("finalizer should not run after ClearWeak")
	}
	if h.Deref() != obj {
		t.Error("strong handle should still dereference")
	}
}

// ---------------------------------------------------------------------------
// Invariant guards
// ---------------------------------------------------------------------------

func TestDerefAfterResetPanics(t *testing.T) {
	e := NewEngine()
	h := e.NewHandle(NewObject())
	h.Reset()

	defer func() {
		if recover() == nil {
			t.Error("Deref after Reset should panic")
		}
	}()
	h.Deref()
}

func TestDoubleResetPanics(t *testing.T) {
	e := NewEngine()
	h := e.NewHandle(NewObject())
	h.Reset()

	defer func() {
		if recover() == nil {
			t.Error("double Reset should panic")
		}
	}()
	h.Reset()
}

func TestSetWeakNilFinalizerPanics(t *testing.T) {
	e := NewEngine()
	h := e.NewHandle(NewObject())

	defer func() {
		if recover() == nil {
			t.Error("SetWeak with nil finalizer should panic")
		}
	}()
	h.SetWeak(nil, nil)
}
