package engine

import (
	"testing"
)

func TestSnapshotCapturesState(t *testing.T) {
	e := NewEngine()
	e.Register("g", FromNumber(1))
	obj := NewObject()
	e.Retain(obj)

	strong := e.NewHandle(obj)
	weak := e.NewHandle(obj)
	weak.SetWeak(nil, func(e *Engine, param any) {})

	s := TakeSnapshot(e)
	if s.Globals != 1 {
		t.Errorf("Globals = %d, want 1", s.Globals)
	}
	if s.Roots != 1 {
		t.Errorf("Roots = %d, want 1", s.Roots)
	}
	if len(s.Handles) != 2 {
		t.Fatalf("Handles = %d, want 2", len(s.Handles))
	}

	weakSeen := 0
	for _, h := range s.Handles {
		if h.Weak {
			weakSeen++
			if !h.Armed {
				t.Error("weak handle should report an armed finalizer")
			}
		}
	}
	if weakSeen != 1 {
		t.Errorf("weak handles = %d, want 1", weakSeen)
	}
	_ = strong
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := NewEngine()
	e.Retain(NewObject())
	e.Collect()

	s := TakeSnapshot(e)
	data, err := MarshalSnapshot(s)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}

	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if got.Roots != s.Roots || got.Globals != s.Globals || got.Cycles != s.Cycles {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, s)
	}
	if got.Last == nil || got.Last.Cycle != 1 {
		t.Error("round trip should preserve last collection stats")
	}
}

func TestSnapshotDeterministicEncoding(t *testing.T) {
	e := NewEngine()
	e.Register("a", FromNumber(1))
	e.Register("b", FromNumber(2))

	s := TakeSnapshot(e)
	first, err := MarshalSnapshot(s)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	second, err := MarshalSnapshot(s)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	if string(first) != string(second) {
		t.Error("canonical encoding should be deterministic")
	}
}
