package engine

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Heap snapshots
//
// A snapshot captures the collector-visible state of an engine for
// offline diagnostics: leak hunting in embeddings comes down to watching
// the handle list and root count across snapshots.
// ---------------------------------------------------------------------------

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("engine: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// HandleInfo describes one registered handle at snapshot time.
type HandleInfo struct {
	Weak      bool `cbor:"weak"`
	Armed     bool `cbor:"armed"`
	Deferrals int  `cbor:"deferrals"`
}

// Snapshot captures an engine's collector-visible state.
type Snapshot struct {
	TakenAt time.Time     `cbor:"taken-at"`
	Globals int           `cbor:"globals"`
	Roots   int           `cbor:"roots"`
	Handles []HandleInfo  `cbor:"handles"`
	Cycles  uint64        `cbor:"cycles"`
	Last    *CollectStats `cbor:"last,omitempty"`
}

// TakeSnapshot captures the engine's current collector state.
func TakeSnapshot(e *Engine) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &Snapshot{
		TakenAt: time.Now(),
		Globals: len(e.globals),
		Roots:   len(e.roots),
		Cycles:  e.cycleCount.Load(),
	}
	for _, h := range e.handles {
		if h.dead {
			continue
		}
		s.Handles = append(s.Handles, HandleInfo{
			Weak:      h.weak,
			Armed:     h.fin != nil,
			Deferrals: h.deferrals,
		})
	}
	if v := e.lastStats.Load(); v != nil {
		s.Last = v.(*CollectStats)
	}
	return s
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("engine: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
