package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// AutoCollector: periodic collection for long-running embeddings
// ---------------------------------------------------------------------------

// AutoCollector periodically requests collection so that armed
// finalizers make progress in long-running embeddings (servers, REPLs)
// that never trigger collection themselves. Deferred finalizations in
// particular need repeated cycles to converge.
//
// The timer goroutine never runs Collect itself: it calls
// Engine.RequestCollect, and the script goroutine services the request
// at its next safepoint. Heap state is therefore only ever touched from
// the script goroutine, keeping the engine's cooperative model intact.
type AutoCollector struct {
	eng      *Engine
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle
}

// DefaultCollectInterval is the default interval between automatic
// collection cycles.
const DefaultCollectInterval = 30 * time.Second

// NewAutoCollector creates an AutoCollector for the given engine with
// the specified interval. Use DefaultCollectInterval for the default.
func NewAutoCollector(e *Engine, interval time.Duration) *AutoCollector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	ac := &AutoCollector{
		eng:      e,
		interval: interval,
	}
	ac.enabled.Store(true)
	return ac
}

// Start begins the periodic collection goroutine. It is safe to call
// Start multiple times; only one loop will run.
func (ac *AutoCollector) Start() {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.stop != nil {
		return // already running
	}

	ac.stop = make(chan struct{})
	ac.stopped = make(chan struct{})

	// Capture channels locally so the goroutine does not read ac.stop or
	// ac.stopped after Stop() has nilled them out.
	stopCh := ac.stop
	stoppedCh := ac.stopped
	go ac.loop(stopCh, stoppedCh)
}

// Stop halts the collection goroutine and waits for it to finish. It is
// safe to call Stop multiple times or on a collector that never started.
func (ac *AutoCollector) Stop() {
	ac.mu.Lock()
	stopCh := ac.stop
	stoppedCh := ac.stopped
	ac.stop = nil
	ac.stopped = nil
	ac.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled enables or disables collection requests. When disabled,
// the goroutine still runs but stays silent.
func (ac *AutoCollector) SetEnabled(enabled bool) {
	ac.enabled.Store(enabled)
}

// IsEnabled returns whether collection is currently enabled.
func (ac *AutoCollector) IsEnabled() bool {
	return ac.enabled.Load()
}

// Interval returns the collection interval.
func (ac *AutoCollector) Interval() time.Duration {
	return ac.interval
}

// CollectNow performs an immediate cycle regardless of the timer. It
// must be called from the script goroutine, like Engine.Collect itself.
func (ac *AutoCollector) CollectNow() *CollectStats {
	return ac.eng.Collect()
}

func (ac *AutoCollector) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(ac.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if ac.enabled.Load() {
				ac.eng.RequestCollect()
			}
		}
	}
}
