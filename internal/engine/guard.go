package engine

import "sync"

// Action names a manually triggered engine operation for single-flight
// purposes.
type Action string

const (
	ActionClick      Action = "click"
	ActionToggle     Action = "toggle"
	ActionDeactivate Action = "deactivate"
	ActionSelect     Action = "select"
)

// flightGuard allows at most one in-flight invocation per action.
//
// A trigger acquires the action before its event is enqueued and the Run
// loop releases it once the event has been processed. A second trigger in
// between is dropped, not queued.
type flightGuard struct {
	mu       sync.Mutex
	inFlight map[Action]bool
}

func newFlightGuard() *flightGuard {
	return &flightGuard{inFlight: make(map[Action]bool)}
}

// TryAcquire marks action in flight. It returns false if it already was.
func (g *flightGuard) TryAcquire(action Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[action] {
		return false
	}
	g.inFlight[action] = true
	return true
}

// Release clears the in-flight mark for action.
func (g *flightGuard) Release(action Action) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, action)
}

// InFlight reports whether action is currently in flight.
func (g *flightGuard) InFlight(action Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[action]
}
