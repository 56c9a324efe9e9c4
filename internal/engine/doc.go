// Package engine implements the palette's event loop: template clicks,
// the auto-apply controller and tag synchronization.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All palette state is owned by one goroutine. Host callbacks (selection
// changes, modifier changes, clicks, timer ticks, icon loads) only enqueue
// events. This ensures:
// - No locks around the controller, the debouncer or the active template
// - A deterministic order of transitions for a given event sequence
// - Scenario tests can drive the loop synchronously with Drain
//
// Event Processing Flow:
// 1. Events enqueued to a FIFO queue from any goroutine
// 2. Engine.Run() (or Drain) dequeues events one at a time
// 3. processEvent() routes to the handler for the event kind
// 4. Handlers call Synchronize and hand mutation groups to the FeatureMutator
// 5. The new State snapshot is published to subscribers
//
// Trigger is single-flight per action: while an action is queued or
// running, a second trigger of the same action is dropped, which is how
// re-entrant selection callbacks caused by our own mutations are ignored.
//
// CRITICAL PATTERNS:
//
// Monotonic Time:
// The countdown and the click debouncer read a TimeSource, never the wall
// clock directly. Tests use testutil.FakeClock and manual ticks.
//
// Ctrl Precedence:
// A key present in both CtrlTags and ShiftTags is decided by its ctrl
// entry. Synchronize processes CtrlTags first.
//
// Log and Continue:
// Collaborator failures become RuntimeErrors that are logged; the loop
// keeps processing.
package engine
