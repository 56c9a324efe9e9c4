package engine

import "time"

// MaxClicks caps the click count of one gesture.
const MaxClicks = 5

// Gesture is a resolved burst of clicks on one template.
type Gesture struct {
	TemplateID string
	Count      int
}

// ClickDebouncer groups rapid clicks on the same template into a Gesture.
//
// A burst is resolved once interval has passed since its last click, which
// the Engine checks on every tick. A click on another template, or one that
// arrives after the interval, flushes the pending burst first.
type ClickDebouncer struct {
	interval time.Duration

	templateID string
	pending    int
	last       time.Time
}

// NewClickDebouncer creates a debouncer with the given click interval.
func NewClickDebouncer(interval time.Duration) *ClickDebouncer {
	return &ClickDebouncer{interval: interval}
}

// SetInterval changes the click interval for subsequent bursts.
func (d *ClickDebouncer) SetInterval(interval time.Duration) {
	d.interval = interval
}

// Pending returns the template and click count of the unresolved burst.
func (d *ClickDebouncer) Pending() (string, int) {
	return d.templateID, d.pending
}

// Click records a click at the given time. If it ends the previous burst,
// that burst is returned.
func (d *ClickDebouncer) Click(templateID string, at time.Time) (Gesture, bool) {
	var flushed Gesture
	var ok bool
	if d.pending > 0 && (templateID != d.templateID || at.Sub(d.last) >= d.interval) {
		flushed, ok = d.take()
	}
	d.templateID = templateID
	d.pending++
	d.last = at
	return flushed, ok
}

// Resolve returns the pending burst if its interval has elapsed.
func (d *ClickDebouncer) Resolve(now time.Time) (Gesture, bool) {
	if d.pending == 0 || now.Sub(d.last) < d.interval {
		return Gesture{}, false
	}
	return d.take()
}

// Flush returns the pending burst regardless of timing.
func (d *ClickDebouncer) Flush() (Gesture, bool) {
	if d.pending == 0 {
		return Gesture{}, false
	}
	return d.take()
}

func (d *ClickDebouncer) take() (Gesture, bool) {
	g := Gesture{TemplateID: d.templateID, Count: min(d.pending, MaxClicks)}
	d.templateID = ""
	d.pending = 0
	return g, true
}
