package engine

import (
	"fmt"
	"sync"

	"github.com/roach88/tagstamp/internal/model"
)

// EventKind distinguishes between event kinds.
type EventKind int

const (
	// EventSelectionChanged carries a new selection snapshot.
	EventSelectionChanged EventKind = iota + 1
	// EventDatasetChanged reports a structural edit of the host dataset.
	EventDatasetChanged
	// EventModifiersChanged carries the new modifier-key state.
	EventModifiersChanged
	// EventClick is a click on a template entry.
	EventClick
	// EventToggle flips auto-apply on or off.
	EventToggle
	// EventDeactivate turns auto-apply off.
	EventDeactivate
	// EventSelectTemplate makes a template the active one.
	EventSelectTemplate
	// EventTick advances the countdown and the click debouncer.
	EventTick
	// EventIconLoaded delivers the result of a background icon load.
	EventIconLoaded
	// EventConfigChanged delivers a reloaded Config.
	EventConfigChanged
	// EventCatalogChanged reports that catalog entries were edited.
	EventCatalogChanged
)

var eventKindNames = map[EventKind]string{
	EventSelectionChanged: "selection_changed",
	EventDatasetChanged:   "dataset_changed",
	EventModifiersChanged: "modifiers_changed",
	EventClick:            "click",
	EventToggle:           "toggle",
	EventDeactivate:       "deactivate",
	EventSelectTemplate:   "select_template",
	EventTick:             "tick",
	EventIconLoaded:       "icon_loaded",
	EventConfigChanged:    "config_changed",
	EventCatalogChanged:   "catalog_changed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Event is a unit of work for the Run loop. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind EventKind

	// Seq is stamped by Engine.Enqueue.
	Seq int64

	// Selection is the new snapshot for EventSelectionChanged. When nil the
	// engine asks its SelectionProvider.
	Selection *model.Selection

	// Modifiers is the new state for EventModifiersChanged.
	Modifiers model.Modifiers

	// TemplateID names the template for click, select and icon events.
	TemplateID string

	// Clicks is an already-resolved click count. Zero means a raw click
	// that goes through the debouncer.
	Clicks int

	// Icon is the loaded icon for EventIconLoaded; nil when the load
	// failed or timed out.
	Icon *model.Icon

	// Config is the new policy for EventConfigChanged.
	Config *Config

	// action is released once the event has been processed.
	action Action
}

// eventQueue is a thread-safe FIFO queue for events.
//
// Producers are the host transports, the ticker and icon loaders; the
// Engine's Run loop is the only consumer. The queue uses a channel for
// signaling to enable context-aware waiting in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not retain pointers.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
