package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// ErrNoEditor is returned by mutations while no client is connected.
var ErrNoEditor = errors.New("no editor connected")

// clientBuffer is the per-client outbound queue length. A client that
// falls this far behind misses messages rather than stalling the engine.
const clientBuffer = 256

// Hub tracks connected editor clients. It is the engine's FeatureMutator
// and SelectionProvider: mutations become broadcast commands and the
// selection is whatever a client reported last.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]chan Message
	selection model.Selection
	log       *slog.Logger
}

var (
	_ engine.FeatureMutator    = (*Hub)(nil)
	_ engine.SelectionProvider = (*Hub)(nil)
)

// NewHub creates a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]chan Message),
		log:     logger,
	}
}

// Register adds a client and returns its id and outbound channel. The
// channel is closed by Unregister.
func (h *Hub) Register() (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, clientBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", "event", "ws_connect", "client", id, "clients", n)
	return id, ch
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(ch)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info("client disconnected", "event", "ws_disconnect", "client", id, "clients", n)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client without blocking. Returns the
// number of clients it was queued for.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for id, ch := range h.clients {
		select {
		case ch <- msg:
			sent++
		default:
			h.log.Warn("client too slow, message dropped", "event", "ws_drop", "client", id, "type", msg.Type)
		}
	}
	return sent
}

// SetSelection records the selection reported by a client.
func (h *Hub) SetSelection(sel model.Selection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selection = sel
}

// Selection returns the last reported selection.
func (h *Hub) Selection() model.Selection {
	h.mu.Lock()
	defer h.mu.Unlock()
	sel := h.selection
	sel.Features = append([]model.Feature(nil), sel.Features...)
	return sel
}

// Apply sends all groups to the editors as one command, so each editor can
// record them as a single undo step.
func (h *Hub) Apply(_ context.Context, groups []model.MutationGroup) error {
	if h.Broadcast(Message{Type: TypeApply, Groups: groups}) == 0 {
		return ErrNoEditor
	}
	return nil
}

// ClearSelection tells the editors to deselect and forgets the recorded
// selection.
func (h *Hub) ClearSelection(_ context.Context) error {
	h.mu.Lock()
	h.selection = model.Selection{Editing: h.selection.Editing, Drawing: h.selection.Drawing}
	h.mu.Unlock()

	if h.Broadcast(Message{Type: TypeDeselect}) == 0 {
		return ErrNoEditor
	}
	return nil
}

// CreateFeature asks the editors to create a feature carrying tags.
func (h *Hub) CreateFeature(_ context.Context, geometry model.Geometry, tags model.TagMap) error {
	msg := Message{Type: TypeCreate, Geometry: &geometry, Tags: &tags}
	if h.Broadcast(msg) == 0 {
		return ErrNoEditor
	}
	return nil
}
