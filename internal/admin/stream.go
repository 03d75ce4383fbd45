package admin

import (
	"encoding/json"
	"fmt"
	"sync"

	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// clientBuffer is the number of frames a slow stream client may lag
// behind before frames are dropped for it.
const clientBuffer = 64

// Hub fans console output out to server-sent event clients. It implements
// sim.TelemetryWriter, sim.PathEventWriter and sim.SceneWriter.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	dropped uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Write broadcasts a telemetry row as a "telemetry" event.
func (h *Hub) Write(row telemetry.TelemetryRow) error {
	return h.broadcast("telemetry", row)
}

// WritePathEvent broadcasts a path lifecycle event as a "path" event.
func (h *Hub) WritePathEvent(e path.EventRow) error {
	return h.broadcast("path", e)
}

// WriteScene broadcasts a console snapshot as a "scene" event.
func (h *Hub) WriteScene(s operator.Snapshot) error {
	return h.broadcast("scene", s)
}

// Clients returns the number of connected stream clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of frames dropped for slow clients.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *Hub) broadcast(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
			h.dropped++
		}
	}
	return nil
}
