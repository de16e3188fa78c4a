package events

import "sync"

// Hub fans progress events out to subscribers. A nil *Hub drops everything.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	reqID   string
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

// WithRequestID sets the request id stamped on subsequent events.
func (h *Hub) WithRequestID(id string) *Hub {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	h.reqID = id
	h.mu.Unlock()
	return h
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(evt string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

// Emit builds an event of type typ and publishes it.
func (h *Hub) Emit(typ string, data any) {
	if h == nil {
		return
	}
	h.mu.Lock()
	id := h.reqID
	h.mu.Unlock()
	h.Publish(MakeEvent(id, typ, SchemaVersion, data))
}
