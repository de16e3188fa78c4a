package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"leadscout/internal/events"
)

// heartbeat keeps idle SSE connections from being reaped by proxies.
var heartbeat = 15 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams hub events until the client goes away. The SSE event name
// is the event type, so browsers can addEventListener("crawl.flush", ...).
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	seq := 0
	send := func(msg string) {
		seq++
		typ := "message"
		if e, err := events.Parse(msg); err == nil && e.Type != "" {
			typ = e.Type
		}
		fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, typ, msg)
		flusher.Flush()
	}

	send(events.MakeEvent(RequestIDFrom(r.Context()), "ping", events.SchemaVersion, nil))

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			send(msg)
		}
	}
}
