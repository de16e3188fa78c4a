package httpapi

import (
	"net/http"

	"leadscout/internal/events"

	"go.uber.org/zap"
)

// Deps is everything the progress server reads from. Tracker may be nil
// before a run starts.
type Deps struct {
	Hub     *events.Hub
	Tracker *Tracker
	Log     *zap.Logger
}

// NewMux wires the progress endpoints.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", only(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	mux.HandleFunc("/status", only(StatusHandler{Tracker: d.Tracker}.Status))
	mux.HandleFunc("/events", only(EventsHandler{Hub: d.Hub}.ServeSSE))

	return mux
}

// NewHandler is NewMux behind RequestID, Recover and AccessLog.
func NewHandler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return Chain(NewMux(d), RequestID, Recover(log), AccessLog(log))
}
