package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"leadscout/internal/events"
)

type RunStatus struct {
	RunID      string `json:"run_id"`
	Command    string `json:"command"`
	Phase      string `json:"phase"` // crawl | qualify | done | failed
	Running    bool   `json:"running"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Pages      int    `json:"pages"`
	Records    int    `json:"records"`
	Written    int    `json:"written"`
	Qualified  int    `json:"qualified"`
}

// Tracker folds hub events into a RunStatus snapshot.
type Tracker struct {
	mu sync.Mutex
	s  RunStatus
}

func NewTracker(runID, command string) *Tracker {
	return &Tracker{s: RunStatus{
		RunID:     runID,
		Command:   command,
		Running:   true,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}}
}

func (t *Tracker) Snapshot() RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.s.Phase = phase
	t.mu.Unlock()
}

func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Running = false
	t.s.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		t.s.Phase = "failed"
		t.s.LastError = err.Error()
		return
	}
	t.s.Phase = "done"
}

func (t *Tracker) Observe(msg string) {
	e, err := events.Parse(msg)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Type {
	case events.CrawlPageDone:
		var d events.PageDone
		if json.Unmarshal(e.Data, &d) == nil {
			t.s.Pages++
			t.s.Records += d.Extracted
		}
	case events.CrawlFlush:
		var d events.Flush
		if json.Unmarshal(e.Data, &d) == nil {
			t.s.Written += d.Rows
		}
	case events.QualifyLead:
		t.s.Qualified++
	}
}

// Follow observes every event published on hub until stop is called.
func (t *Tracker) Follow(hub *events.Hub) (stop func()) {
	ch := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			t.Observe(msg)
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			hub.Unsubscribe(ch)
			<-done
		})
	}
}

type StatusHandler struct {
	Tracker *Tracker
}

func (h StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Tracker == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "no_run", "no run in progress")
		return
	}
	WriteJSON(w, http.StatusOK, h.Tracker.Snapshot())
}
