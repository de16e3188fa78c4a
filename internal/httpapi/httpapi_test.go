package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadscout/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealth(t *testing.T) {
	h := NewHandler(Deps{Hub: events.NewHub()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(Deps{Hub: events.NewHub()})

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "method_not_allowed", e.Error.Code)
	assert.Equal(t, "abc", e.Error.RequestID)
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	h := NewHandler(Deps{Hub: events.NewHub()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)
}

func TestStatusWithoutTracker(t *testing.T) {
	h := NewHandler(Deps{Hub: events.NewHub()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrackerFoldsEvents(t *testing.T) {
	tr := NewTracker("run-1", "run")
	tr.SetPhase("crawl")

	tr.Observe(events.MakeEvent("", events.CrawlPageDone, 1, events.PageDone{Page: 1, Links: 3, Extracted: 2, Failed: 1}))
	tr.Observe(events.MakeEvent("", events.CrawlPageDone, 1, events.PageDone{Page: 2, Links: 2, Extracted: 2}))
	tr.Observe(events.MakeEvent("", events.CrawlFlush, 1, events.Flush{Page: 2, Rows: 4, Sheet: "Sheet1"}))
	tr.Observe(events.MakeEvent("", events.QualifyLead, 1, events.Lead{CompanyName: "Acme"}))
	tr.Observe("not json")

	s := tr.Snapshot()
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "crawl", s.Phase)
	assert.True(t, s.Running)
	assert.Equal(t, 2, s.Pages)
	assert.Equal(t, 4, s.Records)
	assert.Equal(t, 4, s.Written)
	assert.Equal(t, 1, s.Qualified)

	tr.Finish(errors.New("boom"))
	s = tr.Snapshot()
	assert.False(t, s.Running)
	assert.Equal(t, "failed", s.Phase)
	assert.Equal(t, "boom", s.LastError)
	assert.NotEmpty(t, s.FinishedAt)
}

func TestTrackerFollow(t *testing.T) {
	hub := events.NewHub()
	tr := NewTracker("run-2", "crawl")
	stop := tr.Follow(hub)

	hub.Emit(events.CrawlFlush, events.Flush{Rows: 7})
	hub.Emit(events.CrawlFlush, events.Flush{Rows: 3})
	stop()
	stop()

	assert.Equal(t, 10, tr.Snapshot().Written)
}

func TestStatusEndpoint(t *testing.T) {
	tr := NewTracker("run-3", "qualify")
	tr.SetPhase("qualify")
	tr.Finish(nil)
	h := NewHandler(Deps{Hub: events.NewHub(), Tracker: tr, Log: zap.NewNop()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var s RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "qualify", s.Command)
	assert.Equal(t, "done", s.Phase)
	assert.False(t, s.Running)
}

func TestEventsStream(t *testing.T) {
	hub := events.NewHub()
	srv := httptest.NewServer(NewHandler(Deps{Hub: hub, Log: zap.NewNop()}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	r := bufio.NewReader(res.Body)
	var name string
	next := func() events.Event {
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if n, ok := strings.CutPrefix(line, "event: "); ok {
				name = strings.TrimSpace(n)
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				e, err := events.Parse(strings.TrimSpace(data))
				require.NoError(t, err)
				return e
			}
		}
	}

	// the ping arrives after the handler has subscribed
	assert.Equal(t, "ping", next().Type)

	hub.Emit(events.CrawlRecord, events.Record{Page: 1, CompanyName: "Acme"})
	e := next()
	assert.Equal(t, events.CrawlRecord, e.Type)
	assert.Equal(t, events.CrawlRecord, name)

	var rec events.Record
	require.NoError(t, json.Unmarshal(e.Data, &rec))
	assert.Equal(t, "Acme", rec.CompanyName)
}

func TestRecoverMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	h := Chain(panicky, RequestID, Recover(zap.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}
