package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFetcher(opts Options, slept *[]time.Duration) *Fetcher {
	return New(opts, nil).WithSleep(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	})
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		gotUA = r.Header.Get("User-Agent")
		if n < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1>Acme - Lagos</h1></body></html>`))
	}))
	defer srv.Close()

	var slept []time.Duration
	f := newTestFetcher(Options{}, &slept)

	doc, err := f.Fetch(context.Background(), srv.URL+"/company/1")
	require.NoError(t, err)
	require.Equal(t, "Acme - Lagos", doc.Find("h1").Text())
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	require.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetchGivesUpWithFetchError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	var slept []time.Duration
	f := newTestFetcher(Options{Attempts: 3, BackoffBase: time.Millisecond}, &slept)

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 3, fe.Attempts)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.StatusCode)

	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, slept)
}

func TestFetchCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<p>ok</p>`))
	}))
	defer srv.Close()

	var slept []time.Duration
	_, err := newTestFetcher(Options{UserAgent: "leadscout-test"}, &slept).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "leadscout-test", gotUA)
	require.Empty(t, slept)
}

func TestFetchHonoursRobots(t *testing.T) {
	var pageHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		atomic.AddInt32(&pageHits, 1)
		_, _ = w.Write([]byte(`<p>ok</p>`))
	}))
	defer srv.Close()

	var slept []time.Duration
	f := newTestFetcher(Options{RespectRobots: true}, &slept)

	_, err := f.Fetch(context.Background(), srv.URL+"/private/page")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))

	_, err = f.Fetch(context.Background(), srv.URL+"/public/page")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&pageHits))
}
