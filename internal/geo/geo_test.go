package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"leadscout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLandmarks = []domain.Landmark{
	{Name: "UNILAG", Point: domain.GeoPoint{Lat: 6.517912, Lon: 3.385983}},
	{Name: "UI", Point: domain.GeoPoint{Lat: 7.44167, Lon: 3.90000}},
	{Name: "Caleb University", Point: domain.GeoPoint{Lat: 6.6113, Lon: 3.8234}},
	{Name: "LASUTH", Point: domain.GeoPoint{Lat: 6.5644, Lon: 3.3470}},
}

func TestPreprocessAddress(t *testing.T) {
	cases := map[string]string{
		"12 Main St, Yaba, Lagos, Nigeria": "Lagos",
		"SingleTokenAddress":               "SingleTokenAddress",
		"Ikeja,  Lagos":                    "Ikeja",
		"":                                 "",
		" , Nigeria":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, PreprocessAddress(in), in)
	}
}

func TestDistanceMiles(t *testing.T) {
	p := domain.GeoPoint{Lat: 6.5, Lon: 3.3}
	assert.Zero(t, DistanceMiles(p, p))

	// one degree of longitude on the equator
	d := DistanceMiles(domain.GeoPoint{}, domain.GeoPoint{Lon: 1})
	assert.InDelta(t, 69.09, d, 0.01)

	a, b := testLandmarks[0].Point, testLandmarks[1].Point
	assert.InDelta(t, DistanceMiles(a, b), DistanceMiles(b, a), 1e-9)
	assert.InDelta(t, 73, DistanceMiles(a, b), 3)
}

func TestCanonicalStateAndInferState(t *testing.T) {
	s, ok := CanonicalState(" lagos  State ")
	assert.True(t, ok)
	assert.Equal(t, "Lagos", s)

	s, ok = CanonicalState("FCT")
	assert.True(t, ok)
	assert.Equal(t, "Federal Capital Territory", s)

	_, ok = CanonicalState("Yaba")
	assert.False(t, ok)

	assert.Equal(t, "Lagos", InferState("12 Main St, Yaba, Lagos, Nigeria"))
	assert.Equal(t, "Oyo", InferState("Bodija, Ibadan, Oyo State"))
	assert.Equal(t, "", InferState("Somewhere far away"))
}

func TestQualifier(t *testing.T) {
	q := NewQualifier(testLandmarks, QualifierOptions{
		ThresholdMiles: 5,
		LandmarkKind:   "university",
		States:         []string{"Lagos", "Oyo"},
	})

	nearUnilag := domain.GeoPoint{Lat: 6.52, Lon: 3.39}

	label, ok := q.Qualify(nearUnilag, "Lagos")
	assert.True(t, ok)
	assert.Equal(t, "Within 5 miles of a university and in a qualified state", label)
	assert.Contains(t, label, "Within 5 miles of a university")
	assert.Contains(t, label, QualifiedStateText)

	label, ok = q.Qualify(nearUnilag, "Ogun")
	assert.True(t, ok)
	assert.Equal(t, "Within 5 miles of a university", label)

	label, ok = q.Qualify(nearUnilag, "lagos state")
	assert.True(t, ok)
	assert.True(t, strings.HasSuffix(label, QualifiedStateText))

	// Kano is far from every landmark
	label, ok = q.Qualify(domain.GeoPoint{Lat: 12.0, Lon: 8.5}, "Lagos")
	assert.False(t, ok)
	assert.Equal(t, NotQualified, label)

	l, d := q.Nearest(nearUnilag)
	assert.Equal(t, "UNILAG", l.Name)
	assert.Less(t, d, 1.0)
}

func TestQualifierThresholdIsInclusive(t *testing.T) {
	origin := domain.Landmark{Name: "origin", Point: domain.GeoPoint{}}
	p := domain.GeoPoint{Lon: 1}
	d := DistanceMiles(p, origin.Point)

	q := NewQualifier([]domain.Landmark{origin}, QualifierOptions{ThresholdMiles: d})
	_, ok := q.Qualify(p, "")
	assert.True(t, ok)

	q = NewQualifier([]domain.Landmark{origin}, QualifierOptions{ThresholdMiles: d - 0.01})
	_, ok = q.Qualify(p, "")
	assert.False(t, ok)
}

func TestQualifierCopiesLandmarks(t *testing.T) {
	lms := append([]domain.Landmark(nil), testLandmarks...)
	q := NewQualifier(lms, QualifierOptions{})
	lms[0].Point = domain.GeoPoint{Lat: 50, Lon: 50}

	_, ok := q.Qualify(domain.GeoPoint{Lat: 6.52, Lon: 3.39}, "")
	assert.True(t, ok)
}

func TestFailureLogConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_geocoding.log")
	fl := NewFailureLog(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, fl.Record(fmt.Sprintf("town-%d", i)))
		}(i)
	}
	wg.Wait()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 20)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "Failed to geocode: town-"), l)
	}

	var nilLog *FailureLog
	assert.NoError(t, nilLog.Record("x"))
}

func newTestNominatim(t *testing.T, h http.HandlerFunc) (*Nominatim, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logPath := filepath.Join(t.TempDir(), "failed_geocoding.log")
	n := NewNominatim(NominatimOptions{BaseURL: srv.URL + "/search", Attempts: 3}, NewFailureLog(logPath), nil)
	return n, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(b)
}

func TestNominatimFound(t *testing.T) {
	n, logPath := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "business_locator", r.Header.Get("User-Agent"))
		assert.Equal(t, "Lagos", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"lat":"6.4550575","lon":"3.3941795","display_name":"Lagos, Nigeria","address":{"state":"Lagos State"}}]`)
	})

	res, ok := n.Geocode(context.Background(), "Lagos")
	require.True(t, ok)
	assert.InDelta(t, 6.4550575, res.Point.Lat, 1e-9)
	assert.InDelta(t, 3.3941795, res.Point.Lon, 1e-9)
	assert.Equal(t, "Lagos", res.State)
	assert.Empty(t, readLog(t, logPath))
}

func TestNominatimNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	n, logPath := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `[]`)
	})

	_, ok := n.Geocode(context.Background(), "Atlantis")
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "Failed to geocode: Atlantis\n", readLog(t, logPath))
}

func TestNominatimRetriesThenRecordsFailure(t *testing.T) {
	var calls int32
	n, logPath := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	})

	_, ok := n.Geocode(context.Background(), "Ikeja")
	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "Failed to geocode: Ikeja\n", readLog(t, logPath))
}

func TestNominatimRecoversOnRetry(t *testing.T) {
	var calls int32
	n, logPath := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `not json`)
			return
		}
		fmt.Fprint(w, `[{"lat":"7.3775","lon":"3.947","address":{"state":"Oyo State"}}]`)
	})

	res, ok := n.Geocode(context.Background(), "Ibadan")
	require.True(t, ok)
	assert.Equal(t, "Oyo", res.State)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, readLog(t, logPath))
}

func TestNominatimCancelledContextSkipsFailureLog(t *testing.T) {
	n, logPath := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := n.Geocode(ctx, "Lagos")
	assert.False(t, ok)
	assert.Empty(t, readLog(t, logPath))

	_, ok = n.Geocode(context.Background(), "   ")
	assert.False(t, ok)
}
