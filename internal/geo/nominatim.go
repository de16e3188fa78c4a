package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/retry"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent    = "business_locator"
)

// Geocoder resolves free text to a point. ok is false when nothing was found.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Result, bool)
}

type Result struct {
	Point       domain.GeoPoint
	State       string // canonical state name, "" if unknown
	DisplayName string
}

// GeocodeError is the last lookup failure after retries ran out.
type GeocodeError struct {
	Query    string
	Attempts int
	Err      error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode %q failed after %d attempts: %v", e.Query, e.Attempts, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

type NominatimOptions struct {
	BaseURL     string
	UserAgent   string
	Email       string
	Attempts    int
	Timeout     time.Duration
	MinInterval time.Duration
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint, one request
// per MinInterval across all callers.
type Nominatim struct {
	opts     NominatimOptions
	client   *http.Client
	limiter  *rate.Limiter
	failures *FailureLog
	log      *zap.Logger
}

func NewNominatim(opts NominatimOptions, failures *FailureLog, log *zap.Logger) *Nominatim {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNominatimURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Nominatim{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, 1),
		failures: failures,
		log:      log,
	}
}

type lookup struct {
	res   Result
	found bool
}

// Geocode never returns an error: a miss, or a failure that outlives every
// retry, is written to the failure log and reported as ok=false.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Result, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, false
	}
	log := n.log.With(zap.String("query", query))

	policy := retry.Policy{
		Attempts: n.opts.Attempts,
		Delay:    retry.Immediate,
		OnFailure: func(attempt int, err error) {
			log.Warn("geocode: attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
		},
	}
	out, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (lookup, error) {
		if err := n.limiter.Wait(ctx); err != nil {
			return lookup{}, err
		}
		return n.search(ctx, query)
	})

	switch {
	case err != nil && ctx.Err() != nil:
		return Result{}, false
	case err != nil:
		gerr := &GeocodeError{Query: query, Attempts: n.opts.Attempts, Err: err}
		log.Error("geocode: gave up", zap.Error(gerr))
		n.recordFailure(log, query)
		return Result{}, false
	case !out.found:
		log.Info("geocode: location not found")
		n.recordFailure(log, query)
		return Result{}, false
	}

	log.Debug("geocode: ok", zap.Float64("lat", out.res.Point.Lat), zap.Float64("lon", out.res.Point.Lon))
	return out.res, true
}

func (n *Nominatim) recordFailure(log *zap.Logger, query string) {
	if err := n.failures.Record(query); err != nil {
		log.Error("geocode: write failure log", zap.Error(err))
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		State string `json:"state"`
	} `json:"address"`
}

func (n *Nominatim) search(ctx context.Context, query string) (lookup, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("q", query)
	if n.opts.Email != "" {
		params.Set("email", n.opts.Email)
	}

	base := strings.TrimRight(n.opts.BaseURL, "?&")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return lookup{}, err
	}
	req.Header.Set("User-Agent", n.opts.UserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := n.client.Do(req)
	if err != nil {
		return lookup{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lookup{}, fmt.Errorf("geocoder responded with status %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return lookup{}, eris.Wrap(err, "decode geocoder response")
	}
	if len(places) == 0 {
		return lookup{}, nil
	}

	p := places[0]
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lon, errLon := strconv.ParseFloat(p.Lon, 64)
	if err := errors.Join(errLat, errLon); err != nil {
		return lookup{}, eris.Wrap(err, "parse coordinates")
	}

	state, _ := CanonicalState(p.Address.State)
	return lookup{
		res: Result{
			Point:       domain.GeoPoint{Lat: lat, Lon: lon},
			State:       state,
			DisplayName: p.DisplayName,
		},
		found: true,
	}, nil
}
