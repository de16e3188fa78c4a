// Package fetch retrieves upstream HTML pages as parsed goquery documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"leadscout/internal/retry"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// FetchError is returned once every attempt at a URL has failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string { return "upstream status " + e.Status }

type Options struct {
	UserAgent   string
	Timeout     time.Duration
	Attempts    int
	BackoffBase time.Duration

	// RespectRobots makes Fetch refuse URLs disallowed by the host's robots.txt.
	RespectRobots bool
}

type Fetcher struct {
	hc     *http.Client
	ua     string
	policy retry.Policy
	robots *robotsCache
	log    *zap.Logger
}

func New(opts Options, log *zap.Logger) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	f := &Fetcher{
		hc:  &http.Client{Timeout: opts.Timeout},
		ua:  opts.UserAgent,
		log: log.With(zap.String("component", "fetch")),
	}
	f.policy = retry.Policy{
		Attempts: opts.Attempts,
		Delay:    retry.Exponential(opts.BackoffBase),
	}
	if opts.RespectRobots {
		f.robots = newRobotsCache(f.hc, f.ua)
	}
	return f
}

// WithSleep replaces the backoff sleeper. Used by tests.
func (f *Fetcher) WithSleep(sleep func(context.Context, time.Duration) error) *Fetcher {
	f.policy.Sleep = sleep
	return f
}

// Fetch GETs rawURL and parses the body. Transport errors and non-2xx
// responses are retried with exponential backoff; the final failure is
// returned as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	f.log.Debug("fetch: attempting", zap.String("url", rawURL))

	if f.robots != nil {
		ok, err := f.robots.allowed(ctx, rawURL)
		if err != nil {
			f.log.Debug("fetch: robots.txt unavailable", zap.String("url", rawURL), zap.Error(err))
		} else if !ok {
			return nil, &FetchError{URL: rawURL, Attempts: 0, Err: eris.New("disallowed by robots.txt")}
		}
	}

	p := f.policy
	p.OnFailure = func(attempt int, err error) {
		f.log.Error("fetch: attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	doc, err := retry.Do(ctx, p, func(ctx context.Context, _ int) (*goquery.Document, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: rawURL, Attempts: p.Attempts, Err: err}
	}
	f.log.Debug("fetch: ok", zap.String("url", rawURL))
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "build request %s", rawURL)
	}
	req.Header.Set("User-Agent", f.ua)

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	return doc, nil
}
