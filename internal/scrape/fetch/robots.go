package fetch

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

type robotsCache struct {
	hc *http.Client
	ua string

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache(hc *http.Client, ua string) *robotsCache {
	return &robotsCache{hc: hc, ua: ua, hosts: map[string]*robotstxt.RobotsData{}}
}

// allowed fetches robots.txt once per scheme+host. A missing or broken
// robots.txt allows everything.
func (r *robotsCache) allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, ok := r.hosts[key]
	r.mu.Unlock()

	if !ok {
		data, err = r.load(ctx, key)
		if err != nil {
			return true, err
		}
		r.mu.Lock()
		r.hosts[key] = data
		r.mu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.ua), nil
}

func (r *robotsCache) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.ua)
	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return robotstxt.FromResponse(resp)
}
