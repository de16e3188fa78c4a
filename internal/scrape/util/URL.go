package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL resolves href against base the way a browser would.
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return b.ResolveReference(h).String(), nil
}

// PageURL builds the listing URL for a 1-based page index: <base>/<page>.
func PageURL(base string, page int) string {
	return fmt.Sprintf("%s/%d", strings.TrimRight(base, "/"), page)
}
