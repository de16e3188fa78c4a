package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/category/small-business/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="company with_img g_1"><h4><a href="/company/1">a</a></h4></div>
<div class="company with_img g_2"><h4><a href="/company/2">b</a></h4></div>
</body></html>`)
	})
	detail := func(name, location string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><body><h1>%s - Directory</h1>
<div id="company_address">%s</div>
<div class="info"><span class="label">Employees</span>120</div>
</body></html>`, name, location)
		}
	}
	mux.HandleFunc("/company/1", detail("Yaba Foods", "12 Main St, Yaba, Lagos, Nigeria"))
	mux.HandleFunc("/company/2", detail("Kano Textiles", "Sabon Gari, Kano, Nigeria"))
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "Lagos":
			fmt.Fprint(w, `[{"lat":"6.52","lon":"3.39","address":{"state":"Lagos State"}}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "test-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunCrawlThenQualify(t *testing.T) {
	srv := fakeUpstream(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
crawl:
  base_url: %q
  pages: 1
  detail_delay_seconds: 0
geocoder:
  base_url: %q
  min_interval_seconds: 0
sink:
  backend: memory
log:
  level: info
`, srv.URL+"/category/small-business", srv.URL+"/search"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"run", "-data-dir", dir, "-config", cfgPath, "-env", filepath.Join(dir, "absent.env")},
		&stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "crawl: 1 pages, 2 records, 0 failed, 2 rows written to Sheet1")
	assert.Contains(t, out, "qualify: 2 rows, 1 qualified, 1 not found, 0 out of range, 0 without location")
	assert.Contains(t, out, "[crawl.flush]")
	assert.Contains(t, out, "[qualify.lead]")

	logBytes, err := os.ReadFile(filepath.Join(dir, "scraper.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logBytes), "crawl: batch flushed")

	failed, err := os.ReadFile(filepath.Join(dir, "failed_geocoding.log"))
	require.NoError(t, err)
	assert.Equal(t, "Failed to geocode: Kano\n", string(failed))
}

func TestRunCSVBackendPersistsSheets(t *testing.T) {
	srv := fakeUpstream(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
crawl:
  base_url: %q
  pages: 1
  detail_delay_seconds: 0
sink:
  backend: csv
`, srv.URL+"/category/small-business"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"crawl", "-data-dir", dir, "-config", cfgPath, "-env", filepath.Join(dir, "absent.env")},
		&stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	b, err := os.ReadFile(filepath.Join(dir, "sheets", "Sheet1.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "Company Name,Location")
	assert.Contains(t, string(b), "Yaba Foods")
	assert.Contains(t, string(b), "Medium")
}

func TestRunWithProgressServer(t *testing.T) {
	srv := fakeUpstream(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
crawl:
  base_url: %q
  pages: 1
  detail_delay_seconds: 0
sink:
  backend: memory
`, srv.URL+"/category/small-business"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"crawl", "-data-dir", dir, "-config", cfgPath, "-env", filepath.Join(dir, "absent.env"), "-listen", "127.0.0.1:0"},
		&stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "progress server on http://127.0.0.1:")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "sink:\n  backend: sheets\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"crawl", "-data-dir", dir, "-config", cfgPath, "-env", filepath.Join(dir, "absent.env")},
		&stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "sink.sheets.spreadsheet_id is required")
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: leadscout")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"scrape"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "scrape"`)
}

func TestInDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "scraper.log"), inDataDir("data", "scraper.log"))
	assert.Equal(t, "/var/log/x.log", inDataDir("data", "/var/log/x.log"))
	assert.Equal(t, "", inDataDir("data", ""))
}
