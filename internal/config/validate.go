package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and the problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Qualify.States = trimList(out.Qualify.States)
	out.Sink.Backend = strings.ToLower(strings.TrimSpace(out.Sink.Backend))
	out.Crawl.BaseURL = strings.TrimRight(strings.TrimSpace(out.Crawl.BaseURL), "/")

	// ---- crawl ----
	if u, err := url.Parse(out.Crawl.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("crawl.base_url must be an absolute URL")
	}
	if out.Crawl.Pages <= 0 {
		res.addErr("crawl.pages must be > 0")
	}
	if out.Crawl.FlushEveryPages <= 0 {
		res.addErr("crawl.flush_every_pages must be > 0")
	}
	if out.Crawl.DetailDelaySeconds < 0 {
		res.addErr("crawl.detail_delay_seconds must be >= 0")
	} else if out.Crawl.DetailDelaySeconds < 1 {
		res.addWarn("crawl.detail_delay_seconds is %d; the directory rate-limits aggressive clients", out.Crawl.DetailDelaySeconds)
	}
	if out.Crawl.Workers < 1 {
		res.addErr("crawl.workers must be >= 1")
	} else if out.Crawl.Workers > 8 {
		res.addWarn("crawl.workers is %d; requests are still paced, extra workers only wait", out.Crawl.Workers)
	}

	// ---- fetch / geocoder ----
	if out.Fetch.Attempts < 1 {
		res.addErr("fetch.attempts must be >= 1")
	}
	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Geocoder.Attempts < 1 {
		res.addErr("geocoder.attempts must be >= 1")
	}
	if strings.TrimSpace(out.Geocoder.UserAgent) == "" {
		res.addErr("geocoder.user_agent is required by the geocoding service")
	}
	if out.Geocoder.MinIntervalSeconds < 1 && strings.Contains(out.Geocoder.BaseURL, "nominatim.openstreetmap.org") {
		res.addWarn("public Nominatim allows at most 1 request per second")
	}

	// ---- qualify ----
	if out.Qualify.ThresholdMiles <= 0 {
		res.addErr("qualify.threshold_miles must be > 0")
	}
	if len(out.Qualify.Landmarks) == 0 {
		res.addErr("qualify.landmarks must have at least 1 entry")
	}
	for i, l := range out.Qualify.Landmarks {
		if strings.TrimSpace(l.Name) == "" {
			res.addErr("qualify.landmarks[%d].name is required", i)
		}
		if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
			res.addErr("qualify.landmarks[%d] has out-of-range coordinates", i)
		}
	}
	if len(out.Qualify.States) == 0 {
		res.addWarn("qualify.states is empty; no lead will get the state suffix")
	}

	// ---- sink ----
	switch out.Sink.Backend {
	case "sheets":
		if strings.TrimSpace(out.Sink.Sheets.SpreadsheetID) == "" {
			res.addErr("sink.sheets.spreadsheet_id is required when sink.backend=sheets")
		}
	case "postgres":
		if strings.TrimSpace(out.Sink.Postgres.DSN) == "" {
			res.addErr("sink.postgres.dsn is required when sink.backend=postgres")
		}
	case "sqlite", "csv", "memory":
	default:
		res.addErr("sink.backend must be one of sheets, sqlite, postgres, csv, memory (got %q)", out.Sink.Backend)
	}
	if out.Sink.RawSheet == out.Sink.QualifiedSheet {
		res.addErr("sink.raw_sheet and sink.qualified_sheet must differ")
	}

	switch strings.ToLower(out.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		res.addErr("log.level must be debug, info, warn or error")
	}

	return out, res
}
