package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// OverlayEnv loads any .env files (missing ones are ignored) and applies
// LEADSCOUT_* variables on top of cfg.
func OverlayEnv(cfg *Config, envFiles ...string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LEADSCOUT_BASE_URL", &cfg.Crawl.BaseURL)
	num("LEADSCOUT_PAGES", &cfg.Crawl.Pages)
	num("LEADSCOUT_WORKERS", &cfg.Crawl.Workers)
	str("LEADSCOUT_SINK_BACKEND", &cfg.Sink.Backend)
	str("LEADSCOUT_SPREADSHEET_ID", &cfg.Sink.Sheets.SpreadsheetID)
	str("LEADSCOUT_CREDENTIALS_FILE", &cfg.Sink.Sheets.CredentialsFile)
	str("LEADSCOUT_SQLITE_PATH", &cfg.Sink.SQLite.Path)
	str("LEADSCOUT_PG_DSN", &cfg.Sink.Postgres.DSN)
	str("LEADSCOUT_CSV_DIR", &cfg.Sink.CSV.Dir)
	str("LEADSCOUT_GEOCODER_EMAIL", &cfg.Geocoder.Email)
	str("LEADSCOUT_LOG_LEVEL", &cfg.Log.Level)
	str("LEADSCOUT_LOG_FILE", &cfg.Log.File)
	return nil
}
