package store

import (
	"context"
	"fmt"

	"leadscout/internal/config"

	"google.golang.org/api/option"
)

// Open connects the configured backend. sheetsOpts are only used by the
// sheets backend (credentials, endpoint).
func Open(ctx context.Context, cfg config.Sink, sheetsOpts ...option.ClientOption) (Group, error) {
	switch cfg.Backend {
	case "sheets":
		return OpenSheets(ctx, cfg.Sheets.SpreadsheetID, sheetsOpts...)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	case "csv":
		return OpenCSV(cfg.CSV.Dir)
	case "memory":
		return NewMemoryGroup(), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
