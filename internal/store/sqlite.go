package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteGroup struct {
	Pool *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteGroup, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(1) // sqlite wants a single writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := migrateSQLite(ctx, pool); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &SQLiteGroup{Pool: pool}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sheet_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sheet TEXT NOT NULL,
  cells TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet
ON sheet_rows(sheet, id);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func (g *SQLiteGroup) Sheet(name string) Sheet {
	return &sqliteSheet{db: g.Pool, name: name}
}

func (g *SQLiteGroup) Close() error {
	if g == nil || g.Pool == nil {
		return nil
	}
	return g.Pool.Close()
}

type sqliteSheet struct {
	db   *sql.DB
	name string
}

func (s *sqliteSheet) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT cells
FROM sheet_rows
WHERE sheet = ?
ORDER BY id;
`, s.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return nil, fmt.Errorf("sheet %s: decode row: %w", s.name, err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqliteSheet) AppendRows(ctx context.Context, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows(sheet, cells, created_at) VALUES(?,?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if r == nil {
			r = []string{}
		}
		b, _ := json.Marshal(r)
		if _, err := stmt.ExecContext(ctx, s.name, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
