package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

type PostgresGroup struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresGroup, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "parse postgres dsn")
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping postgres")
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS sheet_rows (
  id BIGSERIAL PRIMARY KEY,
  sheet TEXT NOT NULL,
  cells TEXT[] NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, id)`,
	} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "migrate postgres")
		}
	}

	return &PostgresGroup{pool: pool}, nil
}

func (g *PostgresGroup) Sheet(name string) Sheet {
	return &pgSheet{pool: g.pool, name: name}
}

func (g *PostgresGroup) Close() error {
	g.pool.Close()
	return nil
}

type pgSheet struct {
	pool *pgxpool.Pool
	name string
}

func (s *pgSheet) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY id`, s.name)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		var cells []string
		err := row.Scan(&cells)
		return cells, err
	})
}

// AppendRows queues every row into one batch inside a transaction.
func (s *pgSheet) AppendRows(ctx context.Context, rows [][]string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			if r == nil {
				r = []string{}
			}
			b.Queue(`INSERT INTO sheet_rows(sheet, cells) VALUES ($1, $2)`, s.name, r)
		}
		br := tx.SendBatch(ctx, b)
		for range rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
}
