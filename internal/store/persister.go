package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BatchPersister appends rows to a sheet and writes the header row exactly
// once, when the sheet is first found empty.
type BatchPersister struct {
	mu       sync.Mutex
	name     string
	sheet    Sheet
	header   []string
	nonEmpty bool
	log      *zap.Logger
}

func NewBatchPersister(name string, sheet Sheet, header []string, log *zap.Logger) *BatchPersister {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchPersister{
		name:   name,
		sheet:  sheet,
		header: append([]string(nil), header...),
		log:    log.With(zap.String("sheet", name)),
	}
}

func (p *BatchPersister) Name() string { return p.name }

// EnsureHeader writes the header if the sheet is empty.
func (p *BatchPersister) EnsureHeader(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(ctx, nil)
}

// Append writes rows in a single bulk call, preceded by the header when the
// sheet is still empty. An empty batch is a no-op.
func (p *BatchPersister) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(ctx, rows)
}

func (p *BatchPersister) write(ctx context.Context, rows [][]string) error {
	if !p.nonEmpty {
		existing, err := p.sheet.ReadAll(ctx)
		if err != nil {
			return &PersistenceError{Sheet: p.name, Op: "read", Err: err}
		}
		p.nonEmpty = len(existing) > 0
	}

	out := rows
	if !p.nonEmpty {
		out = make([][]string, 0, len(rows)+1)
		out = append(out, p.header)
		out = append(out, rows...)
		p.log.Info("store: sheet is empty, writing header")
	}
	if len(out) == 0 {
		return nil
	}

	if err := p.sheet.AppendRows(ctx, out); err != nil {
		return &PersistenceError{Sheet: p.name, Op: "append", Err: err}
	}
	p.nonEmpty = true
	p.log.Debug("store: rows appended", zap.Int("rows", len(rows)))
	return nil
}
