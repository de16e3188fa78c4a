package store

import (
	"context"
	"fmt"
)

// Sheet is one append-only tab of a Group.
type Sheet interface {
	ReadAll(ctx context.Context) ([][]string, error)
	AppendRows(ctx context.Context, rows [][]string) error
}

// Group holds the named sheets of one store (a spreadsheet, a database, a
// directory of CSV files).
type Group interface {
	Sheet(name string) Sheet
	Close() error
}

// PersistenceError reports a failed read or append against a sheet.
type PersistenceError struct {
	Sheet string
	Op    string // read | append
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %s: %v", e.Sheet, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
