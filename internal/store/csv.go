package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CSVGroup stores each sheet as dir/<name>.csv. Appends hold an exclusive
// file lock so concurrent processes interleave whole batches.
type CSVGroup struct {
	dir string
}

func OpenCSV(dir string) (*CSVGroup, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create csv dir %s", dir)
	}
	return &CSVGroup{dir: dir}, nil
}

func (g *CSVGroup) Sheet(name string) Sheet {
	path := filepath.Join(g.dir, unsafeName.ReplaceAllString(name, "_")+".csv")
	return &csvSheet{path: path, lock: flock.New(path + ".lock")}
}

func (g *CSVGroup) Close() error { return nil }

type csvSheet struct {
	path string
	lock *flock.Flock
}

func (s *csvSheet) ReadAll(_ context.Context) ([][]string, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, utf8BOM)

	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (s *csvSheet) AppendRows(_ context.Context, rows [][]string) error {
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil && fi.Size() == 0 {
		// Excel wants the BOM to read UTF-8
		if _, err := f.Write(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}
