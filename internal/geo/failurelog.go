package geo

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// FailureLog appends "Failed to geocode: <input>" lines to a text file.
// Writers in this process serialize on a mutex, other processes on a lock
// file next to it.
type FailureLog struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path, lock: flock.New(path + ".lock")}
}

func (l *FailureLog) Path() string { return l.path }

func (l *FailureLog) Record(input string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return err
	}
	defer l.lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "Failed to geocode: %s\n", input)
	return err
}
