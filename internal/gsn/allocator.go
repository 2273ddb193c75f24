// Package gsn implements the Global Sequence Number allocator and its
// companion append-only index, both keyed off dedicated lock files so
// GSN assignment is independent of active-log rotation.
package gsn

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/brennhill/gasoline-history/internal/historyerr"
)

const (
	counterFileName = "count.lock"
	counterSize     = 8
	filePerm        = 0o644
	dirPerm         = 0o755
)

// Allocator hands out monotonic 64-bit sequence numbers, persisted
// little-endian in an 8-byte counter file. Safe across threads and
// across processes sharing the same directory.
type Allocator struct {
	mu   sync.Mutex
	path string
	fl   *flock.Flock
}

// Open creates dir if absent and the counter file if absent
// (initial value 0), returning an Allocator bound to it.
func Open(dir string) (*Allocator, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, historyerr.IO("create gsn directory", err)
	}
	path := filepath.Join(dir, counterFileName)
	a := &Allocator{path: path, fl: flock.New(path + ".lock")}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := a.writeValue(0); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, historyerr.IO("stat gsn counter", err)
	}
	return a, nil
}

// Next reads the current value c under an exclusive lock, writes and
// fsyncs c+1, and returns c+1. The first allocated GSN is 1.
func (a *Allocator) Next() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.fl.Lock(); err != nil {
		return 0, historyerr.IO("acquire gsn lock", err)
	}
	defer a.fl.Unlock()

	current, err := a.readValueLocked()
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := a.writeValueLocked(next); err != nil {
		return 0, err
	}
	return next, nil
}

// Current reads and returns the current value under a shared lock.
func (a *Allocator) Current() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.fl.RLock(); err != nil {
		return 0, historyerr.IO("acquire gsn read lock", err)
	}
	defer a.fl.Unlock()

	return a.readValueLocked()
}

// Reset writes v unconditionally under an exclusive lock. Maintenance
// only: GSNs must never regress in normal operation.
func (a *Allocator) Reset(v uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.fl.Lock(); err != nil {
		return historyerr.IO("acquire gsn lock", err)
	}
	defer a.fl.Unlock()

	return a.writeValueLocked(v)
}

func (a *Allocator) readValueLocked() (uint64, error) {
	data, err := os.ReadFile(a.path) // #nosec G304 -- path constructed from trusted project directory
	if err != nil {
		return 0, historyerr.IO("read gsn counter", err)
	}
	if len(data) != counterSize {
		return 0, nil
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (a *Allocator) writeValueLocked(v uint64) error {
	return a.writeValue(v)
}

// writeValue writes v to a sibling temp file and renames it into
// place, so a crash mid-write never leaves a torn counter file.
func (a *Allocator) writeValue(v uint64) error {
	buf := make([]byte, counterSize)
	binary.LittleEndian.PutUint64(buf, v)

	tmp := a.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return historyerr.IO("create gsn temp file", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return historyerr.IO("write gsn counter", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return historyerr.IO("fsync gsn counter", err)
	}
	if err := f.Close(); err != nil {
		return historyerr.IO("close gsn temp file", err)
	}
	return historyerr.IO("rename gsn counter", os.Rename(tmp, a.path))
}
