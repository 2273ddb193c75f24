// Package historylog implements the active log file: append, byte-offset
// cache, line scan/repair, and locked rewrite, plus the rotation
// (archiving) protocol layered on top of it.
//
// Lock ordering: the in-process mutex is acquired before the advisory
// file lock, and released after it — the mutex avoids unnecessary
// contention on the OS lock within a single process, while the file
// lock is what makes concurrent processes on the same host safe.
package historylog

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/brennhill/gasoline-history/internal/historyerr"
)

const (
	activeLogName = "message.log"
	lockFileName  = "message.log.lock"
	dirPerm       = 0o755
	filePerm      = 0o644
)

// LogFile owns one active log file, its offset cache, and its
// advisory file lock.
type LogFile struct {
	mu       sync.Mutex
	dir      string
	path     string
	lockPath string
	flock    *flock.Flock
	cfg      Config
	archiver *Archiver
	logger   zerolog.Logger

	offsets []int64 // offsets[i] = byte offset of line i
	lastLen int64   // byte length (incl. \n) of the last line
}

// Open creates dir if absent, creates an empty active log if absent,
// otherwise scans the existing log and repairs/rebuilds the offset
// cache (§4.1 Repair).
func Open(dir string, logger zerolog.Logger, opts ...Option) (*LogFile, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, historyerr.IO("create history directory", err)
	}

	lf := &LogFile{
		dir:      dir,
		path:     filepath.Join(dir, activeLogName),
		lockPath: filepath.Join(dir, lockFileName),
		cfg:      cfg,
		logger:   logger,
	}
	lf.flock = flock.New(lf.lockPath)
	lf.archiver = &Archiver{lf: lf}

	if _, err := os.Stat(lf.path); os.IsNotExist(err) {
		if err := os.WriteFile(lf.path, nil, filePerm); err != nil {
			return nil, historyerr.IO("create active log", err)
		}
	} else if err != nil {
		return nil, historyerr.IO("stat active log", err)
	}

	if err := lf.rebuildCacheWithRepair(); err != nil {
		return nil, err
	}
	return lf, nil
}

// Path returns the active log's absolute path.
func (lf *LogFile) Path() string { return lf.path }

// Dir returns the directory this LogFile owns.
func (lf *LogFile) Dir() string { return lf.dir }

// Archiver returns the rotation helper bound to this LogFile.
func (lf *LogFile) Archiver() *Archiver { return lf.archiver }

// Count returns the cached line count.
func (lf *LogFile) Count() int {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return len(lf.offsets)
}

// Append writes line (already JSON + "\n") under the file lock,
// flushes, fsyncs, updates the offset cache, and runs rotation if the
// configured threshold has been reached. Returns the 0-based index of
// the newly written line and the new total line count.
func (lf *LogFile) Append(line []byte) (index int, count int, err error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if err := lf.flock.Lock(); err != nil {
		return 0, 0, historyerr.IO("acquire log file lock", err)
	}
	defer lf.flock.Unlock()

	f, err := os.OpenFile(lf.path, os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return 0, 0, historyerr.IO("open active log for append", err)
	}

	newOffset := int64(0)
	if len(lf.offsets) > 0 {
		newOffset = lf.offsets[len(lf.offsets)-1] + lf.lastLen
	}

	n, err := f.Write(line)
	if err != nil {
		f.Close()
		return 0, 0, historyerr.IO("write line", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, 0, historyerr.IO("fsync active log", err)
	}
	if err := f.Close(); err != nil {
		return 0, 0, historyerr.IO("close active log", err)
	}

	lf.offsets = append(lf.offsets, newOffset)
	lf.lastLen = int64(n)
	index = len(lf.offsets) - 1
	count = len(lf.offsets)

	// The append itself has already committed durably at this point;
	// a rotation failure here does not un-commit it. Log and continue
	// with the unrotated (but correct) active log.
	if count >= lf.cfg.MaxRecords {
		if _, err := lf.archiver.rotateLocked(); err != nil {
			lf.logger.Error().Err(err).Msg("rotation failed after append")
		} else {
			count = len(lf.offsets)
		}
	}

	return index, count, nil
}

// GetRange seeks to offsets[start], reads count lines, and decodes
// each as JSON. Replacement-character or empty lines are skipped
// silently. An out-of-range start returns an empty slice.
func (lf *LogFile) GetRange(start, count int) ([]Record, error) {
	lf.mu.Lock()
	offsets := lf.offsets
	path := lf.path
	lf.mu.Unlock()

	return readRange(lf, path, offsets, start, count)
}

// readRange is the lock-free core shared by GetRange (which snapshots
// offsets/path under the mutex then releases it before doing file IO)
// and the rotation path (which is already inside the critical section
// and can pass lf.offsets/lf.path directly).
func readRange(lf *LogFile, path string, offsets []int64, start, count int) ([]Record, error) {
	if start < 0 || start >= len(offsets) || count <= 0 {
		return nil, nil
	}
	end := start + count
	if end > len(offsets) {
		end = len(offsets)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, historyerr.IO("open active log for read", err)
	}
	defer f.Close()

	if _, err := f.Seek(offsets[start], io.SeekStart); err != nil {
		return nil, historyerr.IO("seek active log", err)
	}

	reader := bufio.NewReader(f)
	result := make([]Record, 0, end-start)
	for i := start; i < end; i++ {
		raw, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, historyerr.IO("read line", err)
		}
		if len(raw) == 0 {
			break
		}
		if isSkippableLine(raw) {
			continue
		}
		rec, err := decodeLine(raw)
		if err != nil {
			lf.logger.Warn().Int("line", i).Err(err).Msg("skipping corrupt line on read")
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// GetLatest returns the n most recent records, most-recent first.
func (lf *LogFile) GetLatest(n int) ([]Record, error) {
	count := lf.Count()
	start := count - n
	if start < 0 {
		start = 0
	}
	records, err := lf.GetRange(start, count-start)
	if err != nil {
		return nil, err
	}
	reverse(records)
	return records, nil
}

func reverse(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

// truncatePrefixLocked removes the first k lines by rewriting the active
// log to a sibling temp file and atomically renaming it into place.
// Used by the Archiver as the final step of rotation. Caller must
// already hold lf.mu and the file lock.
func (lf *LogFile) truncatePrefixLocked(k int) error {
	if k <= 0 {
		return nil
	}
	if k > len(lf.offsets) {
		k = len(lf.offsets)
	}

	src, err := os.Open(lf.path)
	if err != nil {
		return historyerr.IO("open active log for truncate", err)
	}
	defer src.Close()

	if k < len(lf.offsets) {
		if _, err := src.Seek(lf.offsets[k], io.SeekStart); err != nil {
			return historyerr.IO("seek past truncated prefix", err)
		}
	} else {
		// Truncating everything; nothing further to read.
		src.Close()
		return lf.replaceWithLocked(nil)
	}

	remainder, err := io.ReadAll(src)
	if err != nil {
		return historyerr.IO("read active log remainder", err)
	}
	return lf.replaceWithLocked(remainder)
}

// replaceWithLocked atomically replaces the active log's contents
// with data, then rebuilds the offset cache from the result. Caller
// must hold lf.mu and the file lock.
func (lf *LogFile) replaceWithLocked(data []byte) error {
	tmp := lf.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return historyerr.IO("create temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return historyerr.IO("write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return historyerr.IO("fsync temp file", err)
	}
	if err := f.Close(); err != nil {
		return historyerr.IO("close temp file", err)
	}
	if err := os.Rename(tmp, lf.path); err != nil {
		return historyerr.IO("rename temp file over active log", err)
	}
	return lf.rebuildCacheLocked()
}

// rebuildCacheWithRepair acquires both locks, runs Repair, and rebuilds
// the offset cache. Used by Open and InvalidateCaches.
func (lf *LogFile) rebuildCacheWithRepair() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if err := lf.flock.Lock(); err != nil {
		return historyerr.IO("acquire log file lock", err)
	}
	defer lf.flock.Unlock()

	return lf.repairLocked()
}

// repairLocked scans the file line-by-line. A line is valid iff it
// ends with '\n' and its content parses as JSON. If any line was
// invalid or truncated, the file is rewritten to contain only the
// concatenation of valid lines via a temp-file-and-rename swap.
// Caller must hold lf.mu and the file lock.
func (lf *LogFile) repairLocked() error {
	f, err := os.Open(lf.path)
	if err != nil {
		return historyerr.IO("open active log for repair scan", err)
	}

	reader := bufio.NewReader(f)
	var validLines [][]byte
	corruptionFound := false
	var offset int64
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			break
		}
		complete := len(raw) > 0 && raw[len(raw)-1] == '\n'
		if !complete {
			corruptionFound = true
			break
		}
		if isValidJSONLine(raw) {
			validLines = append(validLines, raw)
		} else {
			corruptionFound = true
			lf.logger.Warn().Int64("offset", offset).Msg("dropping corrupt line during repair")
		}
		offset += int64(len(raw))
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return historyerr.IO("scan active log", err)
		}
	}
	f.Close()

	if corruptionFound {
		var buf bytes.Buffer
		for _, l := range validLines {
			buf.Write(l)
		}
		if err := lf.replaceWithLocked(buf.Bytes()); err != nil {
			return err
		}
		lf.logger.Info().Int("kept", len(validLines)).Msg("repaired active log")
		return nil
	}

	return lf.rebuildCacheLocked()
}

// rebuildCacheLocked rebuilds the offset cache from the (all-valid)
// file on disk. Caller must hold lf.mu and the file lock.
func (lf *LogFile) rebuildCacheLocked() error {
	f, err := os.Open(lf.path)
	if err != nil {
		return historyerr.IO("open active log for cache rebuild", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var offsets []int64
	var offset, lastLen int64
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) == 0 {
			break
		}
		offsets = append(offsets, offset)
		offset += int64(len(raw))
		lastLen = int64(len(raw))
		if err == io.EOF {
			break
		}
		if err != nil {
			return historyerr.IO("scan active log", err)
		}
	}

	lf.offsets = offsets
	lf.lastLen = lastLen
	return nil
}

// InvalidateCaches forces a full rebuild of the offset cache,
// re-running repair. Used when an external tool modifies the files.
func (lf *LogFile) InvalidateCaches() error {
	return lf.rebuildCacheWithRepair()
}

func isValidJSONLine(raw []byte) bool {
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		return false
	}
	content := bytes.TrimSuffix(raw, []byte{'\n'})
	if len(bytes.TrimSpace(content)) == 0 {
		return false
	}
	_, err := decodeLine(content)
	return err == nil
}
