package historylog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brennhill/gasoline-history/internal/historyerr"
)

const archivePrefix = "history_"

// Archiver keeps an active log bounded by rotating its oldest prefix
// into a timestamped, immutable archive file once the log crosses
// MaxRecords.
type Archiver struct {
	lf *LogFile
}

// ArchiveInfo describes one archive file on disk.
type ArchiveInfo struct {
	Path    string
	ModTime time.Time
}

// MaybeRotate archives the oldest ArchiveBatch records if the active
// log has reached MaxRecords. It is safe to call outside the append
// path (e.g. from maintenance tooling); it takes the locks itself.
func (a *Archiver) MaybeRotate() (bool, error) {
	a.lf.mu.Lock()
	defer a.lf.mu.Unlock()

	if err := a.lf.flock.Lock(); err != nil {
		return false, historyerr.IO("acquire log file lock", err)
	}
	defer a.lf.flock.Unlock()

	return a.rotateLocked()
}

// rotateLocked runs the rotation protocol. Caller must already hold
// lf.mu and the file lock (it is invoked as the tail step of Append
// while both are held, per §4.2).
func (a *Archiver) rotateLocked() (bool, error) {
	lf := a.lf
	if len(lf.offsets) < lf.cfg.MaxRecords {
		return false, nil
	}
	batch := lf.cfg.ArchiveBatch
	if batch > len(lf.offsets) {
		batch = len(lf.offsets)
	}
	if batch <= 0 {
		return false, nil
	}

	oldest, err := lf.readLinesLocked(0, batch)
	if err != nil {
		return false, err
	}

	archivePath, err := a.newArchivePathLocked()
	if err != nil {
		return false, err
	}

	if err := writeArchiveFile(archivePath, oldest); err != nil {
		return false, err
	}

	if err := lf.truncatePrefixLocked(batch); err != nil {
		return false, err
	}

	lf.logger.Info().Str("archive", archivePath).Int("records", len(oldest)).Msg("rotated active log")
	return true, nil
}

// readLinesLocked decodes [start, start+count) records from the active
// log, re-encoding is left to the caller (writeArchiveFile). Caller
// must hold lf.mu and the file lock.
func (lf *LogFile) readLinesLocked(start, count int) ([]Record, error) {
	return readRange(lf, lf.path, lf.offsets, start, count)
}

// writeArchiveFile re-serialises records one per line into path,
// flushing and fsyncing before returning, per the invariant that the
// archive exists and is durable before the active log is swapped.
func writeArchiveFile(path string, records []Record) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := EncodeLine(rec)
		if err != nil {
			return err
		}
		buf.Write(line)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return historyerr.IO("create archive file", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return historyerr.IO("write archive file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return historyerr.IO("fsync archive file", err)
	}
	return historyerr.IO("close archive file", f.Close())
}

// newArchivePathLocked composes a unique archive filename from
// wall-clock time, local time, millisecond precision, per the
// "history_%Y_%m_%d_%H_%M_%S_%f.log" grammar.
func (a *Archiver) newArchivePathLocked() (string, error) {
	base := archiveFileName(time.Now())
	path := filepath.Join(a.lf.dir, base)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		// Extremely unlikely millisecond collision under the same
		// file lock; fall back to a numeric suffix rather than losing
		// data by overwriting an existing archive.
		path = filepath.Join(a.lf.dir, fmt.Sprintf("%s.%d", base, i))
	}
}

func archiveFileName(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%s%s_%03d.log", archivePrefix, t.Format("2006_01_02_15_04_05"), t.Nanosecond()/1_000_000)
}

// List enumerates archive files in dir, sorted newest-first by
// modification time.
func List(dir string) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, historyerr.IO("list archive directory", err)
	}

	var archives []ArchiveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), archivePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, ArchiveInfo{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ModTime.After(archives[j].ModTime)
	})
	return archives, nil
}

// ReadArchive decodes every record in the archive file at path,
// oldest-first, skipping corrupt or empty lines (archives are treated
// as immutable; any corrupt line is simply skipped on read).
func ReadArchive(path string) ([]Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path sourced from List() over a trusted project directory
	if err != nil {
		return nil, historyerr.IO("read archive", err)
	}

	var records []Record
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if isSkippableLine(line) {
			continue
		}
		rec, err := decodeLine(line)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
