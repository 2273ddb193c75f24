// Package history composes the active-log engine and the GSN services
// into the per-(workspace, project) HistoryFacade: the unified
// read/write/notification API the rest of an application talks to.
package history

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brennhill/gasoline-history/internal/gsn"
	"github.com/brennhill/gasoline-history/internal/historyerr"
	"github.com/brennhill/gasoline-history/internal/historylog"
	"github.com/brennhill/gasoline-history/internal/state"
)

// Facade is the composed, per-project API: one LogFile, one GSN
// allocator, one GSN index, and the notifier the UI subscribes to.
type Facade struct {
	workspace string
	project   string
	dir       string

	logFile   *historylog.LogFile
	allocator *gsn.Allocator
	index     *gsn.Index
	notifier  *Notifier
	logger    zerolog.Logger
	opts      Options
}

// Open composes a Facade for (workspace, project), creating its
// on-disk layout if absent and running crash recovery over the active
// log.
func Open(workspace, project string, opts ...Option) (*Facade, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := state.ProjectDir(o.StateDir, workspace, project)
	if err != nil {
		return nil, historyerr.IO("resolve project history directory", err)
	}

	logFile, err := historylog.Open(dir, o.Logger,
		historylog.WithMaxRecords(o.MaxRecords),
		historylog.WithArchiveBatch(o.ArchiveBatch),
	)
	if err != nil {
		return nil, err
	}

	allocator, err := gsn.Open(dir)
	if err != nil {
		return nil, err
	}

	gsnIndex, err := gsn.OpenIndex(dir)
	if err != nil {
		return nil, err
	}

	return &Facade{
		workspace: workspace,
		project:   project,
		dir:       dir,
		logFile:   logFile,
		allocator: allocator,
		index:     gsnIndex,
		notifier:  newNotifier(o.Logger),
		logger:    o.Logger,
		opts:      o,
	}, nil
}

// Dir returns the archive directory this facade owns.
func (f *Facade) Dir() string { return f.dir }

// Notifier exposes the record_appended publish/subscribe hub.
func (f *Facade) Notifier() *Notifier { return f.notifier }

// Append stamps record.metadata.gsn with the next GSN, serialises and
// appends it (which may trigger rotation), records a GSN index entry,
// and emits record_appended. The caller's record is never mutated in
// place; a clone is stamped instead.
func (f *Facade) Append(record historylog.Record) (gsnVal uint64, currentGSN uint64, err error) {
	if record == nil {
		return 0, 0, historyerr.Schema("record is nil, not a JSON object")
	}

	next, err := f.allocator.Next()
	if err != nil {
		return 0, 0, err
	}

	stamped := cloneRecord(record)
	meta, _ := stamped["metadata"].(map[string]any)
	if meta == nil {
		meta = make(map[string]any)
	} else {
		meta = cloneMap(meta)
	}
	meta["gsn"] = next
	stamped["metadata"] = meta

	line, err := historylog.EncodeLine(stamped)
	if err != nil {
		// The GSN has already been allocated and is legitimately
		// skipped here; nothing was written.
		return 0, 0, err
	}

	lineIndex, _, err := f.logFile.Append(line)
	if err != nil {
		return 0, 0, err
	}

	if err := f.index.Append(gsn.Entry{
		GSN:    next,
		Kind:   gsn.StorageActive,
		FileID: 0,
		Offset: uint64(lineIndex),
	}); err != nil {
		f.logger.Error().Err(err).Uint64("gsn", next).Msg("failed to append gsn index entry")
	}

	current, err := f.allocator.Current()
	if err != nil {
		current = next
	}

	f.notifier.publish(Event{
		Workspace:  f.workspace,
		Project:    f.project,
		MessageID:  messageID(stamped),
		GSN:        next,
		CurrentGSN: current,
	})

	return next, current, nil
}

// Latest delegates to LogFile, most-recent first.
func (f *Facade) Latest(n int) ([]historylog.Record, error) {
	return f.logFile.GetLatest(n)
}

// AfterOffset reads active-log records with line index >= offset, up
// to n, oldest-first.
func (f *Facade) AfterOffset(offset, n int) ([]historylog.Record, error) {
	return f.logFile.GetRange(offset, n)
}

// BeforeOffset returns records with line index < offset from the
// active log, oldest-first; if fewer than n are available, it appends
// records from archives (newest archive first, oldest-first within
// each archive's requested suffix) until n are collected or archives
// are exhausted.
func (f *Facade) BeforeOffset(offset, n int) ([]historylog.Record, error) {
	if offset < 0 {
		offset = 0
	}
	start := offset - n
	if start < 0 {
		start = 0
	}
	active, err := f.logFile.GetRange(start, offset-start)
	if err != nil {
		return nil, err
	}

	needed := n - len(active)
	if needed <= 0 {
		return active, nil
	}

	older, err := f.collectFromArchives(needed, 0, func(historylog.Record) bool { return true })
	if err != nil {
		return nil, err
	}
	return append(older, active...), nil
}

// AfterGSN returns records appended since lastSeenGSN, ascending by
// GSN, up to n. Fast path: if the store hasn't advanced since
// lastSeenGSN, returns empty immediately. Falls back to scanning the
// AfterGSNArchiveCap newest archives (3 by default) if the active log
// alone can't satisfy the request.
func (f *Facade) AfterGSN(lastSeenGSN uint64, n int) ([]historylog.Record, error) {
	current, err := f.allocator.Current()
	if err != nil {
		return nil, err
	}
	if current == lastSeenGSN {
		return nil, nil
	}

	target := n
	if span := int(current - lastSeenGSN); span < target {
		target = span
	}
	if target <= 0 {
		return nil, nil
	}

	tail, err := f.logFile.GetLatest(target)
	if err != nil {
		return nil, err
	}
	matched := filterGSN(tail, func(g uint64) bool { return g > lastSeenGSN })

	if len(matched) < target {
		more, err := f.collectFromArchives(target-len(matched), f.opts.AfterGSNArchiveCap,
			func(r historylog.Record) bool { return recordGSN(r) > lastSeenGSN })
		if err != nil {
			return nil, err
		}
		matched = append(matched, more...)
	}

	return finalizeGSNWindow(matched, n), nil
}

// BeforeGSN is symmetric to AfterGSN for backward scroll: records with
// gsn < maxGSN, ascending, up to n, exhausting all archives if needed
// (no archive-count cap — see DESIGN.md's Open Question decision).
func (f *Facade) BeforeGSN(maxGSN uint64, n int) ([]historylog.Record, error) {
	all, err := f.logFile.GetRange(0, f.logFile.Count())
	if err != nil {
		return nil, err
	}
	matched := filterGSN(all, func(g uint64) bool { return g > 0 && g < maxGSN })
	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}

	needed := n - len(matched)
	if needed > 0 {
		older, err := f.collectFromArchives(needed, 0,
			func(r historylog.Record) bool { g := recordGSN(r); return g > 0 && g < maxGSN })
		if err != nil {
			return nil, err
		}
		matched = append(older, matched...)
	}

	return finalizeGSNWindow(matched, n), nil
}

// TotalCount sums the active log's count and every archive's line count.
func (f *Facade) TotalCount() (int, error) {
	total := f.logFile.Count()
	archives, err := historylog.List(f.dir)
	if err != nil {
		return 0, err
	}
	for _, a := range archives {
		recs, err := historylog.ReadArchive(a.Path)
		if err != nil {
			return 0, err
		}
		total += len(recs)
	}
	return total, nil
}

// CurrentGSN delegates to the allocator.
func (f *Facade) CurrentGSN() (uint64, error) {
	return f.allocator.Current()
}

// ResetGSN overwrites the allocator's counter. Intended for
// maintenance tooling repairing a store whose persisted counter has
// drifted from its GSN index; it does not touch the log or index
// themselves.
func (f *Facade) ResetGSN(v uint64) error {
	return f.allocator.Reset(v)
}

// Compact forces a rotation check on the active log immediately,
// rather than waiting for the next Append to cross MaxRecords.
// Reports whether a rotation actually ran.
func (f *Facade) Compact() (bool, error) {
	return f.logFile.Archiver().MaybeRotate()
}

// InvalidateCaches forces a refresh of the LogFile offset cache (and
// implicitly, the archive list, which is never cached — archives are
// enumerated fresh on every read that needs them).
func (f *Facade) InvalidateCaches() error {
	return f.logFile.InvalidateCaches()
}

// collectFromArchives walks archives newest-first (optionally capped
// to the newest archiveCap archives; 0 means no cap), collecting
// matching records until needed are gathered. Within each archive the
// matching records are taken as an oldest-first suffix, and each
// archive's contribution is prepended to what's already collected so
// the final slice stays oldest-first across archive boundaries.
func (f *Facade) collectFromArchives(needed, archiveCap int, match func(historylog.Record) bool) ([]historylog.Record, error) {
	if needed <= 0 {
		return nil, nil
	}
	archives, err := historylog.List(f.dir)
	if err != nil {
		return nil, err
	}

	var result []historylog.Record
	for i, a := range archives {
		if needed <= 0 {
			break
		}
		if archiveCap > 0 && i >= archiveCap {
			break
		}
		recs, err := historylog.ReadArchive(a.Path)
		if err != nil {
			return nil, err
		}
		var matched []historylog.Record
		for _, r := range recs {
			if match(r) {
				matched = append(matched, r)
			}
		}
		if len(matched) > needed {
			matched = matched[len(matched)-needed:]
		}
		result = append(matched, result...)
		needed -= len(matched)
	}
	return result, nil
}

func finalizeGSNWindow(records []historylog.Record, n int) []historylog.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return recordGSN(records[i]) < recordGSN(records[j])
	})
	records = dedupeByMessageID(records)
	if len(records) > n {
		records = records[:n]
	}
	return records
}

func dedupeByMessageID(records []historylog.Record) []historylog.Record {
	seen := make(map[string]bool, len(records))
	out := make([]historylog.Record, 0, len(records))
	for _, r := range records {
		id := messageID(r)
		if id == "" {
			out = append(out, r)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}

func filterGSN(records []historylog.Record, keep func(uint64) bool) []historylog.Record {
	out := make([]historylog.Record, 0, len(records))
	for _, r := range records {
		if keep(recordGSN(r)) {
			out = append(out, r)
		}
	}
	return out
}

func recordGSN(r historylog.Record) uint64 {
	meta, _ := r["metadata"].(map[string]any)
	if meta == nil {
		return 0
	}
	switch v := meta["gsn"].(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

func messageID(r historylog.Record) string {
	if s, ok := r["message_id"].(string); ok {
		return s
	}
	return ""
}

func cloneRecord(r historylog.Record) historylog.Record {
	return cloneMap(r)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewMessageID returns a random identifier suitable for a record's
// message_id field. Exposed as a convenience for callers that don't
// already have an id scheme of their own (used by cmd/historyctl's
// synthetic-record generator).
func NewMessageID() string {
	return uuid.NewString()
}
