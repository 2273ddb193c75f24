package history

import (
	"github.com/rs/zerolog"

	"github.com/brennhill/gasoline-history/internal/historylog"
)

// defaultAfterGSNArchiveScan is the number of newest archives after_gsn
// consults once the active log alone can't satisfy the request — the
// source system's "last 3 archives" cap, kept here as the forward-scan
// default (see DESIGN.md Open Question decisions).
const defaultAfterGSNArchiveScan = 3

// Options configures a HistoryFacade.
type Options struct {
	MaxRecords         int
	ArchiveBatch       int
	StateDir           string
	AfterGSNArchiveCap int // 0 disables the cap (scans all archives)
	Logger             zerolog.Logger
}

func defaultOptions() Options {
	return Options{
		MaxRecords:         historylog.DefaultMaxRecords,
		ArchiveBatch:       historylog.DefaultArchiveBatch,
		AfterGSNArchiveCap: defaultAfterGSNArchiveScan,
		Logger:             zerolog.Nop(),
	}
}

// Option configures a HistoryFacade at construction time.
type Option func(*Options)

// WithMaxRecords overrides the active-log rotation threshold.
func WithMaxRecords(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxRecords = n
		}
	}
}

// WithArchiveBatch overrides how many records rotate out per archive pass.
func WithArchiveBatch(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ArchiveBatch = n
		}
	}
}

// WithStateDir overrides the runtime state root that project archive
// directories are resolved under (bypasses internal/state.RootDir()).
func WithStateDir(dir string) Option {
	return func(o *Options) { o.StateDir = dir }
}

// WithArchiveScanCap overrides how many newest archives after_gsn
// consults once the active log can't satisfy a request on its own.
// 0 means "scan all archives" (before_gsn always behaves this way).
func WithArchiveScanCap(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.AfterGSNArchiveCap = n
		}
	}
}

// WithLogger overrides the structured logging sink.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
