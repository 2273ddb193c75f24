// Package historyerr defines the typed error kinds surfaced by the
// history store, per the core's error-handling design: IoError and
// SerialisationError and SchemaError are surfaced to callers,
// CorruptLine is absorbed internally (logged and skipped).
package historyerr

import "errors"

// Sentinel kinds. Callers match with errors.Is; wrapped errors carry
// additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrIO marks a failure of an underlying filesystem call (open,
	// write, fsync, rename, lock). Never retried internally.
	ErrIO = errors.New("history: io error")

	// ErrSerialisation marks a record that cannot be encoded into a
	// single round-trippable JSON line.
	ErrSerialisation = errors.New("history: serialisation error")

	// ErrSchema marks a record whose top-level JSON value is not an
	// object.
	ErrSchema = errors.New("history: schema error")

	// ErrCorruptLine marks a line that failed to parse during a read.
	// It is never returned to a HistoryFacade caller; it exists so
	// internal callers can distinguish "skip and continue" from a
	// hard failure.
	ErrCorruptLine = errors.New("history: corrupt line")
)

// IO wraps err as an ErrIO, unless err is already nil.
func IO(context string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: ErrIO, context: context, err: err}
}

// Serialisation wraps err as an ErrSerialisation.
func Serialisation(context string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: ErrSerialisation, context: context, err: err}
}

// Schema returns an ErrSchema with the given context.
func Schema(context string) error {
	return &wrapped{kind: ErrSchema, context: context}
}

type wrapped struct {
	kind    error
	context string
	err     error
}

func (w *wrapped) Error() string {
	if w.err == nil {
		return w.context
	}
	return w.context + ": " + w.err.Error()
}

func (w *wrapped) Unwrap() error {
	if w.err != nil {
		return errorsJoin(w.kind, w.err)
	}
	return w.kind
}

// errorsJoin is a tiny local shim so Unwrap can expose both the typed
// kind and the underlying cause to errors.Is / errors.As chains
// without requiring Go's multi-error Unwrap([]error) support at call
// sites that only expect a single Unwrap() error.
func errorsJoin(kind, cause error) error {
	return &joined{kind: kind, cause: cause}
}

type joined struct {
	kind  error
	cause error
}

func (j *joined) Error() string { return j.cause.Error() }
func (j *joined) Is(target error) bool {
	return target == j.kind || errors.Is(j.cause, target)
}
func (j *joined) Unwrap() error { return j.cause }
