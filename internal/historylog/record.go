package historylog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brennhill/gasoline-history/internal/historyerr"
)

// Record is the caller-supplied, opaque JSON object. The core never
// inspects fields beyond the top-level "object-ness" check and the
// metadata.gsn it stamps in at the facade layer.
type Record = map[string]any

// EncodeLine serialises a record to a single terminated JSON line: no
// extra whitespace, non-ASCII preserved, control characters escaped by
// JSON string rules. It round-trips the output through a parse to
// confirm the encoding is faithful; if encoding fails or the output
// does not round-trip, it retries with a permissive encoder, and only
// fails if that also cannot produce a parseable line semantically
// equal to the sanitized record.
func EncodeLine(record Record) ([]byte, error) {
	line, err := encodeCompact(record)
	if err == nil && roundTrips(line, record) {
		return append(line, '\n'), nil
	}

	permissive, err := encodePermissive(record)
	if err != nil {
		return nil, historyerr.Serialisation("permissive-encode record", err)
	}
	if !roundTrips(permissive, sanitizeValue(record).(Record)) {
		return nil, historyerr.Serialisation("record did not survive round-trip after permissive encoding", nil)
	}
	return append(permissive, '\n'), nil
}

// encodeCompact is the primary encoder: compact JSON, HTML-escaping
// disabled so '<', '>' and '&' are written literally (only the JSON
// string-escaping rules for control characters apply).
func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; trim it since the
	// caller owns line termination.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// encodePermissive is the fallback encoder used when the compact
// encoder fails or its output does not survive a round-trip (e.g. the
// record contains a non-finite float, which encoding/json refuses to
// marshal). It sanitizes such values into their string representation
// before re-encoding.
func encodePermissive(record Record) ([]byte, error) {
	sanitized := sanitizeValue(record)
	return encodeCompact(sanitized)
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	case float64:
		if isNonFinite(t) {
			return fmt.Sprintf("%v", t)
		}
		return t
	case string:
		if !utf8.ValidString(t) {
			return strings.ToValidUTF8(t, "�")
		}
		return t
	default:
		return v
	}
}

func isNonFinite(f float64) bool {
	return f != f || f > maxFloat || f < -maxFloat
}

const maxFloat = 1.7976931348623157e+308

// roundTrips parses line and compares the result against the original
// record for semantic equality: both sides are normalised by an
// encode/decode pass so map key order and numeric representation
// differences don't cause false mismatches.
func roundTrips(line []byte, record Record) bool {
	var decoded any
	if err := json.Unmarshal(line, &decoded); err != nil {
		return false
	}
	want, err := encodeCompact(normalise(record))
	if err != nil {
		return false
	}
	got, err := encodeCompact(decoded)
	if err != nil {
		return false
	}
	return bytes.Equal(want, got)
}

// normalise runs a value through an encode/decode cycle so it can be
// compared against something already decoded from JSON (e.g. turns
// Go ints in a hand-built Record into the float64s json.Unmarshal
// would have produced).
func normalise(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// decodeLine parses a single log line into a Record, matching the
// recovery rule from the source system: a line that parses cleanly is
// used as-is; a line with trailing "extra data" after its first
// balanced top-level value recovers that leading value; any other
// parse failure is reported as a corrupt line.
//
// json.Unmarshal requires the entire input to be consumed (aside from
// trailing whitespace), so a strict failure there that nonetheless
// decodes via json.Decoder.Decode (which stops after the first
// complete value) is exactly the "extra data" case.
func decodeLine(line []byte) (Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, historyerr.ErrCorruptLine
	}

	var strict any
	if err := json.Unmarshal(trimmed, &strict); err == nil {
		return asRecord(strict)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var recovered any
	if err := dec.Decode(&recovered); err != nil {
		return nil, fmt.Errorf("%w: %v", historyerr.ErrCorruptLine, err)
	}
	return asRecord(recovered)
}

func asRecord(v any) (Record, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not a JSON object", historyerr.ErrCorruptLine)
	}
	return obj, nil
}

// isSkippableLine reports whether a decoded line's raw bytes should be
// silently skipped on read: empty, or containing the Unicode
// replacement character (a sign the bytes were not valid UTF-8 when
// originally decoded).
func isSkippableLine(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	return bytes.ContainsRune(trimmed, utf8.RuneError)
}
