package historylog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLine_RoundTrips(t *testing.T) {
	record := Record{
		"message_id": "abc-123",
		"sender":     "agent",
		"content":    "héllo\nworld\t\"quoted\"",
		"count":      float64(3),
		"nested":     map[string]any{"a": []any{float64(1), float64(2)}},
	}

	line, err := EncodeLine(record)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(string(line), "\n"))
	assert.False(t, strings.Contains(string(line), "\n\n"))

	decoded, err := decodeLine([]byte(strings.TrimSuffix(string(line), "\n")))
	require.NoError(t, err)
	assert.Equal(t, record["message_id"], decoded["message_id"])
	assert.Equal(t, record["content"], decoded["content"])
}

func TestEncodeLine_PreservesNonASCII(t *testing.T) {
	record := Record{"text": "日本語 emoji 🎉"}
	line, err := EncodeLine(record)
	require.NoError(t, err)
	assert.Contains(t, string(line), "日本語")
	assert.Contains(t, string(line), "🎉")
}

func TestEncodeLine_EscapesControlCharacters(t *testing.T) {
	record := Record{"text": "line1\nline2\ttab"}
	line, err := EncodeLine(record)
	require.NoError(t, err)
	body := strings.TrimSuffix(string(line), "\n")
	assert.False(t, strings.Contains(body, "\n"), "embedded newline must be escaped, not literal")
	assert.Contains(t, body, `\n`)
	assert.Contains(t, body, `\t`)
}

func TestDecodeLine_RecoversExtraData(t *testing.T) {
	// Simulates a torn/garbage suffix after a complete JSON object —
	// the "Extra data" recovery path.
	line := []byte(`{"a":1}garbage-suffix`)
	rec, err := decodeLine(line)
	require.NoError(t, err)
	assert.Equal(t, float64(1), rec["a"])
}

func TestDecodeLine_RejectsNonObjectTopLevel(t *testing.T) {
	_, err := decodeLine([]byte(`[1,2,3]`))
	require.Error(t, err)
}

func TestDecodeLine_RejectsGarbage(t *testing.T) {
	_, err := decodeLine([]byte(`{"a":`))
	require.Error(t, err)
}

func TestIsSkippableLine(t *testing.T) {
	assert.True(t, isSkippableLine([]byte("\n")))
	assert.True(t, isSkippableLine([]byte("")))
	assert.True(t, isSkippableLine([]byte("�\n")))
	assert.False(t, isSkippableLine([]byte(`{"a":1}`+"\n")))
}
