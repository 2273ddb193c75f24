package historylog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func mustOpen(t *testing.T, dir string, opts ...Option) *LogFile {
	t.Helper()
	lf, err := Open(dir, testLogger(), opts...)
	require.NoError(t, err)
	return lf
}

func record(msg string) Record {
	return Record{"msg": msg}
}

func TestOpen_CreatesEmptyActiveLog(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)
	assert0(t, lf.Count() == 0, "expected empty log")

	_, err := os.Stat(filepath.Join(dir, activeLogName))
	require.NoError(t, err)
}

func TestAppend_ReturnsIncreasingIndices(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)

	for i, msg := range []string{"a", "b", "c"} {
		line, err := EncodeLine(record(msg))
		require.NoError(t, err)
		idx, count, err := lf.Append(line)
		require.NoError(t, err)
		require.Equal(t, i, idx)
		require.Equal(t, i+1, count)
	}
	require.Equal(t, 3, lf.Count())
}

func TestGetLatest_MostRecentFirst(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)
	for _, msg := range []string{"a", "b", "c"} {
		line, _ := EncodeLine(record(msg))
		_, _, err := lf.Append(line)
		require.NoError(t, err)
	}

	got, err := lf.GetLatest(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0]["msg"])
	require.Equal(t, "b", got[1]["msg"])
}

func TestGetRange_OutOfRangeReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)
	got, err := lf.GetRange(5, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRotation_AtThreshold(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir, WithMaxRecords(10), WithArchiveBatch(5))

	for i := 0; i < 11; i++ {
		line, _ := EncodeLine(Record{"i": float64(i)})
		_, _, err := lf.Append(line)
		require.NoError(t, err)
	}

	archives, err := List(dir)
	require.NoError(t, err)
	require.Len(t, archives, 1)

	archived, err := ReadArchive(archives[0].Path)
	require.NoError(t, err)
	require.Len(t, archived, 5)
	for i, rec := range archived {
		require.Equal(t, float64(i), rec["i"])
	}

	require.Equal(t, 6, lf.Count())
	latest, err := lf.GetLatest(3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	require.Equal(t, float64(10), latest[0]["i"])
	require.Equal(t, float64(9), latest[1]["i"])
	require.Equal(t, float64(8), latest[2]["i"])
}

func TestRepair_DropsTruncatedTrailingLine(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)
	line, _ := EncodeLine(record("good"))
	_, _, err := lf.Append(line)
	require.NoError(t, err)

	f, err := os.OpenFile(lf.Path(), os.O_WRONLY|os.O_APPEND, filePerm)
	require.NoError(t, err)
	_, err = f.WriteString(`{"msg":"bad`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lf2 := mustOpen(t, dir)
	require.Equal(t, 1, lf2.Count())
	recs, err := lf2.GetLatest(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "good", recs[0]["msg"])
}

func TestRepair_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	lf := mustOpen(t, dir)
	line, _ := EncodeLine(record("good"))
	_, _, err := lf.Append(line)
	require.NoError(t, err)

	f, err := os.OpenFile(lf.Path(), os.O_WRONLY|os.O_APPEND, filePerm)
	require.NoError(t, err)
	_, _ = f.WriteString("not json at all\n")
	require.NoError(t, f.Close())

	require.NoError(t, lf.InvalidateCaches())
	first, err := os.ReadFile(lf.Path())
	require.NoError(t, err)

	require.NoError(t, lf.InvalidateCaches())
	second, err := os.ReadFile(lf.Path())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func assert0(t *testing.T, ok bool, msg string) {
	t.Helper()
	if !ok {
		t.Fatal(msg)
	}
}
