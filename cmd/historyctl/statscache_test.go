package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, _, _, ok, err := readStatsCache(dir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, refreshStatsCache(dir, 42, 7))

	total, current, refreshedAt, ok, err := readStatsCache(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 42, total)
	require.Equal(t, uint64(7), current)
	require.NotEmpty(t, refreshedAt)
}

func TestStatsCache_RefreshOverwritesPreviousValue(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, refreshStatsCache(dir, 1, 1))
	require.NoError(t, refreshStatsCache(dir, 99, 50))

	total, current, _, ok, err := readStatsCache(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 99, total)
	require.Equal(t, uint64(50), current)
}
