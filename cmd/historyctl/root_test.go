package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stateDir string, args ...string) string {
	t.Helper()
	root := newRootCmd(zerolog.Nop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"--state-dir", stateDir, "--workspace", "ws", "--project", "proj"}, args...))

	root.SetErr(&out)
	err := root.Execute()
	require.NoError(t, err)
	return out.String()
}

func TestCLI_StatsOnEmptyStore(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, dir, "stats")
	require.Contains(t, out, "total=0")
	require.Contains(t, out, "current_gsn=0")
}

func TestCLI_GSNCurrentOnEmptyStore(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, dir, "gsn", "current")
	require.Contains(t, out, "0")
}

func TestCLI_GSNReset(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "gsn", "reset", "10")
	out := runCLI(t, dir, "gsn", "current")
	require.Contains(t, out, "10")
}

func TestCLI_RepairOnEmptyStore(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, dir, "repair")
	require.Contains(t, out, "0 records retained")
}

func TestCLI_AppendWritesARecordAndAdvancesGSN(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, dir, "append", "--content", "hello", "--sender", "tester")
	require.Contains(t, out, "gsn=1")
	require.Contains(t, out, "current_gsn=1")

	tail := runCLI(t, dir, "tail", "-n", "1")
	require.Contains(t, tail, "hello")
	require.Contains(t, tail, "tester")
}

func TestCLI_AppendHonorsExplicitMessageID(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, dir, "append", "--message-id", "fixed-id", "--content", "x")
	require.Contains(t, out, "message_id=fixed-id")
}

func TestCLI_CompactBelowThresholdIsNoop(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "append", "--content", "a")
	out := runCLI(t, dir, "compact")
	require.Contains(t, out, "no rotation needed")
}
