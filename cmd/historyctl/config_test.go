package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileConfig_EmptyPathReturnsZeroValue(t *testing.T) {
	cfg, err := loadFileConfig("")
	require.NoError(t, err)
	require.Equal(t, fileConfig{}, cfg)
}

func TestLoadFileConfig_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "workspace: /home/user/myws\nproject: demo\nstate_dir: /tmp/state\nmax_records: 500\narchive_batch: 250\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/home/user/myws", cfg.Workspace)
	require.Equal(t, "demo", cfg.Project)
	require.Equal(t, "/tmp/state", cfg.StateDir)
	require.Equal(t, 500, cfg.MaxRecords)
	require.Equal(t, 250, cfg.ArchiveBatch)
}

func TestLoadFileConfig_MissingFileReturnsError(t *testing.T) {
	_, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
