package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional on-disk config loaded via --config. Flags
// passed on the command line always take precedence over values loaded
// here; fileConfig only fills in defaults the user didn't override.
type fileConfig struct {
	Workspace    string `yaml:"workspace"`
	Project      string `yaml:"project"`
	StateDir     string `yaml:"state_dir"`
	MaxRecords   int    `yaml:"max_records"`
	ArchiveBatch int    `yaml:"archive_batch"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from an explicit --config flag
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
