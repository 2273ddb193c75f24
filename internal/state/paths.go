// Package state centralizes filesystem locations for history runtime artifacts.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirEnv overrides the default runtime state root.
	StateDirEnv = "GASOLINE_HISTORY_STATE_DIR"

	xdgStateHomeEnv = "XDG_STATE_HOME"
	appName         = "gasoline-history"
)

// RootDir returns the runtime state root for the history store.
// Resolution order:
//  1. GASOLINE_HISTORY_STATE_DIR (if set)
//  2. XDG_STATE_HOME/gasoline-history (if XDG_STATE_HOME is set)
//  3. os.UserConfigDir()/gasoline-history (cross-platform fallback)
func RootDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(StateDirEnv)); override != "" {
		return normalizePath(override)
	}

	if xdg := strings.TrimSpace(os.Getenv(xdgStateHomeEnv)); xdg != "" {
		root, err := normalizePath(xdg)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, appName), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	root, err := normalizePath(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appName), nil
}

// ProjectDir returns the archive directory for a (workspace, project) pair,
// rooted under RootDir unless an explicit root override is supplied.
//
// Layout: <root>/projects/<workspace-hash-free-name>/<project>/agent/history
// The workspace path is sanitized into a filesystem-safe directory name so
// that arbitrary absolute paths can be used as workspace identifiers.
func ProjectDir(root, workspace, project string) (string, error) {
	if root == "" {
		r, err := RootDir()
		if err != nil {
			return "", err
		}
		root = r
	}
	if workspace == "" {
		return "", errors.New("workspace must not be empty")
	}
	if project == "" {
		return "", errors.New("project must not be empty")
	}
	return filepath.Join(root, "projects", sanitizeComponent(workspace), project, "agent", "history"), nil
}

func normalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	return filepath.Clean(absPath), nil
}

// sanitizeComponent turns an arbitrary workspace path into a single
// filesystem-safe directory component, replacing path separators and
// other characters that would otherwise introduce nested directories
// or collide across platforms.
func sanitizeComponent(s string) string {
	abs, err := filepath.Abs(s)
	if err == nil {
		s = abs
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "workspace"
	}
	return out
}
