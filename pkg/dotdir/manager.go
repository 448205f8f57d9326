// Package dotdir manages the .glassbox/ and ~/.glassbox directories that
// hold the persistent config.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the glassbox directory.
	dirName = ".glassbox"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .glassbox/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.glassbox/ dir
//  3. Home ~/.glassbox/ dir
//
// When none applies Target returns an empty string and no error.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating glassbox directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if cwd, err := os.Getwd(); err == nil {
		if local := filepath.Join(cwd, dirName); isDir(local) {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	if dir := filepath.Join(home, dirName); isDir(dir) {
		return dir, nil
	}

	return "", nil
}

// Ensure is Target, but creates ~/.glassbox/ when no directory was found.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating glassbox directory %s: %w", dir, err)
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
