// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package xdg resolves MoveX paths under the XDG base directories.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "movex"

// ConfigDir returns $XDG_CONFIG_HOME/movex, falling back to ~/.config/movex.
func ConfigDir() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), appName)
}

// StateDir returns $XDG_STATE_HOME/movex, falling back to ~/.local/state/movex.
func StateDir() string {
	return filepath.Join(baseDir("XDG_STATE_HOME", filepath.Join(".local", "state")), appName)
}

// ConfigFile is the default server and CLI configuration file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// SessionFile is where the CLI keeps the bearer token between runs.
func SessionFile() string {
	return filepath.Join(ConfigDir(), "session.json")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_DIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func baseDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return base
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, fallback)
}
