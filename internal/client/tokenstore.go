// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/movex/movex/internal/xdg"
)

// TokenStore persists the session token between invocations.
type TokenStore interface {
	// Load returns the stored token, or "" when there is none.
	Load() (string, error)
	Save(token string) error
	// Clear removes the token. Clearing an empty store is not an error.
	Clear() error
}

// sessionFile is the on-disk shape of the token store.
type sessionFile struct {
	Token string `json:"token"`
}

// FileTokenStore keeps the token in a JSON file readable only by the
// current user.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore returns a store backed by path. An empty path means
// the default session file under the XDG config directory.
func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		path = xdg.SessionFile()
	}
	return &FileTokenStore{path: path}
}

// Path returns the backing file.
func (s *FileTokenStore) Path() string { return s.path }

// Load implements TokenStore.
func (s *FileTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", oops.Code("SESSION_READ_FAILED").With("path", s.path).Wrap(err)
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", oops.Code("SESSION_CORRUPT").With("path", s.path).Wrap(err)
	}
	return f.Token, nil
}

// Save implements TokenStore. The file is replaced atomically.
func (s *FileTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}
	data, err := json.Marshal(sessionFile{Token: token})
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code("SESSION_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}

// Clear implements TokenStore.
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SESSION_CLEAR_FAILED").With("path", s.path).Wrap(err)
	}
	return nil
}
