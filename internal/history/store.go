// Package history persists the id of the last finished response so a later
// invocation can continue the same conversation.
//
// The file is rewritten without locking; concurrent invocations race and the
// last writer wins.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the history file name inside the application directory.
const FileName = ".prev"

// Store manages the previous response id file.
type Store struct {
	// Path is the history file location.
	Path string
}

// NewStore returns a Store for the history file inside appDir.
func NewStore(appDir string) *Store {
	return &Store{Path: filepath.Join(appDir, FileName)}
}

// Save overwrites the stored id, creating parent directories as needed.
func (s *Store) Save(responseID string) error {
	if responseID == "" {
		return errors.New("response id required")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(responseID), 0o600); err != nil {
		return fmt.Errorf("write previous response id: %w", err)
	}
	return nil
}

// Load returns the stored id, or "" when there is no previous response.
func (s *Store) Load() (string, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read previous response id: %w", err)
	}
	return string(raw), nil
}

// Clear removes the stored id. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous response id: %w", err)
	}
	return nil
}
