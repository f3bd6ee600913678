package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rrrhhh38/phytiumpi-project/internal/fsutil"
)

// Store reads and writes the result artifact at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

func (s *Store) Path() string {
	return s.path
}

// Write replaces the artifact atomically.
func (s *Store) Write(r Result) error {
	if s.path == "" {
		return fmt.Errorf("result path is empty")
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	b = append(b, '\n')
	return fsutil.WriteFileAtomic(s.path, b, 0644)
}

// Read returns the current result, ErrNotFound when no artifact exists, or
// an error wrapping ErrInvalidResult when it does not match the schema.
func (s *Store) Read() (Result, error) {
	b, err := s.ReadRaw()
	if err != nil {
		return Result{}, err
	}
	return Decode(b)
}

// ReadRaw returns the artifact bytes without decoding.
func (s *Store) ReadRaw() ([]byte, error) {
	if s.path == "" {
		return nil, ErrNotFound
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read result: %w", err)
	}
	return b, nil
}

// Exists reports whether a regular artifact file is present.
func (s *Store) Exists() bool {
	if s.path == "" {
		return false
	}
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}
