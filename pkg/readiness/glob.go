package readiness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobSource resolves when any regular file under Root matches Pattern.
// The most recently modified match wins.
//
// It serves producers that only drop capture files (food_*.jpg) without
// writing a status artifact.
type GlobSource struct {
	name    string
	root    string
	pattern string
	fsys    fs.FS
}

// NewGlobSource returns a source for the given doublestar pattern, relative
// to root.
func NewGlobSource(name, root, pattern string) (*GlobSource, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("glob pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	if name == "" {
		name = SignalImage
	}
	return &GlobSource{
		name:    name,
		root:    root,
		pattern: pattern,
		fsys:    os.DirFS(root),
	}, nil
}

func (s *GlobSource) Name() string { return s.name }

func (s *GlobSource) TryRead() (Value, error) {
	matches, err := doublestar.Glob(s.fsys, s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return Value{}, fmt.Errorf("glob %s: %w", s.pattern, err)
	}

	var (
		best     string
		bestInfo fs.FileInfo
	)
	for _, m := range matches {
		info, err := fs.Stat(s.fsys, m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if bestInfo == nil || info.ModTime().After(bestInfo.ModTime()) {
			best, bestInfo = m, info
		}
	}
	if bestInfo == nil {
		return Value{}, ErrNotReady
	}

	return Value{
		Name:      s.name,
		Path:      filepath.Join(s.root, filepath.FromSlash(best)),
		Timestamp: bestInfo.ModTime().UTC(),
	}, nil
}
