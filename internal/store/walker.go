package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedExtensions lists file types treated as corpus collections.
var SupportedExtensions = map[string]bool{
	".json": true,
}

// Walker discovers corpus files under a path.
type Walker struct {
	// SkipDirs names directories that are never descended into.
	SkipDirs map[string]bool
}

// NewWalker creates a Walker that ignores VCS and dependency directories.
func NewWalker() *Walker {
	return &Walker{
		SkipDirs: map[string]bool{
			".git":         true,
			"node_modules": true,
		},
	}
}

// Walk returns every corpus file at root. A file path is returned as-is when it has a
// supported extension; a directory is walked recursively. Results are sorted.
func (w *Walker) Walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root path: %v", ErrStorage, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat root: %v", ErrStorage, err)
	}
	if !info.IsDir() {
		if !supported(root) {
			return nil, fmt.Errorf("%w: unsupported file type: %s", ErrStorage, root)
		}
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			if path != root && w.SkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk directory: %v", ErrStorage, err)
	}

	slices.Sort(paths)
	log.Info().Int("count", len(paths)).Str("root", root).Msg("Discovered corpus files")
	return paths, nil
}

func supported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}
