// Package store reads corpus collections from disk and writes rewritten collections back
// atomically.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"quiz-canon/internal/corpus"
)

// ErrStorage marks a failure to read or replace a corpus file. It is fatal for a pass.
var ErrStorage = errors.New("storage failure")

// Collection is one corpus file and its decoded records.
type Collection struct {
	Path    string
	Records []corpus.Record
}

// File is a fully encoded collection waiting to be written.
type File struct {
	Path string
	Data []byte
}

// FileStore loads and commits corpus files.
type FileStore struct {
	workers int
}

// NewFileStore creates a store that reads up to workers files concurrently.
func NewFileStore(workers int) *FileStore {
	if workers < 1 {
		workers = 1
	}
	return &FileStore{workers: workers}
}

// Load reads and decodes every path. The result follows the order of paths. Any
// unreadable file or non-array collection fails the whole load.
func (s *FileStore) Load(ctx context.Context, paths []string) ([]Collection, error) {
	out := make([]Collection, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%w: read %s: %v", ErrStorage, path, err)
			}
			records, err := corpus.DecodeCollection(data)
			if err != nil {
				return fmt.Errorf("%w: decode %s: %w", ErrStorage, path, err)
			}
			out[i] = Collection{Path: path, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range out {
		total += len(c.Records)
	}
	log.Info().Int("files", len(out)).Int("records", total).Msg("Loaded corpus")
	return out, nil
}

// Commit replaces every file. New contents and a backup of every existing regular
// target are staged as temporary files next to their targets before anything is
// renamed. If a rename fails, the targets already replaced are restored from their
// backups, so a failed commit leaves every file as it was.
func (s *FileStore) Commit(files []File) error {
	var staged, backups []string
	cleanup := func() {
		for _, tmp := range append(staged, backups...) {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}

	for _, f := range files {
		tmp, err := stage(f)
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)

		backup, err := backupOf(f.Path)
		if err != nil {
			cleanup()
			return err
		}
		backups = append(backups, backup)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], f.Path); err != nil {
			rollback(files[:i], backups[:i])
			staged, backups = staged[i:], backups[i:]
			cleanup()
			return fmt.Errorf("%w: replace %s: %v", ErrStorage, f.Path, err)
		}
	}

	staged = nil
	cleanup()
	log.Info().Int("files", len(files)).Msg("Committed corpus files")
	return nil
}

// backupOf stages a copy of an existing regular file. It returns "" when there is
// nothing to back up.
func backupOf(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: back up %s: %v", ErrStorage, path, err)
	}
	return stage(File{Path: path, Data: data})
}

// rollback puts replaced files back. Targets that did not exist before are removed.
func rollback(files []File, backups []string) {
	for i, f := range files {
		var err error
		if backups[i] == "" {
			err = os.Remove(f.Path)
		} else {
			err = os.Rename(backups[i], f.Path)
		}
		if err != nil {
			log.Error().Err(err).Str("path", f.Path).Msg("Failed to restore file")
			continue
		}
		backups[i] = ""
	}
}

// stage writes f to a synced temporary file in the target directory and returns its path.
func stage(f File) (string, error) {
	dir := filepath.Dir(f.Path)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", ErrStorage, f.Path, err)
	}
	name := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: stage %s: %v", ErrStorage, f.Path, err)
	}

	if _, err := tmp.Write(f.Data); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: stage %s: %v", ErrStorage, f.Path, err)
	}
	return name, nil
}
