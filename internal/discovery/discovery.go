// Package discovery finds candidate source files under a directory tree.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/logging"
)

// Discover returns the sorted absolute paths of files under root whose
// extension (case-insensitive) is in exts. Unreadable subdirectories are
// logged and skipped; only an unreadable root is an error. A symlinked root
// is followed, and results stay under root as given.
func Discover(root string, exts []string) ([]string, error) {
	logger := logging.GetLogger("discovery")

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDiscovery, "failed to resolve source directory")
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = true
	}

	// WalkDir does not follow a symlinked root
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}

	var files []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return errors.Wrapf(err, errors.ErrDiscovery, "cannot read source directory %s", root)
			}

			logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if !isRegular(path, d) {
			return nil
		}

		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrDiscovery, "cannot resolve %s", path)
		}

		files = append(files, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	logger.Debug().Int("files", len(files)).Str("root", root).Msg("Discovery complete")
	return files, nil
}

// isRegular accepts regular files and symlinks that resolve to one
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}

	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
