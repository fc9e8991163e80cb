// Package util - Directory listing helpers shared by the pipeline stages.
package util

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Matcher decides whether a file name is kept by a listing.
type Matcher func(name string) bool

// ListFiles returns the full paths of the regular files directly inside dir
// that match keep, in directory (lexical) order. Sub-directories are not
// descended into.
//
// Arguments:
//   - dir: Directory to list.
//   - keep: Predicate applied to each base name.
//
// Returns:
//   - []string: Matched paths.
//   - error: Error if the directory cannot be read.
func ListFiles(dir string, keep Matcher) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if keep != nil && !keep(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// SuffixFold matches names ending in any of the suffixes, ignoring case.
func SuffixFold(suffixes ...string) Matcher {
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, s := range suffixes {
			if strings.HasSuffix(lower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}
}

// Suffix matches names ending in any of the suffixes exactly.
func Suffix(suffixes ...string) Matcher {
	return func(name string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(name, s) {
				return true
			}
		}
		return false
	}
}

// ExtensionFold matches names whose extension, lowercased, is in exts.
// Extensions are given with their leading dot.
func ExtensionFold(exts ...string) Matcher {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return func(name string) bool {
		return set[strings.ToLower(filepath.Ext(name))]
	}
}

// EnsureDir creates dir and its parents if they do not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
