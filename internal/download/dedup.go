package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dedup returns path if nothing exists there, otherwise the first of
// "stem (1).ext", "stem (2).ext", ... that does not exist.
// Calling it again without touching the directory returns the same path.
func Dedup(path string) (string, error) {
	return dedupWith(path, exists)
}

// dedupWith is Dedup with a pluggable "is this name taken" check.
func dedupWith(path string, taken func(string) (bool, error)) (string, error) {
	used, err := taken(path)
	if err != nil {
		return "", err
	}
	if !used {
		return path, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
}

// exists reports whether anything is present at path.
func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}
