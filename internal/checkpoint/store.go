package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrCorrupt is returned by Load, alongside ok=false, when the file exists
// but does not hold a finite number.
var ErrCorrupt = errors.New("checkpoint file is corrupt")

// Store reads and writes the checkpoint file at one path.
// Only one goroutine may call Save.
type Store struct {
	path string
}

// NewStore returns a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved mass. A missing file yields ok=false and no
// error. A corrupt file yields ok=false and an error wrapping ErrCorrupt,
// which callers log and otherwise ignore. Other read failures are returned
// as they are.
func (s *Store) Load() (mass float64, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	text := strings.TrimSpace(string(data))
	m, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false, fmt.Errorf("%w: %q", ErrCorrupt, text)
	}
	return m, true, nil
}

// Save atomically replaces the checkpoint with mass.
func (s *Store) Save(mass float64) error {
	if math.IsNaN(mass) || math.IsInf(mass, 0) {
		return fmt.Errorf("refusing to save non-finite mass %v", mass)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.FormatFloat(mass, 'f', -1, 64) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}
