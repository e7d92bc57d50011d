package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/irscrape/internal/download"
)

// LogFileName returns the log file name for a run started at t, in the
// form "M-D-YY--H-M-S.log" without zero padding.
func LogFileName(t time.Time) string {
	return fmt.Sprintf("%d-%d-%02d--%d-%d-%d.log",
		int(t.Month()), t.Day(), t.Year()%100,
		t.Hour(), t.Minute(), t.Second())
}

// OpenLogFile creates a new log file in dir for a run started at now.
// The directory is created if needed. When a file with the same name
// already exists (two runs in the same second), a " (n)" suffix is added
// so earlier logs are never truncated.
func OpenLogFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path, err := download.Dedup(filepath.Join(dir, LogFileName(now)))
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600) //nolint:gosec // path built from dir and a fixed pattern
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return f, nil
}
