package download

import (
	"errors"
	"fmt"
)

// ErrEmptyFilename is returned when a name sanitises to nothing.
var ErrEmptyFilename = errors.New("file name is empty after sanitisation")

// DownloadError reports a failed transfer. Any partial file has already
// been removed when it is returned.
type DownloadError struct {
	// URL is the remote file.
	URL string

	// Path is the destination that was being written.
	Path string

	// Err is the underlying I/O or transport error.
	Err error
}

// Error implements error.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s to %s: %v", e.URL, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *DownloadError) Unwrap() error {
	return e.Err
}
