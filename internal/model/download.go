package model

// FileKind identifies which of the two per-compound files a task fetches.
type FileKind string

const (
	// FileKindSpectrum is the JCAMP-DX infrared spectrum.
	FileKindSpectrum FileKind = "spectrum"

	// FileKindStructure is the MDL molfile structure.
	FileKindStructure FileKind = "structure"
)

// Extension returns the file extension, including the dot, used for kind.
func (k FileKind) Extension() string {
	switch k {
	case FileKindSpectrum:
		return ".jdx"
	case FileKindStructure:
		return ".mol"
	default:
		return ""
	}
}

// DownloadTask is one remote file to fetch to a local path.
type DownloadTask struct {
	// Kind is the file type.
	Kind FileKind `json:"kind"`

	// Compound is the display name the file belongs to.
	Compound string `json:"compound"`

	// RemoteURL is the absolute download URL.
	RemoteURL string `json:"remote_url"`

	// DestinationPath is the requested local path. The file may end up at a
	// disambiguated path instead; see DownloadResult.Path.
	DestinationPath string `json:"destination_path"`
}

// DownloadOutcome is the terminal state of a DownloadTask.
type DownloadOutcome string

const (
	// OutcomeDownloaded means the body was written to disk.
	OutcomeDownloaded DownloadOutcome = "downloaded"

	// OutcomeSkipped means the file was already present and not fetched.
	OutcomeSkipped DownloadOutcome = "skipped"

	// OutcomeFailed means the transfer failed and nothing was kept.
	OutcomeFailed DownloadOutcome = "failed"
)

// DownloadResult reports what happened to a DownloadTask.
type DownloadResult struct {
	Task DownloadTask `json:"task"`

	// Path is where the file lives on disk after the task. For skipped
	// tasks it is the existing file; for failed tasks it is empty.
	Path string `json:"path,omitempty"`

	Outcome DownloadOutcome `json:"outcome"`

	// Bytes is the number of body bytes written.
	Bytes int64 `json:"bytes,omitempty"`

	// Digest is the hex blake2b-256 digest of the written body.
	Digest string `json:"digest,omitempty"`

	// Err is set when Outcome is OutcomeFailed.
	Err error `json:"-"`
}
