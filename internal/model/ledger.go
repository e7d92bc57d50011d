package model

import "time"

// DownloadRecord is the ledger entry for one file fetched to disk.
// The remote URL identifies the file; Path is where it was written.
type DownloadRecord struct {
	ID           int64     `json:"id"`
	RemoteURL    string    `json:"remote_url"`
	Kind         FileKind  `json:"kind"`
	Compound     string    `json:"compound"`
	Path         string    `json:"path"`
	Bytes        int64     `json:"bytes"`
	Digest       string    `json:"digest"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// PageRecord is the ledger entry for one completed search page.
type PageRecord struct {
	ID          int64     `json:"id"`
	WindowStart float64   `json:"window_start"`
	WindowWidth float64   `json:"window_width"`
	NextStart   float64   `json:"next_start"`
	Entries     int       `json:"entries"`
	Resolved    int       `json:"resolved"`
	Skipped     int       `json:"skipped"`
	Downloaded  int       `json:"downloaded"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NewPageRecord builds the ledger entry for a finished page.
func NewPageRecord(s PageStats) PageRecord {
	return PageRecord{
		WindowStart: s.Window.Start,
		WindowWidth: s.Window.Width,
		NextStart:   s.NextStart,
		Entries:     s.Entries,
		Resolved:    s.Resolved,
		Skipped:     s.Skipped,
		Downloaded:  s.FilesDownloaded,
	}
}

// LedgerSummary aggregates the whole ledger for reporting.
type LedgerSummary struct {
	// Downloads is the number of files recorded.
	Downloads int `json:"downloads"`

	// Compounds is the number of distinct compound names with a file.
	Compounds int `json:"compounds"`

	// Bytes is the total size of all recorded files.
	Bytes int64 `json:"bytes"`

	// ByKind counts files per kind.
	ByKind map[FileKind]int `json:"by_kind"`

	// Pages is the number of completed search pages.
	Pages int `json:"pages"`

	// HighestMass is the largest next-window start recorded, or zero.
	HighestMass float64 `json:"highest_mass"`

	FirstDownload time.Time `json:"first_download,omitzero"`
	LastDownload  time.Time `json:"last_download,omitzero"`
}
