package model

import "time"

// PageStats counts what happened to the compounds of one search page.
type PageStats struct {
	// Window is the mass window the page was requested with.
	Window MassWindow `json:"window"`

	// NextStart is the start of the window that follows.
	NextStart float64 `json:"next_start"`

	// Entries is the number of compounds listed on the page.
	Entries int `json:"entries"`

	// Resolved is the number of compounds whose IR page was found.
	Resolved int `json:"resolved"`

	// Skipped is the number of compounds abandoned because of a fetch or
	// parse failure.
	Skipped int `json:"skipped"`

	FilesDownloaded int `json:"files_downloaded"`
	FilesSkipped    int `json:"files_skipped"`
	FilesFailed     int `json:"files_failed"`
}

// Add accumulates a single download result.
func (s *PageStats) Add(r DownloadResult) {
	switch r.Outcome {
	case OutcomeDownloaded:
		s.FilesDownloaded++
	case OutcomeSkipped:
		s.FilesSkipped++
	case OutcomeFailed:
		s.FilesFailed++
	}
}

// RunStats aggregates PageStats over a whole crawl.
type RunStats struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// StartMass is the window start the run began at.
	StartMass float64 `json:"start_mass"`

	// LastMass is the last checkpointed window start.
	LastMass float64 `json:"last_mass"`

	Pages int `json:"pages"`

	// EmptyWindows counts windows the site reported no compounds for.
	EmptyWindows int `json:"empty_windows"`

	Compounds       int `json:"compounds"`
	Resolved        int `json:"resolved"`
	Skipped         int `json:"skipped"`
	FilesDownloaded int `json:"files_downloaded"`
	FilesSkipped    int `json:"files_skipped"`
	FilesFailed     int `json:"files_failed"`

	// StopReason describes why the loop ended.
	StopReason string `json:"stop_reason"`
}

// AddPage folds one page into the run totals.
func (r *RunStats) AddPage(p PageStats) {
	r.Pages++
	r.Compounds += p.Entries
	r.Resolved += p.Resolved
	r.Skipped += p.Skipped
	r.FilesDownloaded += p.FilesDownloaded
	r.FilesSkipped += p.FilesSkipped
	r.FilesFailed += p.FilesFailed
	r.LastMass = p.NextStart
}

// AddEmptyWindow records a window without compounds that was skipped up
// to next.
func (r *RunStats) AddEmptyWindow(next float64) {
	r.EmptyWindows++
	r.LastMass = next
}

// Requests returns the number of search pages requested.
func (r *RunStats) Requests() int {
	return r.Pages + r.EmptyWindows
}

// Duration returns how long the run took.
func (r *RunStats) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
