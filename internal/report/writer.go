package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/irscrape/internal/model"
)

// DefaultRecent is how many pages and downloads a report lists.
const DefaultRecent = 10

// Report is a snapshot of the ledger.
type Report struct {
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// LedgerPath is the database the snapshot was read from.
	LedgerPath string `json:"ledger_path"`

	Summary *model.LedgerSummary `json:"summary"`

	// Pages are the most recent completed search pages, newest first.
	Pages []model.PageRecord `json:"recent_pages"`

	// Downloads are the most recent files, newest first.
	Downloads []model.DownloadRecord `json:"recent_downloads"`
}

// Source reads ledger contents. database.CrawlDB implements it.
type Source interface {
	Path() string
	Summary(ctx context.Context) (*model.LedgerSummary, error)
	RecentPages(ctx context.Context, limit int) ([]model.PageRecord, error)
	RecentDownloads(ctx context.Context, limit int) ([]model.DownloadRecord, error)
}

// Build collects a Report from src, listing up to recent pages and
// downloads.
func Build(ctx context.Context, src Source, recent int) (*Report, error) {
	if recent <= 0 {
		recent = DefaultRecent
	}

	summary, err := src.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ledger: %w", err)
	}
	pages, err := src.RecentPages(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent pages: %w", err)
	}
	downloads, err := src.RecentDownloads(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent downloads: %w", err)
	}

	return &Report{
		GeneratedAt: time.Now(),
		LedgerPath:  src.Path(),
		Summary:     summary,
		Pages:       pages,
		Downloads:   downloads,
	}, nil
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a ledger report.
	Write(r *Report) (int, error)

	// WriteRun outputs the statistics of one crawl.
	WriteRun(stats *model.RunStats) (int, error)
}

// MultiWriter writes to multiple Writers in turn.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(r *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRun outputs the run statistics to all configured Writers.
func (m *MultiWriter) WriteRun(stats *model.RunStats) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRun(stats)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// New returns the writer for format ("text", "markdown" or "json").
func New(format string, output io.Writer) (Writer, error) {
	switch format {
	case "", "text":
		return NewSimpleWriter(output), nil
	case "markdown", "md":
		return NewMarkdownWriter(output), nil
	case "json":
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// kinds lists file kinds in display order.
var kinds = []model.FileKind{model.FileKindSpectrum, model.FileKindStructure}

// formatMass prints a mass with two decimals, as the site displays it.
func formatMass(m float64) string {
	return fmt.Sprintf("%.2f", m)
}

// formatTime prints t or "-" when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
