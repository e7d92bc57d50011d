package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/irscrape/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints the recent sections even when they are empty.
	showEmpty bool

	// verbose adds paths and digests to the download list.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the ledger report.
func (w *SimpleWriter) Write(r *Report) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "IRSCRAPE LEDGER REPORT")
	fmt.Fprintf(&sb, "Ledger:         %s\n", r.LedgerPath)
	fmt.Fprintf(&sb, "Generated:      %s\n\n", formatTime(r.GeneratedAt))

	w.writeSummary(&sb, r.Summary)
	w.writePages(&sb, r.Pages)
	w.writeDownloads(&sb, r.Downloads)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteRun outputs the statistics of one crawl.
func (w *SimpleWriter) WriteRun(stats *model.RunStats) (int, error) {
	var sb strings.Builder

	w.writeSection(&sb, "CRAWL SUMMARY")
	fmt.Fprintf(&sb, "  Stopped:        %s\n", stats.StopReason)
	fmt.Fprintf(&sb, "  Mass range:     %s -> %s\n", formatMass(stats.StartMass), formatMass(stats.LastMass))
	fmt.Fprintf(&sb, "  Pages:          %d (%d empty windows)\n", stats.Pages, stats.EmptyWindows)
	fmt.Fprintf(&sb, "  Compounds:      %d (%d resolved, %d skipped)\n", stats.Compounds, stats.Resolved, stats.Skipped)
	fmt.Fprintf(&sb, "  Files:          %d downloaded, %d skipped, %d failed\n",
		stats.FilesDownloaded, stats.FilesSkipped, stats.FilesFailed)
	if d := stats.Duration(); d > 0 {
		fmt.Fprintf(&sb, "  Duration:       %s\n", d.Round(time.Millisecond))
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%*s\n", (ruleWidth+len(title))/2, title)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeSummary writes the ledger totals.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.LedgerSummary) {
	w.writeSection(sb, "SUMMARY")

	if s == nil {
		sb.WriteString("  Ledger is empty\n\n")
		return
	}

	fmt.Fprintf(sb, "  Files:          %s (%s)\n", humanize.Comma(int64(s.Downloads)), humanize.IBytes(uint64(max(s.Bytes, 0))))
	for _, k := range kinds {
		fmt.Fprintf(sb, "    %-12s  %s\n", string(k)+":", humanize.Comma(int64(s.ByKind[k])))
	}
	fmt.Fprintf(sb, "  Compounds:      %s\n", humanize.Comma(int64(s.Compounds)))
	fmt.Fprintf(sb, "  Search pages:   %s\n", humanize.Comma(int64(s.Pages)))
	fmt.Fprintf(sb, "  Highest mass:   %s\n", formatMass(s.HighestMass))
	fmt.Fprintf(sb, "  First download: %s\n", formatTime(s.FirstDownload))
	fmt.Fprintf(sb, "  Last download:  %s\n", formatTime(s.LastDownload))
	sb.WriteString("\n")
}

// writePages writes the recent search pages.
func (w *SimpleWriter) writePages(sb *strings.Builder, pages []model.PageRecord) {
	if len(pages) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "RECENT SEARCH PAGES")

	if len(pages) == 0 {
		sb.WriteString("  No pages recorded\n\n")
		return
	}
	for _, p := range pages {
		fmt.Fprintf(sb, "  [%s - %s] next %s: %d listed, %d resolved, %d skipped, %d files\n",
			formatMass(p.WindowStart),
			formatMass(p.WindowStart+p.WindowWidth),
			formatMass(p.NextStart),
			p.Entries, p.Resolved, p.Skipped, p.Downloaded,
		)
	}
	sb.WriteString("\n")
}

// writeDownloads writes the recent files.
func (w *SimpleWriter) writeDownloads(sb *strings.Builder, downloads []model.DownloadRecord) {
	if len(downloads) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "RECENT DOWNLOADS")

	if len(downloads) == 0 {
		sb.WriteString("  No files recorded\n\n")
		return
	}
	for _, d := range downloads {
		fmt.Fprintf(sb, "  [+] %s (%s, %s)\n", filepath.Base(d.Path), d.Kind, humanize.IBytes(uint64(max(d.Bytes, 0))))
		if w.verbose {
			fmt.Fprintf(sb, "      Path:   %s\n", d.Path)
			fmt.Fprintf(sb, "      URL:    %s\n", d.RemoteURL)
			fmt.Fprintf(sb, "      BLAKE2: %s\n", d.Digest)
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by irscrape\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
