package report

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/irscrape/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the ledger report in Markdown format.
func (w *MarkdownWriter) Write(r *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("irscrape Ledger Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Ledger", "`" + r.LedgerPath + "`"},
			{"Generated", formatTime(r.GeneratedAt)},
		},
	})
	md.PlainText("")

	w.writeSummary(md, r.Summary)
	w.writePages(md, r.Pages)
	w.writeDownloads(md, r.Downloads)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteRun outputs the statistics of one crawl in Markdown format.
func (w *MarkdownWriter) WriteRun(stats *model.RunStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Stopped", stats.StopReason},
			{"Mass range", formatMass(stats.StartMass) + " → " + formatMass(stats.LastMass)},
			{"Pages", strconv.Itoa(stats.Pages)},
			{"Empty windows", strconv.Itoa(stats.EmptyWindows)},
			{"Compounds", strconv.Itoa(stats.Compounds)},
			{"Resolved", strconv.Itoa(stats.Resolved)},
			{"Skipped", strconv.Itoa(stats.Skipped)},
			{"Files downloaded", strconv.Itoa(stats.FilesDownloaded)},
			{"Files skipped", strconv.Itoa(stats.FilesSkipped)},
			{"Files failed", strconv.Itoa(stats.FilesFailed)},
		},
	})
	md.PlainText("")

	if stats.FilesFailed > 0 {
		md.Warningf("%d file(s) could not be downloaded. Rerun the crawl from the same start mass to retry them.", stats.FilesFailed)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// writeSummary writes the totals and the files-per-kind chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.LedgerSummary) {
	md.H2("Summary")
	md.PlainText("")

	if s == nil || s.Downloads == 0 {
		md.Note("The ledger holds no downloads yet.")
		md.PlainText("")
		return
	}

	rows := [][]string{
		{"Files", humanize.Comma(int64(s.Downloads))},
		{"Total size", humanize.IBytes(uint64(max(s.Bytes, 0)))},
		{"Compounds", humanize.Comma(int64(s.Compounds))},
		{"Search pages", humanize.Comma(int64(s.Pages))},
		{"Highest mass", formatMass(s.HighestMass)},
		{"First download", formatTime(s.FirstDownload)},
		{"Last download", formatTime(s.LastDownload)},
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, s)

	if missing := s.ByKind[model.FileKindSpectrum] - s.ByKind[model.FileKindStructure]; missing > 0 {
		md.Importantf("%d spectrum file(s) have no matching structure file.", missing)
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of files per kind.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.LedgerSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Files by Kind"),
		piechart.WithShowData(true),
	)

	for _, k := range kinds {
		if n := s.ByKind[k]; n > 0 {
			chart.LabelAndIntValue(string(k), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the recent search pages.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []model.PageRecord) {
	md.H2("Recent Search Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No search pages recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			formatMass(p.WindowStart) + " - " + formatMass(p.WindowStart+p.WindowWidth),
			formatMass(p.NextStart),
			strconv.Itoa(p.Entries),
			strconv.Itoa(p.Resolved),
			strconv.Itoa(p.Skipped),
			strconv.Itoa(p.Downloaded),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Window", "Next", "Listed", "Resolved", "Skipped", "Files"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDownloads writes the recent files.
func (w *MarkdownWriter) writeDownloads(md *markdown.Markdown, downloads []model.DownloadRecord) {
	md.H2("Recent Downloads")
	md.PlainText("")

	if len(downloads) == 0 {
		md.PlainText("No files recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(downloads))
	for i, d := range downloads {
		rows[i] = []string{
			"`" + filepath.Base(d.Path) + "`",
			string(d.Kind),
			truncateString(d.Compound, 40),
			humanize.IBytes(uint64(max(d.Bytes, 0))),
			formatTime(d.DownloadedAt),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Kind", "Compound", "Size", "Downloaded"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [irscrape](https://github.com/nao1215/irscrape)*")
}

// truncateString cuts s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
