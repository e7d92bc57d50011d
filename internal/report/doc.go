// Package report renders the download ledger and crawl statistics.
//
// Three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with a mermaid chart of files per kind
//   - JSONWriter: structured JSON for other tools
//
// The data lives in the model and database packages; this package only
// formats it. All writers implement Writer.
package report
