package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/irscrape/internal/database"
	"github.com/nao1215/irscrape/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the download ledger",
		Long: `Report reads the download ledger in the log directory and prints the
totals, the most recent search pages and the most recent downloads.

Examples:
  # Plain text summary of logging/irscrape.db
  irscrape report

  # Markdown report with a chart of files per kind
  irscrape report --markdown -o report.md

  # JSON for other tools
  irscrape report --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	addConfigFlags(cmd)

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().IntP("recent", "r", report.DefaultRecent,
		"Number of recent pages and downloads to list")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	recent, err := flags.GetInt("recent")
	if err != nil {
		return err
	}

	ledger, err := database.Open(cfg.LedgerDir(), database.ReadOnlyOptions())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no ledger in %s (run \"irscrape crawl\" first)", cfg.LedgerDir())
		}
		return err
	}
	defer ledger.Close()

	r, err := report.Build(cmd.Context(), ledger, recent)
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := createReportFile(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	format := "text"
	switch {
	case asJSON:
		format = "json"
	case asMarkdown:
		format = "markdown"
	}
	w, err := report.New(format, output)
	if err != nil {
		return err
	}

	_, err = w.Write(r)
	return err
}

// createReportFile creates or truncates path, making parent directories.
func createReportFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen report path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
