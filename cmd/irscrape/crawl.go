package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/irscrape/internal/checkpoint"
	"github.com/nao1215/irscrape/internal/config"
	"github.com/nao1215/irscrape/internal/database"
	"github.com/nao1215/irscrape/internal/download"
	"github.com/nao1215/irscrape/internal/fetch"
	irlog "github.com/nao1215/irscrape/internal/log"
	"github.com/nao1215/irscrape/internal/pipeline"
	"github.com/nao1215/irscrape/internal/report"
	"github.com/nao1215/irscrape/internal/webbook"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-mass]",
		Short: "Download IR spectra and structure files by molecular mass",
		Long: `Crawl searches the WebBook window by window, starting at the saved
checkpoint (or the configured start mass), and downloads the JCAMP-DX
spectrum and MOL structure of every compound listed.

A start mass given as argument overrides the checkpoint.

Examples:
  # Resume from logging/progress, or start at 10 g/mol
  irscrape crawl

  # Start at 120.5 g/mol regardless of the checkpoint
  irscrape crawl 120.5

  # Fetch two pages with a gentler request rate
  irscrape crawl --max-pages 2 --delay 3s

  # Keep everything under ~/.local/share/irscrape
  irscrape crawl --xdg`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	addConfigFlags(cmd)

	cmd.Flags().StringP("data-dir", "d", config.DefaultDataDir,
		"Directory downloaded files are written to")
	cmd.Flags().Float64P("width", "w", config.DefaultWindowWidth,
		"Width of each mass window in g/mol")
	cmd.Flags().Float64("max-mass", config.DefaultMaxMass,
		"Stop once a window would start above this mass")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after this many search pages (0 = no limit)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Compounds of one page processed at the same time")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries for a failed request")
	cmd.Flags().BoolP("repeat", "r", false,
		"Overwrite files that already exist")
	cmd.Flags().Bool("no-log-file", false,
		"Do not write a log file into the log directory")
	cmd.Flags().Bool("no-ledger", false,
		"Do not record downloads in the SQLite ledger")
	cmd.Flags().String("format", "text",
		"Format of the final summary: text, markdown or json")

	return cmd
}

// addConfigFlags registers the flags shared by crawl and report.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .irscrape in current or home directory)")
	cmd.Flags().StringP("log-dir", "l", config.DefaultLogDir,
		"Directory for the checkpoint, ledger and log files")
	cmd.Flags().Bool("xdg", false,
		"Keep data and logs under the XDG data directory")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	summary, err := report.New(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, summary, cmd.ErrOrStderr())
}

// loadConfig builds a Config from defaults, the config file and the
// flags shared by every command, in that order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise no file at all is fine.
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cf.Apply(cfg)
		cfg.ConfigFilePath = found
	case path != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	xdgDirs, err := cmd.Flags().GetBool("xdg")
	if err != nil {
		return nil, err
	}
	if xdgDirs {
		cfg.UseXDGDirs()
	}

	if cmd.Flags().Changed("log-dir") {
		if cfg.LogDir, err = cmd.Flags().GetString("log-dir"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// buildCrawlConfig creates a Config for the crawl command. Flags only
// override the config file when they are set explicitly.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	var errs []error
	set := func(name string, apply func() error) {
		if flags.Changed(name) {
			errs = append(errs, apply())
		}
	}

	set("data-dir", func() (err error) { cfg.DataDir, err = flags.GetString("data-dir"); return })
	set("width", func() (err error) { cfg.WindowWidth, err = flags.GetFloat64("width"); return })
	set("max-mass", func() (err error) { cfg.MaxMass, err = flags.GetFloat64("max-mass"); return })
	set("max-pages", func() (err error) { cfg.MaxPages, err = flags.GetInt("max-pages"); return })
	set("concurrency", func() (err error) { cfg.Concurrency, err = flags.GetInt("concurrency"); return })
	set("delay", func() (err error) { cfg.CrawlDelay, err = flags.GetDuration("delay"); return })
	set("timeout", func() (err error) { cfg.Timeout, err = flags.GetDuration("timeout"); return })
	set("retries", func() (err error) { cfg.MaxRetries, err = flags.GetInt("retries"); return })
	set("repeat", func() (err error) { cfg.RepeatDownload, err = flags.GetBool("repeat"); return })
	set("no-log-file", func() error {
		off, err := flags.GetBool("no-log-file")
		cfg.LogToFile = cfg.LogToFile && !off
		return err
	})
	set("no-ledger", func() error {
		off, err := flags.GetBool("no-ledger")
		cfg.UseLedger = cfg.UseLedger && !off
		return err
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if len(args) == 1 {
		mass, err := parseStartMass(args[0])
		if err != nil {
			return nil, err
		}
		cfg.StartMass = mass
		cfg.StartMassOverride = true
	}

	return cfg, nil
}

// parseStartMass parses the optional start mass argument.
func parseStartMass(s string) (float64, error) {
	mass, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid start mass %q: %w", s, err)
	}
	if mass < 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return 0, fmt.Errorf("invalid start mass %q: %w", s, config.ErrInvalidStartMass)
	}
	return mass, nil
}

// runCrawl wires the crawl components together and runs the harvester.
// The run summary is written through summary; logs go to console and,
// if enabled, to a log file, which also receives a text summary.
func runCrawl(ctx context.Context, cfg *config.Config, summary report.Writer, console io.Writer) error {
	var logFile io.Writer
	if cfg.LogToFile {
		f, err := irlog.OpenLogFile(cfg.LogDir, time.Now())
		if err != nil {
			return err
		}
		defer f.Close()
		logFile = f
		summary = report.NewMultiWriter(summary, report.NewSimpleWriter(f))
	}

	logger := irlog.NewLogger(console, cfg.Verbose, logFile)
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if n, err := download.CleanPartials(cfg.DataDir); err != nil {
		logger.Warn("failed to remove partial downloads", "dir", cfg.DataDir, "error", err)
	} else if n > 0 {
		logger.Info("removed partial downloads", "count", n)
	}

	store := checkpoint.NewStore(cfg.ProgressPath())
	start, err := startMass(cfg, store, logger)
	if err != nil {
		return err
	}

	var ledger *database.CrawlDB
	if cfg.UseLedger {
		ledger, err = database.Open(cfg.LedgerDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer ledger.Close()
		logger.Info("ledger opened", "path", ledger.Path())
	}

	h := newHarvester(cfg, store, ledger, logger)

	logger.Info("starting crawl",
		"start", start,
		"width", cfg.WindowWidth,
		"max_mass", cfg.MaxMass,
		"data_dir", cfg.DataDir,
		"concurrency", cfg.Concurrency,
	)

	stats, runErr := h.Run(ctx, start)

	if _, err := summary.WriteRun(&stats); err != nil {
		logger.Warn("failed to write summary", "error", err)
	}

	if runErr != nil {
		logger.Error("crawl stopped", "error", runErr, "resume_from", stats.LastMass)
		return fmt.Errorf("crawl stopped at mass %v: %w", stats.LastMass, runErr)
	}
	return nil
}

// startMass picks the first window start: the argument if one was given,
// then the checkpoint, then the configured default. A corrupt checkpoint
// is reported and ignored.
func startMass(cfg *config.Config, store *checkpoint.Store, logger *slog.Logger) (float64, error) {
	if cfg.StartMassOverride {
		logger.Info("start mass given, ignoring checkpoint", "mass", cfg.StartMass)
		return cfg.StartMass, nil
	}

	mass, ok, err := store.Load()
	switch {
	case errors.Is(err, checkpoint.ErrCorrupt):
		logger.Warn("ignoring corrupt checkpoint", "path", store.Path(), "error", err)
		return cfg.StartMass, nil
	case err != nil:
		return 0, err
	case ok:
		logger.Info("resuming from checkpoint", "mass", mass, "path", store.Path())
		return mass, nil
	default:
		return cfg.StartMass, nil
	}
}

// newHarvester assembles the fetcher, resolver, downloader and page
// processor. ledger may be nil.
func newHarvester(cfg *config.Config, store *checkpoint.Store, ledger *database.CrawlDB, logger *slog.Logger) *pipeline.Harvester {
	f := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithCrawlDelay(cfg.CrawlDelay),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithLogger(logger),
	)

	dlOpts := []download.Option{
		download.WithRepeatDownload(cfg.RepeatDownload),
		download.WithLogger(logger),
	}
	hOpts := []pipeline.HarvesterOption{
		pipeline.WithHarvesterLogger(logger),
	}
	if ledger != nil {
		dlOpts = append(dlOpts, download.WithLedger(ledger))
		hOpts = append(hOpts, pipeline.WithPageRecorder(ledger))
	}

	steps := pipeline.NewCompoundPipeline(
		webbook.NewResolver(f, logger),
		download.New(f, dlOpts...),
		cfg.DataDir,
		logger,
	)
	processor := pipeline.NewPageProcessor(steps,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	return pipeline.NewHarvester(cfg, f, processor, store, hOpts...)
}
