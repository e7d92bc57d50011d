package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/irscrape/internal/config"
	"github.com/nao1215/irscrape/internal/model"
	"github.com/nao1215/irscrape/internal/webbook"
)

// Reasons reported in RunStats.StopReason.
const (
	StopMaxMass   = "reached maximum mass"
	StopMaxPages  = "reached page limit"
	StopCancelled = "cancelled"
	StopFailed    = "failed"
)

// Checkpointer persists the start of the next window.
// checkpoint.Store implements it.
type Checkpointer interface {
	Save(mass float64) error
}

// PageRecorder appends completed pages to the ledger.
// database.CrawlDB implements it.
type PageRecorder interface {
	RecordPage(ctx context.Context, rec *model.PageRecord) error
}

// Harvester runs the crawl loop over successive mass windows.
type Harvester struct {
	cfg        *config.Config
	fetcher    webbook.Fetcher
	processor  *PageProcessor
	checkpoint Checkpointer
	recorder   PageRecorder
	logger     *slog.Logger
	now        func() time.Time
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*Harvester)

// WithHarvesterLogger sets the logger.
func WithHarvesterLogger(logger *slog.Logger) HarvesterOption {
	return func(h *Harvester) {
		h.logger = logger
	}
}

// WithPageRecorder records every completed page.
func WithPageRecorder(r PageRecorder) HarvesterOption {
	return func(h *Harvester) {
		h.recorder = r
	}
}

// NewHarvester creates a Harvester. cfg must already be validated and is
// not modified.
func NewHarvester(cfg *config.Config, f webbook.Fetcher, p *PageProcessor, cp Checkpointer, opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		cfg:        cfg,
		fetcher:    f,
		processor:  p,
		checkpoint: cp,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Run crawls from start until an exit condition holds. A nil error means
// a clean finish (maximum mass or page limit); the reason is in the
// returned stats. Windows without compounds are skipped by their full
// width.
func (h *Harvester) Run(ctx context.Context, start float64) (model.RunStats, error) {
	stats := model.RunStats{
		StartedAt: h.now(),
		StartMass: start,
		LastMass:  start,
	}
	window := model.MassWindow{Start: start, Width: h.cfg.WindowWidth}

	finish := func(reason string, err error) (model.RunStats, error) {
		stats.StopReason = reason
		stats.FinishedAt = h.now()
		h.logger.Info("crawl finished",
			"reason", reason,
			"pages", stats.Pages,
			"empty_windows", stats.EmptyWindows,
			"files", stats.FilesDownloaded,
			"last_mass", stats.LastMass,
		)
		return stats, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(StopCancelled, err)
		}
		if window.Start > h.cfg.MaxMass {
			return finish(StopMaxMass, nil)
		}
		if h.cfg.MaxPages > 0 && stats.Requests() >= h.cfg.MaxPages {
			return finish(StopMaxPages, nil)
		}

		next, page, err := h.step(ctx, window)
		if errors.Is(err, webbook.ErrNoMatches) {
			next, err = h.skipEmpty(window)
			if err != nil {
				return finish(StopFailed, err)
			}
			stats.AddEmptyWindow(next)
			window = window.Advance(next)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish(StopCancelled, err)
			}
			return finish(StopFailed, err)
		}

		stats.AddPage(page)
		window = window.Advance(next)
	}
}

// step processes one window and returns the start of the next.
func (h *Harvester) step(ctx context.Context, window model.MassWindow) (float64, model.PageStats, error) {
	searchURL, err := webbook.BuildSearchURL(h.cfg.BaseURL, window)
	if err != nil {
		return 0, model.PageStats{}, err
	}

	page, err := h.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return 0, model.PageStats{}, fmt.Errorf("failed to fetch search page: %w", err)
	}

	sp, err := webbook.ParseSearchPage(page)
	if err != nil {
		if errors.Is(err, webbook.ErrNoMatches) {
			h.logger.Info("no compounds in window", "start", window.Start, "end", window.End())
			return 0, model.PageStats{}, err
		}
		h.logger.Error("search page could not be parsed", "url", searchURL, "error", err)
		return 0, model.PageStats{}, fmt.Errorf("%w: %w", ErrPageParse, err)
	}

	h.logger.Info("search page fetched",
		"start", window.Start,
		"end", window.End(),
		"entries", len(sp.Entries),
		"single_match", sp.SingleMatch,
	)
	if !sp.Ascending {
		h.logger.Warn("search results are not sorted by mass", "url", searchURL)
	}

	next, err := h.nextStart(window, sp)
	if err != nil {
		return 0, model.PageStats{}, err
	}

	stats, err := h.processor.Process(ctx, window, sp, page)
	if err != nil {
		return 0, stats, err
	}
	stats.NextStart = next

	if err := h.checkpoint.Save(next); err != nil {
		return 0, stats, fmt.Errorf("%w: %w", ErrCheckpoint, err)
	}
	h.logger.Info("checkpoint saved", "mass", next)

	if h.recorder != nil {
		rec := model.NewPageRecord(stats)
		if err := h.recorder.RecordPage(ctx, &rec); err != nil {
			h.logger.Warn("failed to record page", "error", err)
		}
	}

	return next, stats, nil
}

// skipEmpty checkpoints the end of a window the site has no compounds for
// and returns it as the next start.
func (h *Harvester) skipEmpty(window model.MassWindow) (float64, error) {
	next := window.End()
	if err := h.checkpoint.Save(next); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCheckpoint, err)
	}
	h.logger.Info("checkpoint saved", "mass", next)
	return next, nil
}

// nextStart decides where the following window begins.
func (h *Harvester) nextStart(window model.MassWindow, sp *model.SearchPage) (float64, error) {
	if sp.SingleMatch {
		return window.End(), nil
	}

	next := sp.NextStart
	switch {
	case next < window.Start:
		return 0, fmt.Errorf("%w: window starts at %v, last result is %v", ErrOutOfOrder, window.Start, next)
	case next == window.Start:
		advanced := window.Start + h.cfg.MassStep
		h.logger.Warn("window did not advance, stepping forward",
			"mass", window.Start,
			"next", advanced,
		)
		return advanced, nil
	default:
		return next, nil
	}
}
