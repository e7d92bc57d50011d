package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

// PageProcessor runs the compounds of one search page through a
// compound pipeline, several at a time.
type PageProcessor struct {
	// pipeline is shared by all jobs; steps keep no per-job state.
	pipeline *Pipeline

	// concurrency is the maximum number of compounds in flight.
	concurrency int

	// logger is used for page-level logging.
	logger *slog.Logger
}

// BatchOption configures a PageProcessor.
type BatchOption func(*PageProcessor)

// WithBatchLogger sets a custom logger for page processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *PageProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent compounds.
// Values below 1 are ignored; the default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *PageProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewPageProcessor creates a PageProcessor.
func NewPageProcessor(p *Pipeline, opts ...BatchOption) *PageProcessor {
	bp := &PageProcessor{
		pipeline:    p,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Process runs every entry of sp and returns when each has succeeded or
// been skipped. searchPage is the fetched search response; it is handed
// to the resolver when the search matched a single compound.
//
// Compound failures are counted, never returned. The only error is the
// context's, in which case the page must not be checkpointed.
func (bp *PageProcessor) Process(ctx context.Context, window model.MassWindow, sp *model.SearchPage, searchPage *fetch.Page) (model.PageStats, error) {
	stats := model.PageStats{
		Window:  window,
		Entries: len(sp.Entries),
	}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, entry := range sp.Entries {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			job := &Job{Entry: entry}
			if sp.SingleMatch && entry.DetailURL == searchPage.URL {
				job.Page = searchPage
			}

			err := bp.pipeline.Execute(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			for _, res := range job.Results {
				stats.Add(res)
			}
			if err != nil {
				stats.Skipped++
				if ctx.Err() == nil {
					bp.logger.Warn("compound skipped",
						"url", entry.DetailURL,
						"index", i+1,
						"total", len(sp.Entries),
						"completed", job.Performed,
						"error", err,
					)
				}
				return nil
			}
			stats.Resolved++
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
