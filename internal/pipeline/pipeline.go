package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

// Job carries one compound through the steps of a Pipeline.
type Job struct {
	// Entry is the search result being processed.
	Entry model.CompoundEntry

	// Page is the already fetched detail page, set when the search itself
	// returned the compound page.
	Page *fetch.Page

	// Links is set by the resolve step.
	Links *model.IRPageLinks

	// Tasks is set by the task step.
	Tasks []model.DownloadTask

	// Results holds one entry per executed task.
	Results []model.DownloadResult

	// Err is the error of the step that stopped the job.
	Err error

	// Performed lists the names of the steps that completed.
	Performed []string
}

// Step defines one stage of compound processing.
type Step interface {
	// Do executes the step. An error stops the job; failures that should
	// not stop it are recorded on the job instead.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps on job until one fails or the context is done.
// The failing error is stored in job.Err and returned.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			job.Err = err
			return err
		}

		if err := step.Do(ctx, job); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"url", job.Entry.DetailURL,
				"error", err,
			)
			job.Err = err
			return err
		}

		job.Performed = append(job.Performed, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
