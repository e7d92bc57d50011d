package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
	"github.com/nao1215/irscrape/internal/webbook"
)

// Resolver finds the IR page links of a compound.
// webbook.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, detailURL string) (*model.IRPageLinks, error)
	ResolvePage(ctx context.Context, page *fetch.Page) (*model.IRPageLinks, error)
}

// Downloader fetches one file. download.Downloader implements it.
type Downloader interface {
	Download(ctx context.Context, task model.DownloadTask) model.DownloadResult
}

// ResolveStep fetches the detail page and, if needed, the IR page.
type ResolveStep struct {
	resolver Resolver
}

// NewResolveStep creates a ResolveStep.
func NewResolveStep(r Resolver) *ResolveStep {
	return &ResolveStep{resolver: r}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do executes the step.
func (s *ResolveStep) Do(ctx context.Context, job *Job) error {
	var (
		links *model.IRPageLinks
		err   error
	)
	if job.Page != nil {
		links, err = s.resolver.ResolvePage(ctx, job.Page)
	} else {
		links, err = s.resolver.Resolve(ctx, job.Entry.DetailURL)
	}
	if err != nil {
		return err
	}
	job.Links = links
	return nil
}

// TaskStep derives the download tasks and file names.
type TaskStep struct {
	dataDir string
}

// NewTaskStep creates a TaskStep writing into dataDir.
func NewTaskStep(dataDir string) *TaskStep {
	return &TaskStep{dataDir: dataDir}
}

// Name returns the step name.
func (s *TaskStep) Name() string {
	return "tasks"
}

// Do executes the step.
func (s *TaskStep) Do(_ context.Context, job *Job) error {
	tasks, err := webbook.Tasks(job.Links, s.dataDir)
	if err != nil {
		return err
	}
	job.Tasks = tasks
	return nil
}

// DownloadStep runs every task of the job. A failed task does not stop
// the others; failures are only visible in job.Results.
type DownloadStep struct {
	downloader Downloader
	logger     *slog.Logger
}

// NewDownloadStep creates a DownloadStep.
func NewDownloadStep(d Downloader, logger *slog.Logger) *DownloadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadStep{downloader: d, logger: logger}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the step.
func (s *DownloadStep) Do(ctx context.Context, job *Job) error {
	for _, task := range job.Tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := s.downloader.Download(ctx, task)
		job.Results = append(job.Results, res)
		if res.Outcome == model.OutcomeFailed {
			s.logger.Warn("file not downloaded",
				"compound", task.Compound,
				"kind", task.Kind,
				"error", res.Err,
			)
		}
	}
	return nil
}

// NewCompoundPipeline assembles the standard resolve, tasks and download
// steps.
func NewCompoundPipeline(r Resolver, d Downloader, dataDir string, logger *slog.Logger) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewResolveStep(r),
		NewTaskStep(dataDir),
		NewDownloadStep(d, logger),
	)
	p.logger.Debug("compound pipeline assembled", "steps", p.StepNames())
	return p
}
