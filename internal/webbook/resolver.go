package webbook

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

// Fetcher retrieves HTML pages. fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Resolver finds the IR spectrum page of a compound and extracts its
// download links.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewResolver creates a Resolver that fetches pages through f.
func NewResolver(f Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: f, logger: logger}
}

// Resolve fetches the detail page at detailURL and returns the links of
// the compound's IR spectrum page.
func (r *Resolver) Resolve(ctx context.Context, detailURL string) (*model.IRPageLinks, error) {
	page, err := r.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	return r.ResolvePage(ctx, page)
}

// ResolvePage is Resolve for a detail page that was already fetched.
// A page that shows spectra itself is extracted directly; otherwise the
// IR-SPEC link is followed.
func (r *Resolver) ResolvePage(ctx context.Context, page *fetch.Page) (*model.IRPageLinks, error) {
	if HasSpectrumData(page) {
		r.logger.Debug("compound page holds spectrum", "url", page.URL)
		return ExtractIRLinks(page)
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoIRLink, Err: err}
	}
	irURL, ok := absoluteHref(page, base, selectorIRLink)
	if !ok {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoIRLink}
	}

	irPage, err := r.fetcher.Fetch(ctx, irURL)
	if err != nil {
		return nil, err
	}
	return ExtractIRLinks(irPage)
}
