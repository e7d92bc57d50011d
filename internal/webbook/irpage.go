package webbook

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/irscrape/internal/download"
	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

// Selectors for the IR spectrum page.
const (
	selectorSpectrumTabs = "div#jcamp-tabs"
	selectorIRLink       = `a[href*="IR-SPEC"]`
	selectorSpectrumLink = `a[href*="JCAMP"]`
	selectorStructure    = `a[href*="Str2File"]`
	selectorCompoundName = "h1#Top"
)

// HasSpectrumData reports whether page already is an IR spectrum page.
func HasSpectrumData(page *fetch.Page) bool {
	return page.Doc.Find(selectorSpectrumTabs).Length() > 0
}

// ExtractIRLinks reads the download links and compound name from an IR
// spectrum page.
func ExtractIRLinks(page *fetch.Page) (*model.IRPageLinks, error) {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoSpectrumLink, Err: err}
	}

	spectrum, ok := absoluteHref(page, base, selectorSpectrumLink)
	if !ok {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoSpectrumLink}
	}

	name := strings.TrimSpace(page.Doc.Find(selectorCompoundName).First().Text())
	if name == "" {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoCompoundName}
	}

	structure, _ := absoluteHref(page, base, selectorStructure)

	return &model.IRPageLinks{
		PageURL:      page.URL,
		SpectrumURL:  spectrum,
		StructureURL: structure,
		CompoundName: name,
	}, nil
}

// Tasks turns the links of one compound into download tasks under dir.
// The spectrum task is always first; the structure task is present only
// when the page offered a structure file. Both files share one sanitised
// stem, and an unusable name yields no tasks at all.
func Tasks(links *model.IRPageLinks, dir string) ([]model.DownloadTask, error) {
	stem := download.SanitizeFilename(links.CompoundName)
	if stem == "" {
		return nil, &ParseError{URL: links.PageURL, Reason: ReasonUnusableName, Err: download.ErrEmptyFilename}
	}

	tasks := []model.DownloadTask{{
		Kind:            model.FileKindSpectrum,
		Compound:        links.CompoundName,
		RemoteURL:       links.SpectrumURL,
		DestinationPath: filepath.Join(dir, stem+model.FileKindSpectrum.Extension()),
	}}
	if links.HasStructure() {
		tasks = append(tasks, model.DownloadTask{
			Kind:            model.FileKindStructure,
			Compound:        links.CompoundName,
			RemoteURL:       links.StructureURL,
			DestinationPath: filepath.Join(dir, stem+model.FileKindStructure.Extension()),
		})
	}
	return tasks, nil
}

// absoluteHref resolves the href of the first element matching selector.
func absoluteHref(page *fetch.Page, base *url.URL, selector string) (string, bool) {
	href, ok := page.Doc.Find(selector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	return abs.String(), true
}
