package webbook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

const testBase = "https://webbook.nist.gov/cgi/cbook.cgi"

// pageFrom builds a fetched page from fixture HTML.
func pageFrom(t *testing.T, pageURL, body string) *fetch.Page {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return &fetch.Page{URL: pageURL, StatusCode: 200, Doc: doc}
}

// searchFixture renders a result list with one entry per mass.
func searchFixture(masses []float64) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>Search Results</h1><p>Matches found</p><ol>")
	for i, m := range masses {
		fmt.Fprintf(&b, `<li><a href="/cgi/cbook.cgi?ID=C%d&amp;Units=SI">Compound %d</a> <strong>%g</strong></li>`, 100+i, i, m)
	}
	b.WriteString("</ol></body></html>")
	return b.String()
}

// TestBuildSearchURL tests search URL construction.
func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	t.Run("encodes hyphenated range and fixed parameters", func(t *testing.T) {
		t.Parallel()

		got, err := BuildSearchURL(testBase, model.MassWindow{Start: 10, Width: 300})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Fatalf("invalid URL %q: %v", got, err)
		}
		if u.Host != "webbook.nist.gov" || u.Path != "/cgi/cbook.cgi" {
			t.Errorf("unexpected endpoint %q", got)
		}

		q := u.Query()
		want := map[string]string{
			"Value":      "10-310",
			"VType":      "MW",
			"Formula":    "",
			"AllowOther": "on",
			"AllowExtra": "on",
			"Units":      "SI",
			"cIR":        "on",
		}
		for k, v := range want {
			if !q.Has(k) {
				t.Errorf("missing parameter %s", k)
				continue
			}
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
	})

	t.Run("keeps fractional masses", func(t *testing.T) {
		t.Parallel()

		got, err := BuildSearchURL(testBase, model.MassWindow{Start: 78.11, Width: 0.5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		u, _ := url.Parse(got)
		if v := u.Query().Get("Value"); v != "78.11-78.61" {
			t.Errorf("unexpected Value %q", v)
		}
	})

	t.Run("rejects empty window", func(t *testing.T) {
		t.Parallel()

		if _, err := BuildSearchURL(testBase, model.MassWindow{Start: 10, Width: 0}); !errors.Is(err, model.ErrInvalidWindow) {
			t.Errorf("expected ErrInvalidWindow, got %v", err)
		}
	})
}

// TestParseSearchPage tests search result parsing.
func TestParseSearchPage(t *testing.T) {
	t.Parallel()

	t.Run("query then parse round trip", func(t *testing.T) {
		t.Parallel()

		searchURL, err := BuildSearchURL(testBase, model.MassWindow{Start: 10, Width: 300})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		masses := []float64{16.04, 18.02, 26.04, 28.05, 30.07}
		sp, err := ParseSearchPage(pageFrom(t, searchURL, searchFixture(masses)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(sp.Entries) != len(masses) {
			t.Fatalf("expected %d entries, got %d", len(masses), len(sp.Entries))
		}
		for i, e := range sp.Entries {
			want := fmt.Sprintf("https://webbook.nist.gov/cgi/cbook.cgi?ID=C%d&Units=SI", 100+i)
			if e.DetailURL != want {
				t.Errorf("entry %d: expected %q, got %q", i, want, e.DetailURL)
			}
			if e.DisplayedMass == nil || *e.DisplayedMass != masses[i] {
				t.Errorf("entry %d: unexpected mass %v", i, e.DisplayedMass)
			}
		}
		if sp.NextStart != 30.07 {
			t.Errorf("expected NextStart 30.07, got %v", sp.NextStart)
		}
		if !sp.Ascending || sp.SingleMatch {
			t.Errorf("unexpected flags ascending=%v single=%v", sp.Ascending, sp.SingleMatch)
		}
	})

	t.Run("reports descending masses", func(t *testing.T) {
		t.Parallel()

		sp, err := ParseSearchPage(pageFrom(t, testBase, searchFixture([]float64{30, 20, 40})))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sp.Ascending {
			t.Error("expected Ascending false")
		}
		if sp.NextStart != 40 {
			t.Errorf("expected NextStart 40, got %v", sp.NextStart)
		}
	})

	t.Run("mass text ignores nested markup", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><ol>
<li><a href="/a">A</a> <strong>44.01<sup>*</sup></strong></li>
</ol></body></html>`
		sp, err := ParseSearchPage(pageFrom(t, testBase, body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sp.NextStart != 44.01 {
			t.Errorf("expected 44.01, got %v", sp.NextStart)
		}
	})

	t.Run("entries without mass are kept", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><ol>
<li><a href="/a">A</a></li>
<li><a href="/b">B</a> <strong>50</strong></li>
</ol></body></html>`
		sp, err := ParseSearchPage(pageFrom(t, testBase, body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sp.Entries) != 2 || sp.Entries[0].DisplayedMass != nil {
			t.Errorf("unexpected entries %+v", sp.Entries)
		}
	})

	t.Run("missing list is a parse error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseSearchPage(pageFrom(t, testBase, `<html><body><p>Service busy</p></body></html>`))
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonNoResultList {
			t.Errorf("expected no result list ParseError, got %v", err)
		}
	})

	t.Run("unparsable last mass is a parse error", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><ol>
<li><a href="/a">A</a> <strong>12</strong></li>
<li><a href="/b">B</a> <strong>n/a</strong></li>
</ol></body></html>`
		_, err := ParseSearchPage(pageFrom(t, testBase, body))
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonUnparsableMass {
			t.Errorf("expected unparsable mass ParseError, got %v", err)
		}
	})

	t.Run("error page mentioning not found is a parse error", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><h1>Error</h1><p>The requested resource was not found on this server mirror.</p></body></html>`
		_, err := ParseSearchPage(pageFrom(t, testBase, body))
		if errors.Is(err, ErrNoMatches) {
			t.Fatalf("expected a parse error, got ErrNoMatches")
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonNoResultList {
			t.Errorf("expected no result list ParseError, got %v", err)
		}
	})

	t.Run("no matches reports an empty window", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><h1>Name Not Found</h1><p>No matching species found in this database.</p></body></html>`
		_, err := ParseSearchPage(pageFrom(t, testBase, body))
		if !errors.Is(err, ErrNoMatches) {
			t.Errorf("expected ErrNoMatches, got %v", err)
		}
	})

	t.Run("single match served as compound page", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><h1 id="Top">Methane</h1><a href="/cgi/cbook.cgi?ID=C74828&amp;Type=IR-SPEC">IR Spectrum</a></body></html>`
		sp, err := ParseSearchPage(pageFrom(t, testBase+"?Value=16-17", body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sp.SingleMatch || len(sp.Entries) != 1 {
			t.Fatalf("expected single match, got %+v", sp)
		}
		if sp.Entries[0].Name != "Methane" || sp.Entries[0].DetailURL != testBase+"?Value=16-17" {
			t.Errorf("unexpected entry %+v", sp.Entries[0])
		}
	})
}

const irPageFixture = `<html><body>
<h1 id="Top">  Benzene  </h1>
<div id="jcamp-tabs"><p>spectrum plot</p></div>
<a href="/cgi/cbook.cgi?JCAMP=C71432&amp;Index=1&amp;Type=IR">Download spectrum in JCAMP-DX format</a>
<a href="/cgi/cbook.cgi?Str2File=C71432">2D Mol file</a>
</body></html>`

// TestExtractIRLinks tests IR page extraction.
func TestExtractIRLinks(t *testing.T) {
	t.Parallel()

	t.Run("extracts both links and name", func(t *testing.T) {
		t.Parallel()

		links, err := ExtractIRLinks(pageFrom(t, testBase+"?ID=C71432&Type=IR-SPEC", irPageFixture))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if links.CompoundName != "Benzene" {
			t.Errorf("expected Benzene, got %q", links.CompoundName)
		}
		if links.SpectrumURL != testBase+"?JCAMP=C71432&Index=1&Type=IR" {
			t.Errorf("unexpected spectrum URL %q", links.SpectrumURL)
		}
		if links.StructureURL != testBase+"?Str2File=C71432" {
			t.Errorf("unexpected structure URL %q", links.StructureURL)
		}
	})

	t.Run("missing spectrum link yields no tasks", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><h1 id="Top">Benzene</h1><a href="/cgi/cbook.cgi?Str2File=C71432">2D Mol file</a></body></html>`
		links, err := ExtractIRLinks(pageFrom(t, testBase, body))
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonNoSpectrumLink {
			t.Fatalf("expected no spectrum link ParseError, got %v", err)
		}
		if links != nil {
			t.Error("expected no links")
		}
	})

	t.Run("missing name is a parse error", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><a href="/cgi/cbook.cgi?JCAMP=C1">JCAMP</a></body></html>`
		_, err := ExtractIRLinks(pageFrom(t, testBase, body))
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonNoCompoundName {
			t.Errorf("expected no compound name ParseError, got %v", err)
		}
	})
}

// TestTasks tests download task derivation.
func TestTasks(t *testing.T) {
	t.Parallel()

	dir := "raw_data"

	t.Run("spectrum and structure share a stem", func(t *testing.T) {
		t.Parallel()

		links := &model.IRPageLinks{
			PageURL:      testBase,
			SpectrumURL:  testBase + "?JCAMP=C1",
			StructureURL: testBase + "?Str2File=C1",
			CompoundName: "1,2-Dichloro/ethane",
		}
		tasks, err := Tasks(links, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(tasks))
		}
		if tasks[0].Kind != model.FileKindSpectrum || tasks[0].DestinationPath != filepath.Join(dir, "1,2-Dichloroethane.jdx") {
			t.Errorf("unexpected spectrum task %+v", tasks[0])
		}
		if tasks[1].Kind != model.FileKindStructure || tasks[1].DestinationPath != filepath.Join(dir, "1,2-Dichloroethane.mol") {
			t.Errorf("unexpected structure task %+v", tasks[1])
		}
	})

	t.Run("structure is optional", func(t *testing.T) {
		t.Parallel()

		links := &model.IRPageLinks{SpectrumURL: testBase + "?JCAMP=C1", CompoundName: "Water"}
		tasks, err := Tasks(links, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Kind != model.FileKindSpectrum {
			t.Errorf("expected only spectrum task, got %+v", tasks)
		}
	})

	t.Run("unusable name abandons both files", func(t *testing.T) {
		t.Parallel()

		links := &model.IRPageLinks{
			SpectrumURL:  testBase + "?JCAMP=C1",
			StructureURL: testBase + "?Str2File=C1",
			CompoundName: `///`,
		}
		tasks, err := Tasks(links, dir)
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonUnusableName {
			t.Errorf("expected unusable name ParseError, got %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("expected no tasks, got %d", len(tasks))
		}
	})
}

// fakeFetcher serves fixture HTML keyed by URL and records requests.
type fakeFetcher struct {
	t       *testing.T
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	f.fetched = append(f.fetched, rawURL)
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &fetch.FetchError{URL: rawURL, StatusCode: 404, Err: fetch.ErrUnexpectedStatus}
	}
	return pageFrom(f.t, rawURL, body), nil
}

// TestResolver tests detail page resolution.
func TestResolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	detail := testBase + "?ID=C71432&Units=SI"
	irURL := testBase + "?ID=C71432&Units=SI&Type=IR-SPEC&Index=1"

	t.Run("short-circuits when spectra are on the detail page", func(t *testing.T) {
		t.Parallel()

		body := strings.Replace(irPageFixture, "</body>",
			`<a href="/cgi/cbook.cgi?ID=C71432&amp;Units=SI&amp;Type=IR-SPEC&amp;Index=1">IR Spectrum</a></body>`, 1)
		f := &fakeFetcher{t: t, pages: map[string]string{detail: body}}

		links, err := NewResolver(f, nil).Resolve(ctx, detail)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if links.CompoundName != "Benzene" {
			t.Errorf("unexpected name %q", links.CompoundName)
		}
		if len(f.fetched) != 1 || f.fetched[0] != detail {
			t.Errorf("expected only the detail page to be fetched, got %v", f.fetched)
		}
	})

	t.Run("follows IR-SPEC link", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><h1 id="Top">Benzene</h1>
<a href="/cgi/cbook.cgi?ID=C71432&amp;Units=SI&amp;Type=IR-SPEC&amp;Index=1">IR Spectrum</a></body></html>`
		f := &fakeFetcher{t: t, pages: map[string]string{detail: body, irURL: irPageFixture}}

		links, err := NewResolver(f, nil).Resolve(ctx, detail)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if links.PageURL != irURL {
			t.Errorf("expected links from %q, got %q", irURL, links.PageURL)
		}
		if len(f.fetched) != 2 {
			t.Errorf("expected 2 fetches, got %v", f.fetched)
		}
	})

	t.Run("no IR link skips compound", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{t: t, pages: map[string]string{detail: `<html><body><h1 id="Top">Argon</h1></body></html>`}}

		_, err := NewResolver(f, nil).Resolve(ctx, detail)
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Reason != ReasonNoIRLink {
			t.Errorf("expected no IR link ParseError, got %v", err)
		}
	})

	t.Run("fetch error is returned", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{t: t, pages: map[string]string{}}

		_, err := NewResolver(f, nil).Resolve(ctx, detail)
		var fe *fetch.FetchError
		if !errors.As(err, &fe) {
			t.Errorf("expected FetchError, got %v", err)
		}
	})
}
