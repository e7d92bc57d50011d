package webbook

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/irscrape/internal/fetch"
	"github.com/nao1215/irscrape/internal/model"
)

// noMatchMarker is the phrase the site prints when a search finds nothing.
const noMatchMarker = "no matching species found"

// ParseSearchPage extracts the compound entries and the next window start
// from a search result page.
//
// A page without a result list is either an empty window (ErrNoMatches),
// a single match served as the compound page itself (SingleMatch set, the
// page is the only entry), or malformed (*ParseError).
func ParseSearchPage(page *fetch.Page) (*model.SearchPage, error) {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoResultList, Err: err}
	}

	list := page.Doc.Find("body ol").First()
	if list.Length() == 0 {
		return parseListless(page)
	}

	items := list.Find("li")
	if items.Length() == 0 {
		return nil, &ParseError{URL: page.URL, Reason: ReasonNoResultList}
	}

	result := &model.SearchPage{
		URL:       page.URL,
		Entries:   make([]model.CompoundEntry, 0, items.Length()),
		Ascending: true,
	}

	var prev *float64
	items.Each(func(_ int, li *goquery.Selection) {
		mass, ok := displayedMass(li)
		var massPtr *float64
		if ok {
			massPtr = &mass
			if prev != nil && mass < *prev {
				result.Ascending = false
			}
			prev = massPtr
		}

		a := li.Find("a[href]").First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		abs, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		result.Entries = append(result.Entries, model.CompoundEntry{
			DetailURL:     abs.String(),
			Name:          strings.TrimSpace(a.Text()),
			DisplayedMass: massPtr,
		})
	})

	last, ok := displayedMass(items.Last())
	if !ok {
		return nil, &ParseError{
			URL:    page.URL,
			Reason: ReasonUnparsableMass,
			Err:    errors.New("last result has no numeric mass"),
		}
	}
	result.NextStart = last

	return result, nil
}

// parseListless handles a search response that has no result list.
func parseListless(page *fetch.Page) (*model.SearchPage, error) {
	if heading := strings.TrimSpace(page.Doc.Find("h1#Top").First().Text()); heading != "" {
		return &model.SearchPage{
			URL: page.URL,
			Entries: []model.CompoundEntry{
				{DetailURL: page.URL, Name: heading},
			},
			Ascending:   true,
			SingleMatch: true,
		}, nil
	}

	text := strings.ToLower(strings.Join(strings.Fields(page.Doc.Find("body").Text()), " "))
	if strings.Contains(text, noMatchMarker) {
		return nil, ErrNoMatches
	}

	return nil, &ParseError{URL: page.URL, Reason: ReasonNoResultList}
}

// displayedMass reads the mass printed in the item's "strong" element.
func displayedMass(li *goquery.Selection) (float64, bool) {
	strong := li.Find("strong").First()
	if strong.Length() == 0 {
		return 0, false
	}

	text := ownText(strong.Nodes[0])
	if text == "" {
		text = strong.Text()
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}

	m, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}
	return m, true
}

// ownText concatenates the text nodes directly under n, ignoring nested
// elements such as footnote markers.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
