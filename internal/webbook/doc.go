// Package webbook knows the page structure of the NIST Chemistry WebBook.
//
// It turns a mass window into a search URL, reads search result pages,
// finds the IR spectrum page of a compound, and extracts the JCAMP-DX and
// MOL file download links from it. Network access goes through a Fetcher;
// everything else is pure parsing over goquery documents, so the parsers
// can be tested against fixture HTML.
//
// Selectors used:
//   - search results: the first "ol" inside "body", one "li" per compound,
//     its first "a[href]" and its "strong" mass
//   - compound page already showing spectra: "div#jcamp-tabs"
//   - link to the IR page: a[href*="IR-SPEC"]
//   - spectrum download: a[href*="JCAMP"]
//   - structure download: a[href*="Str2File"]
//   - compound name: "h1#Top"
package webbook
