// Package model defines the core data structures shared by the irscrape
// packages.
//
// This package contains the following main types:
//   - MassWindow: The molecular-mass range requested from the search form
//   - SearchPage and CompoundEntry: One page of mass-ordered search results
//   - IRPageLinks: Download links and compound name found on an IR page
//   - DownloadTask and DownloadResult: One file transfer and its outcome
//   - PageStats and RunStats: Counters reported by the crawl loop
//
// Models live in their own package so that webbook, download, pipeline
// and report can all depend on them without import cycles.
package model
