// Package pipeline drives a crawl.
//
// Harvester runs the outer loop: one mass window per iteration, search
// page fetched and parsed, every listed compound processed, checkpoint
// saved, window advanced. A window the site has no compounds for is
// checkpointed and skipped by its full width. Each compound goes through a Pipeline of Steps
// (resolve the IR page, derive download tasks, download the files) and
// the compounds of one page are processed by a PageProcessor with bounded
// concurrency. The checkpoint is only written by the loop goroutine after
// every compound of the page has finished.
package pipeline
