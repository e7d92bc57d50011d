// Package fetch performs the HTTP GET requests of a crawl.
//
// A Fetcher owns one http.Client, one politeness limiter shared by every
// request, and a bounded exponential-backoff retry policy. Transport
// errors, 5xx responses and 429 are retried; any other non-2xx status is
// permanent. Whatever fails after the last attempt is returned as a
// *FetchError carrying the URL and, when there was one, the status code.
//
// # Usage
//
//	f := fetch.New(fetch.WithUserAgent(cfg.UserAgent), fetch.WithCrawlDelay(cfg.CrawlDelay))
//	page, err := f.Fetch(ctx, searchURL)
//	body, err := f.Open(ctx, spectrumURL)
package fetch
