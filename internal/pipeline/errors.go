package pipeline

import "errors"

var (
	// ErrOutOfOrder is returned when a search page ends below the window it
	// was requested for. Resuming from a single checkpointed mass would
	// then skip compounds, so the crawl stops.
	ErrOutOfOrder = errors.New("search results are not in ascending mass order")

	// ErrPageParse wraps a search page that could not be parsed.
	ErrPageParse = errors.New("search page could not be parsed")

	// ErrCheckpoint wraps a failure to persist the checkpoint.
	ErrCheckpoint = errors.New("failed to save checkpoint")
)
