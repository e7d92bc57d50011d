package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidBaseURL is returned when the search endpoint is not an
	// absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrEmptyDataDir is returned when no download directory is configured.
	ErrEmptyDataDir = errors.New("invalid data directory: must not be empty")

	// ErrEmptyLogDir is returned when no log directory is configured.
	ErrEmptyLogDir = errors.New("invalid log directory: must not be empty")

	// ErrInvalidWindowWidth is returned when the window width is not a
	// positive finite number.
	ErrInvalidWindowWidth = errors.New("invalid window width: must be positive")

	// ErrInvalidStartMass is returned when the start mass is negative or
	// not finite.
	ErrInvalidStartMass = errors.New("invalid start mass: must be a non-negative number")

	// ErrInvalidMaxMass is returned when the maximum mass is below the start
	// mass.
	ErrInvalidMaxMass = errors.New("invalid max mass: must not be below the start mass")

	// ErrInvalidMassStep is returned when the stall step is not positive.
	ErrInvalidMassStep = errors.New("invalid mass step: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative (0 means unlimited)")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size limit is not
	// positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")
)
