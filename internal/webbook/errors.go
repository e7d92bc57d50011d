package webbook

import (
	"errors"
	"fmt"
)

// ErrNoMatches is returned by ParseSearchPage when the site reports that
// no compound falls in the requested window. The crawl skips past it.
var ErrNoMatches = errors.New("no matching species found")

// Reasons carried by ParseError.
const (
	ReasonNoResultList   = "no result list"
	ReasonUnparsableMass = "unparsable mass"
	ReasonNoIRLink       = "no IR link"
	ReasonNoSpectrumLink = "no spectrum link"
	ReasonNoCompoundName = "no compound name"
	ReasonUnusableName   = "unusable compound name"
)

// ParseError reports that a page lacked the structure the parser expects.
type ParseError struct {
	// URL is the page being parsed.
	URL string

	// Reason is one of the Reason constants.
	Reason string

	// Err is an optional underlying error, such as a number parse failure.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
