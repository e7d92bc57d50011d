package model

import (
	"errors"
	"math"
)

// ErrInvalidWindow is returned when a mass window cannot be turned into a
// search range.
var ErrInvalidWindow = errors.New("invalid mass window: start must be finite and width positive")

// MassWindow is the contiguous molecular-mass range requested from the
// search form. Start only ever moves forward during a crawl; Width is fixed
// by configuration.
type MassWindow struct {
	// Start is the lower bound of the range in g/mol.
	Start float64 `json:"start"`

	// Width is the size of the range in g/mol.
	Width float64 `json:"width"`
}

// End returns the upper bound of the window.
func (w MassWindow) End() float64 {
	return w.Start + w.Width
}

// Validate checks that the window describes a non-empty finite range.
func (w MassWindow) Validate() error {
	if math.IsNaN(w.Start) || math.IsInf(w.Start, 0) {
		return ErrInvalidWindow
	}
	if math.IsNaN(w.Width) || math.IsInf(w.Width, 0) || w.Width <= 0 {
		return ErrInvalidWindow
	}
	if !(w.Start < w.End()) {
		return ErrInvalidWindow
	}
	return nil
}

// Advance returns a window with the same width starting at next.
func (w MassWindow) Advance(next float64) MassWindow {
	return MassWindow{Start: next, Width: w.Width}
}
