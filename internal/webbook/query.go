package webbook

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/irscrape/internal/model"
)

// BuildSearchURL returns the search URL for all compounds whose molecular
// mass lies in w, with IR spectra requested. The range is written as
// "<start>-<end>".
func BuildSearchURL(base string, w model.MassWindow) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := url.Values{}
	q.Set("Value", formatMass(w.Start)+"-"+formatMass(w.End()))
	q.Set("VType", "MW")
	q.Set("Formula", "")
	q.Set("AllowOther", "on")
	q.Set("AllowExtra", "on")
	q.Set("Units", "SI")
	q.Set("cIR", "on")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// formatMass prints a mass with the fewest digits that round-trip.
func formatMass(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
