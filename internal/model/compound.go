package model

// CompoundEntry is one item of a search result list.
type CompoundEntry struct {
	// DetailURL is the absolute URL of the compound's detail page.
	DetailURL string `json:"detail_url"`

	// Name is the anchor text shown in the result list. Informational only;
	// file names are derived from the IR page heading.
	Name string `json:"name,omitempty"`

	// DisplayedMass is the molecular mass printed next to the entry, or nil
	// when the entry shows none.
	DisplayedMass *float64 `json:"displayed_mass,omitempty"`
}

// SearchPage is the parsed form of one search result page.
// Entries keep document order, which the site sorts by ascending mass.
type SearchPage struct {
	// URL is the address the page was fetched from.
	URL string `json:"url"`

	// Entries are the compounds listed on the page in document order.
	Entries []CompoundEntry `json:"entries"`

	// NextStart is the mass of the last entry. It becomes the start of the
	// next window. Zero when SingleMatch is true.
	NextStart float64 `json:"next_start"`

	// Ascending reports whether every displayed mass was greater than or
	// equal to the one before it.
	Ascending bool `json:"ascending"`

	// SingleMatch is true when the search matched exactly one compound and
	// the site answered with that compound's page instead of a list.
	SingleMatch bool `json:"single_match"`
}

// IRPageLinks holds what the IR spectrum page offers for download.
type IRPageLinks struct {
	// PageURL is the address of the IR page itself.
	PageURL string `json:"page_url"`

	// SpectrumURL is the absolute JCAMP-DX download link. Always present.
	SpectrumURL string `json:"spectrum_url"`

	// StructureURL is the absolute MOL file download link, empty when the
	// page offers no structure file.
	StructureURL string `json:"structure_url,omitempty"`

	// CompoundName is the trimmed text of the page's top heading.
	CompoundName string `json:"compound_name"`
}

// HasStructure reports whether a structure file can be downloaded.
func (l *IRPageLinks) HasStructure() bool {
	return l.StructureURL != ""
}
