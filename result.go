package scrapejob

import (
	"encoding/json"
	"time"
)

// ExtractionResult holds the structured data extracted from one document.
// Category slices are nil when the category was not requested.
type ExtractionResult struct {
	URL           string    `json:"url"`
	ScrapedAt     time.Time `json:"scrapedAt"`
	TotalElements int       `json:"totalElements"`
	ContentHash   string    `json:"contentHash,omitempty"`

	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`

	Links               []Link          `json:"links,omitempty"`
	Images              []Image         `json:"images,omitempty"`
	Headings            []Heading       `json:"headings,omitempty"`
	CustomElements      []CustomElement `json:"customElements,omitempty"`
	CustomSelectorError string          `json:"customSelectorError,omitempty"`
}

// CountElements returns the number of records across all category slices.
// Title and meta description do not count.
func (r *ExtractionResult) CountElements() int {
	return len(r.Links) + len(r.Images) + len(r.Headings) + len(r.CustomElements)
}

// MarshalJSON omits categories that were not requested while keeping
// requested-but-empty categories as empty arrays.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	type alias ExtractionResult
	out := struct {
		alias
		Links          *[]Link          `json:"links,omitempty"`
		Images         *[]Image         `json:"images,omitempty"`
		Headings       *[]Heading       `json:"headings,omitempty"`
		CustomElements *[]CustomElement `json:"customElements,omitempty"`
	}{alias: alias(r)}
	if r.Links != nil {
		out.Links = &r.Links
	}
	if r.Images != nil {
		out.Images = &r.Images
	}
	if r.Headings != nil {
		out.Headings = &r.Headings
	}
	if r.CustomElements != nil {
		out.CustomElements = &r.CustomElements
	}
	return json.Marshal(out)
}

// Link is an anchor with visible text and an absolute target.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Image is an image with an absolute source.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title,omitempty"`
}

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// CustomElement is a node matched by a user-supplied selector.
type CustomElement struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
}

// Extractor extracts structured data from HTML documents.
type Extractor interface {
	// Extract parses html and applies the rules enabled in opts. Relative
	// URLs are resolved against originURL. Per-category failures are
	// recorded in the result; an error is returned only when the input
	// cannot be processed at all.
	Extract(html string, originURL string, opts ExtractionOptions) (*ExtractionResult, error)
}
