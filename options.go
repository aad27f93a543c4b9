package scrapejob

import "strings"

// ExtractionOptions toggles the categories extracted from a document.
type ExtractionOptions struct {
	ExtractTitle      bool   `json:"extractTitle"`
	ExtractLinks      bool   `json:"extractLinks"`
	ExtractImages     bool   `json:"extractImages"`
	ExtractHeadings   bool   `json:"extractHeadings"`
	UseCustomSelector bool   `json:"useCustomSelector"`
	CustomSelector    string `json:"customSelector,omitempty"`
}

// Validate returns an error if the options are inconsistent.
func (o ExtractionOptions) Validate() error {
	if o.UseCustomSelector && strings.TrimSpace(o.CustomSelector) == "" {
		return Errorf(EINVALID, "custom selector required when useCustomSelector is set")
	}
	return nil
}

// CustomSelectors splits CustomSelector on commas and returns the trimmed,
// non-empty segments. Returns nil when custom selectors are disabled.
func (o ExtractionOptions) CustomSelectors() []string {
	if !o.UseCustomSelector {
		return nil
	}
	var selectors []string
	for _, s := range strings.Split(o.CustomSelector, ",") {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}
