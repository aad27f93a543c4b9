package mock

import "github.com/fwojciec/scrapejob"

var _ scrapejob.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of scrapejob.Extractor.
type Extractor struct {
	ExtractFn func(html string, originURL string, opts scrapejob.ExtractionOptions) (*scrapejob.ExtractionResult, error)
}

func (e *Extractor) Extract(html string, originURL string, opts scrapejob.ExtractionOptions) (*scrapejob.ExtractionResult, error) {
	return e.ExtractFn(html, originURL, opts)
}
