package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/scrapejob"
)

// Ensure LoggingExtractor implements scrapejob.Extractor.
var _ scrapejob.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   scrapejob.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next scrapejob.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs element counts.
func (e *LoggingExtractor) Extract(html string, originURL string, opts scrapejob.ExtractionOptions) (result *scrapejob.ExtractionResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", originURL,
			"duration", time.Since(begin),
		}
		if result != nil {
			attrs = append(attrs, "elements", result.TotalElements)
			if result.CustomSelectorError != "" {
				attrs = append(attrs, "selectorErr", result.CustomSelectorError)
			}
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		e.logger.Debug("extract", attrs...)
	}(time.Now())
	return e.next.Extract(html, originURL, opts)
}
