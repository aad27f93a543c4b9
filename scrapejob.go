// Package scrapejob runs asynchronous, cancellable fetch-and-extract jobs.
// A job fetches a remote HTML document and extracts titles, links, images,
// headings and elements matching custom CSS selectors into a structured
// result that callers read back from an in-memory ledger.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, rod/, prometheus/).
package scrapejob
