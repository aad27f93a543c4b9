// Package goquery implements scrapejob.Extractor on top of goquery's
// jQuery-like document model.
package goquery

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/fwojciec/scrapejob"
)

// Length limits applied to extracted text.
const (
	MaxLinkTextLen    = 200
	MaxImageAttrLen   = 200
	MaxHeadingTextLen = 300
	MaxCustomTextLen  = 500
	MaxCustomHTMLLen  = 1000
)

var _ scrapejob.Extractor = (*Extractor)(nil)

// Extractor extracts titles, links, images, headings and custom selector
// matches from HTML. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	// Now returns the extraction timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{Now: time.Now}
}

// Extract parses html and applies the rules enabled in opts.
func (e *Extractor) Extract(html string, originURL string, opts scrapejob.ExtractionOptions) (*scrapejob.ExtractionResult, error) {
	base, err := url.Parse(originURL)
	if err != nil {
		return nil, scrapejob.Errorf(scrapejob.EINVALID, "invalid origin URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, scrapejob.Errorf(scrapejob.EINVALID, "failed to parse HTML: %v", err)
	}

	result := &scrapejob.ExtractionResult{
		URL:       originURL,
		ScrapedAt: e.Now().UTC(),
	}

	if opts.ExtractTitle {
		result.Title = strings.TrimSpace(doc.Find("title").First().Text())
		result.MetaDescription, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	}
	if opts.ExtractLinks {
		result.Links = extractLinks(doc, base)
	}
	if opts.ExtractImages {
		result.Images = extractImages(doc, base)
	}
	if opts.ExtractHeadings {
		result.Headings = extractHeadings(doc)
	}
	if selectors := opts.CustomSelectors(); len(selectors) > 0 {
		elements, err := extractCustom(doc, selectors)
		if err != nil {
			result.CustomSelectorError = "Invalid CSS selector: " + err.Error()
		} else {
			result.CustomElements = elements
		}
	}

	result.TotalElements = result.CountElements()
	return result, nil
}

func extractLinks(doc *goquery.Document, base *url.URL) []scrapejob.Link {
	links := []scrapejob.Link{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		href, _ := sel.Attr("href")
		resolved, ok := resolveURL(base, href)
		if !ok {
			return
		}
		links = append(links, scrapejob.Link{
			Text: truncate(text, MaxLinkTextLen),
			URL:  resolved,
		})
	})
	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []scrapejob.Image {
	images := []scrapejob.Image{}
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		resolved, ok := resolveURL(base, src)
		if !ok {
			return
		}
		alt, _ := sel.Attr("alt")
		img := scrapejob.Image{
			Src: resolved,
			Alt: truncate(alt, MaxImageAttrLen),
		}
		if title, ok := sel.Attr("title"); ok {
			img.Title = truncate(title, MaxImageAttrLen)
		}
		images = append(images, img)
	})
	return images
}

func extractHeadings(doc *goquery.Document) []scrapejob.Heading {
	headings := []scrapejob.Heading{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		headings = append(headings, scrapejob.Heading{
			Level: int(goquery.NodeName(sel)[1] - '0'),
			Text:  truncate(text, MaxHeadingTextLen),
		})
	})
	return headings
}

// extractCustom compiles every selector before matching any of them, so one
// malformed segment abandons the whole category.
func extractCustom(doc *goquery.Document, selectors []string) ([]scrapejob.CustomElement, error) {
	compiled := make([]cascadia.Selector, len(selectors))
	for i, s := range selectors {
		m, err := cascadia.Compile(s)
		if err != nil {
			return nil, err
		}
		compiled[i] = m
	}

	elements := []scrapejob.CustomElement{}
	for i, m := range compiled {
		doc.FindMatcher(m).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			html, _ := sel.Html()
			if text == "" && html == "" {
				return
			}
			elements = append(elements, scrapejob.CustomElement{
				Selector: selectors[i],
				Text:     truncate(text, MaxCustomTextLen),
				HTML:     truncate(html, MaxCustomHTMLLen),
			})
		})
	}
	return elements, nil
}

// resolveURL resolves ref against base. Only absolute http and https
// results count as resolvable; javascript:, mailto: and similar targets
// are rejected.
func resolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return resolved.String(), true
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
