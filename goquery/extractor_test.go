package goquery_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/scrapejob"
	"github.com/fwojciec/scrapejob/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor() *goquery.Extractor {
	e := goquery.NewExtractor()
	e.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractor_Extract_Title(t *testing.T) {
	t.Parallel()

	t.Run("extracts trimmed title and meta description", func(t *testing.T) {
		t.Parallel()

		html := `<html><head>
<title>  Example Page  </title>
<meta name="description" content="A page about examples">
</head><body></body></html>`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractTitle: true})

		require.NoError(t, err)
		assert.Equal(t, "Example Page", result.Title)
		assert.Equal(t, "A page about examples", result.MetaDescription)
		assert.Zero(t, result.TotalElements, "title and meta do not count")
	})

	t.Run("omits missing values", func(t *testing.T) {
		t.Parallel()

		result, err := newExtractor().Extract(`<html><body></body></html>`, "https://example.com", scrapejob.ExtractionOptions{ExtractTitle: true})

		require.NoError(t, err)
		assert.Empty(t, result.Title)
		assert.Empty(t, result.MetaDescription)
	})

	t.Run("skips title when not requested", func(t *testing.T) {
		t.Parallel()

		result, err := newExtractor().Extract(`<title>Hello</title>`, "https://example.com", scrapejob.ExtractionOptions{})

		require.NoError(t, err)
		assert.Empty(t, result.Title)
		assert.Equal(t, "https://example.com", result.URL)
		assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), result.ScrapedAt)
	})
}

func TestExtractor_Extract_Links(t *testing.T) {
	t.Parallel()

	t.Run("resolves relative links and skips javascript targets", func(t *testing.T) {
		t.Parallel()

		html := `<body><a href="/a">One</a><a href="javascript:void(0)">Bad</a></body>`

		result, err := newExtractor().Extract(html, "https://x.test", scrapejob.ExtractionOptions{ExtractLinks: true})

		require.NoError(t, err)
		assert.Equal(t, []scrapejob.Link{{Text: "One", URL: "https://x.test/a"}}, result.Links)
		assert.Equal(t, 1, result.TotalElements)
	})

	t.Run("skips anchors without text and keeps duplicates in order", func(t *testing.T) {
		t.Parallel()

		html := `<body>
<a href="https://other.test/x">First</a>
<a href="/empty">   </a>
<a href="mailto:me@example.com">Mail</a>
<a href="page">Relative</a>
<a href="https://other.test/x">First</a>
</body>`

		result, err := newExtractor().Extract(html, "https://example.com/docs/", scrapejob.ExtractionOptions{ExtractLinks: true})

		require.NoError(t, err)
		require.Len(t, result.Links, 3)
		assert.Equal(t, "https://other.test/x", result.Links[0].URL)
		assert.Equal(t, "https://example.com/docs/page", result.Links[1].URL)
		assert.Equal(t, "https://other.test/x", result.Links[2].URL)
	})

	t.Run("truncates long link text", func(t *testing.T) {
		t.Parallel()

		html := `<a href="/long">` + strings.Repeat("é", 250) + `</a>`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractLinks: true})

		require.NoError(t, err)
		require.Len(t, result.Links, 1)
		assert.Equal(t, goquery.MaxLinkTextLen, len([]rune(result.Links[0].Text)))
	})

	t.Run("returns empty slice when requested but none found", func(t *testing.T) {
		t.Parallel()

		result, err := newExtractor().Extract(`<p>no links</p>`, "https://example.com", scrapejob.ExtractionOptions{ExtractLinks: true})

		require.NoError(t, err)
		assert.NotNil(t, result.Links)
		assert.Empty(t, result.Links)
	})
}

func TestExtractor_Extract_Images(t *testing.T) {
	t.Parallel()

	t.Run("resolves sources and keeps optional title", func(t *testing.T) {
		t.Parallel()

		html := `<body>
<img src="/logo.png" alt="Logo" title="Company logo">
<img src="photo.jpg">
<img alt="no source">
</body>`

		result, err := newExtractor().Extract(html, "https://example.com/about/", scrapejob.ExtractionOptions{ExtractImages: true})

		require.NoError(t, err)
		assert.Equal(t, []scrapejob.Image{
			{Src: "https://example.com/logo.png", Alt: "Logo", Title: "Company logo"},
			{Src: "https://example.com/about/photo.jpg", Alt: ""},
		}, result.Images)
		assert.Equal(t, 2, result.TotalElements)
	})

	t.Run("skips inline data sources", func(t *testing.T) {
		t.Parallel()

		html := `<body>
<img src="data:image/png;base64,iVBORw0KGgo=" alt="Inline">
<img src="/real.png" alt="Real">
</body>`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractImages: true})

		require.NoError(t, err)
		assert.Equal(t, []scrapejob.Image{
			{Src: "https://example.com/real.png", Alt: "Real"},
		}, result.Images)
		assert.Equal(t, 1, result.TotalElements)
	})

	t.Run("truncates alt text", func(t *testing.T) {
		t.Parallel()

		html := `<img src="/a.png" alt="` + strings.Repeat("a", 300) + `">`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractImages: true})

		require.NoError(t, err)
		require.Len(t, result.Images, 1)
		assert.Len(t, result.Images[0].Alt, goquery.MaxImageAttrLen)
	})
}

func TestExtractor_Extract_Headings(t *testing.T) {
	t.Parallel()

	t.Run("extracts headings in document order with levels", func(t *testing.T) {
		t.Parallel()

		html := `<body>
<h2>Second</h2>
<h1> First </h1>
<h3></h3>
<h6>Deep</h6>
</body>`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractHeadings: true})

		require.NoError(t, err)
		assert.Equal(t, []scrapejob.Heading{
			{Level: 2, Text: "Second"},
			{Level: 1, Text: "First"},
			{Level: 6, Text: "Deep"},
		}, result.Headings)
	})

	t.Run("truncates heading text", func(t *testing.T) {
		t.Parallel()

		html := `<h1>` + strings.Repeat("x", 400) + `</h1>`

		result, err := newExtractor().Extract(html, "https://example.com", scrapejob.ExtractionOptions{ExtractHeadings: true})

		require.NoError(t, err)
		require.Len(t, result.Headings, 1)
		assert.Len(t, result.Headings[0].Text, goquery.MaxHeadingTextLen)
	})
}

func TestExtractor_Extract_CustomSelectors(t *testing.T) {
	t.Parallel()

	t.Run("evaluates each comma separated selector independently", func(t *testing.T) {
		t.Parallel()

		html := `<body><h1>Hi</h1></body>`
		opts := scrapejob.ExtractionOptions{UseCustomSelector: true, CustomSelector: "h1, .missing"}

		result, err := newExtractor().Extract(html, "https://example.com", opts)

		require.NoError(t, err)
		assert.Empty(t, result.CustomSelectorError)
		assert.Equal(t, []scrapejob.CustomElement{
			{Selector: "h1", Text: "Hi", HTML: "Hi"},
		}, result.CustomElements)
		assert.Equal(t, 1, result.TotalElements)
	})

	t.Run("captures inner markup", func(t *testing.T) {
		t.Parallel()

		html := `<div class="card"><b>Bold</b> text</div><div class="card"></div>`
		opts := scrapejob.ExtractionOptions{UseCustomSelector: true, CustomSelector: ".card"}

		result, err := newExtractor().Extract(html, "https://example.com", opts)

		require.NoError(t, err)
		require.Len(t, result.CustomElements, 1, "empty nodes are skipped")
		assert.Equal(t, "Bold text", result.CustomElements[0].Text)
		assert.Equal(t, "<b>Bold</b> text", result.CustomElements[0].HTML)
	})

	t.Run("records error for malformed selector without failing", func(t *testing.T) {
		t.Parallel()

		html := `<body><h1>Hi</h1><a href="/x">X</a></body>`
		opts := scrapejob.ExtractionOptions{
			ExtractLinks:      true,
			UseCustomSelector: true,
			CustomSelector:    "h1, div[",
		}

		result, err := newExtractor().Extract(html, "https://example.com", opts)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.CustomSelectorError, "Invalid CSS selector: "))
		assert.Nil(t, result.CustomElements)
		assert.Len(t, result.Links, 1)
		assert.Equal(t, 1, result.TotalElements)
	})

	t.Run("truncates text and markup", func(t *testing.T) {
		t.Parallel()

		html := `<p class="x">` + strings.Repeat("<i>y</i>", 200) + `</p>`
		opts := scrapejob.ExtractionOptions{UseCustomSelector: true, CustomSelector: ".x"}

		result, err := newExtractor().Extract(html, "https://example.com", opts)

		require.NoError(t, err)
		require.Len(t, result.CustomElements, 1)
		assert.Len(t, result.CustomElements[0].Text, 200)
		assert.Len(t, result.CustomElements[0].HTML, goquery.MaxCustomHTMLLen)
	})
}

func TestExtractor_Extract_TotalElements(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>T</title></head><body>
<h1>Head</h1>
<a href="/1">One</a><a href="/2">Two</a>
<img src="/i.png">
<p class="note">Note</p>
</body></html>`
	opts := scrapejob.ExtractionOptions{
		ExtractTitle:      true,
		ExtractLinks:      true,
		ExtractImages:     true,
		ExtractHeadings:   true,
		UseCustomSelector: true,
		CustomSelector:    ".note",
	}

	result, err := newExtractor().Extract(html, "https://example.com", opts)

	require.NoError(t, err)
	assert.Equal(t, len(result.Links)+len(result.Images)+len(result.Headings)+len(result.CustomElements), result.TotalElements)
	assert.Equal(t, 5, result.TotalElements)
}

func TestExtractor_Extract_InvalidOrigin(t *testing.T) {
	t.Parallel()

	_, err := newExtractor().Extract(`<p></p>`, "://bad", scrapejob.ExtractionOptions{})

	require.Error(t, err)
	assert.Equal(t, scrapejob.EINVALID, scrapejob.ErrorCode(err))
}
