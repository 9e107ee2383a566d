package readability

import (
	"net/url"
	"strings"

	"github.com/fwojciec/medprice"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements medprice.Extractor at compile time.
var _ medprice.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML. It is
// the second choice after trafilatura for pages trafilatura leaves empty.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
func (e *Extractor) Extract(pageURL, rawHTML string) (*medprice.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "empty HTML input")
	}

	var u *url.URL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		u = parsed
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return nil, err
	}

	title := article.Title
	if title == "" {
		title = article.SiteName
	}

	return &medprice.ExtractResult{
		Title:       title,
		ContentHTML: article.Content,
	}, nil
}
