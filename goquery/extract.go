// Package goquery extracts product records from the structured data embedded
// in pharmacy pages: JSON-LD, schema.org microdata, Open Graph product meta
// tags and vendor-specific CSS selectors.
package goquery

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/medprice"
)

// Ensure Extractor implements medprice.RecordExtractor at compile time.
var _ medprice.RecordExtractor = (*Extractor)(nil)

// Strategy extracts a record from a parsed document. It returns nil when it
// finds nothing.
type Strategy func(doc *goquery.Document) *medprice.Record

// Extractor implements medprice.RecordExtractor over raw HTML. It runs the
// vendor selectors for the page first and then the generic strategies, and
// returns the first valid record with blanks filled from the others.
type Extractor struct {
	registry   *Registry
	strategies []Strategy
}

// NewExtractor creates an Extractor using registry for vendor selectors.
// A nil registry disables vendor selectors.
func NewExtractor(registry *Registry) *Extractor {
	return &Extractor{
		registry:   registry,
		strategies: []Strategy{FromJSONLD, FromMicrodata, FromMeta},
	}
}

// ExtractRecord parses html taken from url and returns the best record found,
// or nil when the page carries no usable product data.
func (e *Extractor) ExtractRecord(_ context.Context, url, html string) (*medprice.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, medprice.Errorf(medprice.EINVALID, "failed to parse HTML: %v", err)
	}

	var found []*medprice.Record
	if e.registry != nil {
		if sel, ok := e.registry.Get(DetectVendor(doc, url)); ok {
			if r := sel.Extract(doc); r != nil {
				found = append(found, r)
			}
		}
	}
	for _, strategy := range e.strategies {
		if r := strategy(doc); r != nil {
			found = append(found, r)
		}
	}

	return merge(found), nil
}

// merge returns the first valid record with empty optional fields filled from
// the remaining records, or nil if none is valid.
func merge(records []*medprice.Record) *medprice.Record {
	var best *medprice.Record
	for _, r := range records {
		if r.Valid() {
			copied := *r
			best = &copied
			break
		}
	}
	if best == nil {
		return nil
	}

	for _, r := range records {
		if best.Composition == "" {
			best.Composition = r.Composition
		}
		if best.Manufacturer == "" {
			best.Manufacturer = r.Manufacturer
		}
		if best.PackSize == "" {
			best.PackSize = r.PackSize
		}
		if best.InStock == nil {
			best.InStock = r.InStock
		}
	}
	return best
}

// DetectVendor identifies the pharmacy a page belongs to from its URL, or
// failing that from its og:site_name and application-name meta tags.
func DetectVendor(doc *goquery.Document, url string) medprice.Vendor {
	if v := medprice.ClassifyVendor(url); v != medprice.VendorOther {
		return v
	}
	for _, sel := range []string{`meta[property="og:site_name"]`, `meta[name="application-name"]`} {
		if name := metaContent(doc, sel); name != "" {
			if v := medprice.ClassifyVendor(strings.ReplaceAll(name, " ", "")); v != medprice.VendorOther {
				return v
			}
		}
	}
	return medprice.VendorOther
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func stockFlag(s string) *bool {
	if b, ok := medprice.ParseStock(s); ok {
		return &b
	}
	return nil
}
