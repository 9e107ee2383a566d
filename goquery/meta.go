package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/medprice"
)

// FromMeta extracts a record from Open Graph product meta tags
// (product:price:amount, og:title and product:availability).
func FromMeta(doc *goquery.Document) *medprice.Record {
	raw := firstNonEmpty(
		metaContent(doc, `meta[property="product:price:amount"]`),
		metaContent(doc, `meta[property="og:price:amount"]`),
		metaContent(doc, `meta[itemprop="price"]`),
	)
	price, ok := medprice.ParsePrice(raw)
	if !ok {
		return nil
	}

	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		text(doc.Find("h1").First()),
		text(doc.Find("title").First()),
	)
	// Titles commonly carry a site suffix such as "Dolo 650 Tablet | 1mg".
	if i := strings.Index(title, "|"); i > 0 {
		title = strings.TrimSpace(title[:i])
	}

	return &medprice.Record{
		Name:    title,
		Price:   price,
		InStock: stockFlag(firstNonEmpty(metaContent(doc, `meta[property="product:availability"]`), metaContent(doc, `meta[property="og:availability"]`))),
	}
}
