package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/medprice"
)

// FromMicrodata extracts a record from the first schema.org Product or Drug
// item scope marked up with itemprop attributes.
func FromMicrodata(doc *goquery.Document) *medprice.Record {
	var rec *medprice.Record
	doc.Find(`[itemscope][itemtype*="schema.org/Product"], [itemscope][itemtype*="schema.org/Drug"]`).
		EachWithBreak(func(_ int, scope *goquery.Selection) bool {
			r := &medprice.Record{
				Name:         itemprop(scope, "name"),
				Manufacturer: firstNonEmpty(itemprop(scope, "manufacturer"), itemprop(scope, "brand")),
				Composition:  itemprop(scope, "activeIngredient"),
			}
			if p, ok := medprice.ParsePrice(itemprop(scope, "price")); ok {
				r.Price = p
			} else if p, ok := medprice.ParsePrice(itemprop(scope, "lowPrice")); ok {
				r.Price = p
			}
			r.InStock = stockFlag(itemprop(scope, "availability"))

			if r.Valid() {
				rec = r
				return false
			}
			return true
		})
	return rec
}

// itemprop reads the first property value in scope. Values come from the
// content, href or value attributes before falling back to the text.
func itemprop(scope *goquery.Selection, prop string) string {
	s := scope.Find(`[itemprop="` + prop + `"]`).First()
	if s.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"content", "href", "value"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	// Nested item scopes such as an Organization expose their own name.
	if _, ok := s.Attr("itemscope"); ok {
		if n := s.Find(`[itemprop="name"]`).First(); n.Length() > 0 {
			return text(n)
		}
	}
	return text(s)
}
