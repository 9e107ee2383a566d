package goquery

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/medprice"
)

// productTypes are the schema.org types that describe a purchasable medicine.
var productTypes = map[string]bool{
	"product":           true,
	"drug":              true,
	"individualproduct": true,
}

// FromJSONLD extracts a record from the first schema.org Product or Drug
// node found in the page's JSON-LD scripts. Nodes may be nested in arrays or
// an @graph.
func FromJSONLD(doc *goquery.Document) *medprice.Record {
	var rec *medprice.Record
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return true
		}
		for _, node := range productNodes(data) {
			if r := recordFromNode(node); r.Valid() {
				rec = r
				return false
			}
		}
		return true
	})
	return rec
}

func productNodes(data any) []map[string]any {
	var out []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = append(out, productNodes(item)...)
		}
	case map[string]any:
		if isProduct(v["@type"]) {
			out = append(out, v)
		}
		if graph, ok := v["@graph"]; ok {
			out = append(out, productNodes(graph)...)
		}
	}
	return out
}

func isProduct(t any) bool {
	switch v := t.(type) {
	case string:
		return productTypes[strings.ToLower(v)]
	case []any:
		for _, item := range v {
			if isProduct(item) {
				return true
			}
		}
	}
	return false
}

func recordFromNode(node map[string]any) *medprice.Record {
	rec := &medprice.Record{
		Name:         str(node["name"]),
		Manufacturer: firstNonEmpty(name(node["manufacturer"]), name(node["brand"])),
		Composition:  firstNonEmpty(name(node["activeIngredient"]), str(node["nonProprietaryName"])),
	}

	for _, offer := range offers(node["offers"]) {
		price, ok := amount(offer["price"])
		if !ok {
			price, ok = amount(offer["lowPrice"])
		}
		if !ok {
			continue
		}
		rec.Price = price
		rec.InStock = stockFlag(str(offer["availability"]))
		break
	}
	return rec
}

func offers(v any) []map[string]any {
	switch o := v.(type) {
	case map[string]any:
		// AggregateOffer carries its own offers but also lowPrice.
		if nested, ok := o["offers"]; ok {
			return append([]map[string]any{o}, offers(nested)...)
		}
		return []map[string]any{o}
	case []any:
		var out []map[string]any
		for _, item := range o {
			out = append(out, offers(item)...)
		}
		return out
	}
	return nil
}

func amount(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, p > 0
	case string:
		return medprice.ParsePrice(p)
	}
	return 0, false
}

// name reads a value that is either a plain string or an object with a name,
// such as an Organization or a list of them.
func name(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case map[string]any:
		return str(n["name"])
	case []any:
		var parts []string
		for _, item := range n {
			if s := name(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " + ")
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
